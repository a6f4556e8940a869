package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"account-service/internal/media"
	"account-service/internal/service"
	"account-service/internal/util"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxMultipartMemory = 8 << 20 // 8MB

// AccountHandler handles HTTP requests for the account lifecycle
type AccountHandler struct {
	lifecycle *service.LifecycleService
	profiles  *service.ProfileService
	admin     *service.AdminService
	logger    *zap.Logger
}

func NewAccountHandler(services *service.ServiceFactory, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		lifecycle: services.LifecycleService(),
		profiles:  services.ProfileService(),
		admin:     services.AdminService(),
		logger:    logger,
	}
}

// Response represents a standard API response
type Response struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Message string            `json:"message,omitempty"`
	Meta    *Meta             `json:"meta,omitempty"`
}

// Meta represents pagination metadata
type Meta struct {
	Page  int   `json:"page,omitempty"`
	Limit int   `json:"limit,omitempty"`
	Total int64 `json:"total,omitempty"`
}

// RegisterRoutes registers all account routes
func (h *AccountHandler) RegisterRoutes(router chi.Router, authMiddleware func(http.Handler) http.Handler) {
	// Public lifecycle routes
	router.Post("/register", h.Register)
	router.Post("/verify-email", h.VerifyEmail)
	router.Post("/login", h.Login)
	router.Post("/forgot-password", h.ForgotPassword)
	router.Post("/reset-password", h.ResetPassword)
	router.Post("/resend-otp", h.ResendOtp)

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Put("/user/profile", h.UpdateProfile)
		r.Get("/users", h.GetAllUsers)
		r.Get("/users/search", h.SearchUsers)
	})
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	account, err := h.lifecycle.Register(r.Context(), &req)
	if err != nil {
		h.respondWithServiceError(w, err, "Registration failed")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    account,
		Message: "User registered successfully. Please check your email to verify your account.",
	})
}

func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.lifecycle.VerifyEmail(r.Context(), req.Email, req.OTP); err != nil {
		h.respondWithServiceError(w, err, "Email verification failed")
		return
	}

	h.respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Email verified successfully",
	})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	token, account, err := h.lifecycle.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		h.respondWithServiceError(w, err, "Login failed")
		return
	}

	h.respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"token": token,
			"user":  account,
		},
	})
}

func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.lifecycle.ForgotPassword(r.Context(), req.Email); err != nil {
		h.respondWithServiceError(w, err, "Password reset request failed")
		return
	}

	h.respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Password reset link sent",
	})
}

func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.lifecycle.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.respondWithServiceError(w, err, "Password reset failed")
		return
	}

	h.respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Password reset successfully",
	})
}

func (h *AccountHandler) ResendOtp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.lifecycle.ResendOtp(r.Context(), req.Email); err != nil {
		h.respondWithServiceError(w, err, "Failed to resend OTP")
		return
	}

	h.respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "OTP resent successfully",
	})
}

// UpdateProfile accepts a sparse profile update as JSON, or as multipart
// form data when a photo is attached.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	var input service.ProfileUpdateInput
	var photo *service.PhotoUpload

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		parsed, upload, err := h.parseMultipartProfile(r)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, err, "Invalid multipart request")
			return
		}
		input = *parsed
		photo = upload
	} else {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
			return
		}
	}

	account, err := h.profiles.UpdateProfile(r.Context(), session.AccountID, &input, photo)
	if err != nil {
		h.respondWithServiceError(w, err, "Failed to update profile")
		return
	}

	h.respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    account,
		Message: "Profile updated successfully",
	})
}

func (h *AccountHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	accounts, err := h.admin.ListAccounts(r.Context(), session.Role, page, limit)
	if err != nil {
		h.respondWithServiceError(w, err, "Failed to list users")
		return
	}

	h.respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    accounts,
		Meta:    &Meta{Page: page, Limit: limit},
	})
}

func (h *AccountHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	docs, total, err := h.admin.SearchAccounts(r.Context(), session.Role, r.URL.Query().Get("q"), page, limit)
	if err != nil {
		h.respondWithServiceError(w, err, "Failed to search users")
		return
	}

	h.respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    docs,
		Meta:    &Meta{Page: page, Limit: limit, Total: total},
	})
}

// parseMultipartProfile reads the form fields and spools the photo into
// a temp file the profile service is responsible for removing.
func (h *AccountHandler) parseMultipartProfile(r *http.Request) (*service.ProfileUpdateInput, *service.PhotoUpload, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, nil, err
	}

	input := &service.ProfileUpdateInput{
		FirstName:          formValue(r, "firstName"),
		MiddleName:         formValue(r, "middleName"),
		LastName:           formValue(r, "lastName"),
		PhoneNumber:        formValue(r, "phoneNumber"),
		DateOfBirth:        formValue(r, "dateOfBirth"),
		ResidentialAddress: formValue(r, "residentialAddress"),
		MaritalStatus:      formValue(r, "maritalStatus"),
		Country:            formValue(r, "country"),
		City:               formValue(r, "city"),
		State:              formValue(r, "state"),
		Profession:         formValue(r, "profession"),
		Gender:             formValue(r, "gender"),
		EmploymentStatus:   formValue(r, "employmentStatus"),
		NationalID:         formValue(r, "nationalId"),
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return input, nil, nil
		}
		return nil, nil, err
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "profile-photo-*")
	if err != nil {
		return nil, nil, err
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, nil, err
	}

	return input, &service.PhotoUpload{
		TempPath: tmp.Name(),
		Filename: header.Filename,
		Size:     header.Size,
	}, nil
}

func formValue(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func clientIP(r *http.Request) string {
	return r.RemoteAddr
}

func (h *AccountHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError sends an error response
func (h *AccountHandler) respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	h.logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	h.respondWithJSON(w, statusCode, Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	})
}

// respondWithServiceError translates domain errors into responses.
// Unexpected errors are logged in full and surfaced generically.
func (h *AccountHandler) respondWithServiceError(w http.ResponseWriter, err error, message string) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		h.respondWithJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Errors:  validationErr.Fields,
			Message: message,
		})
		return
	}

	statusCode := getStatusCode(err)
	if statusCode == http.StatusInternalServerError {
		h.logger.Error("Unexpected service error", util.ErrorField(err))
		h.respondWithJSON(w, statusCode, Response{
			Success: false,
			Error:   "an internal error occurred",
			Message: message,
		})
		return
	}

	h.respondWithError(w, statusCode, err, message)
}

// getStatusCode determines the appropriate HTTP status code for an error
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidOTP),
		errors.Is(err, service.ErrExpiredSecret),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, media.ErrUnsupportedPhotoType),
		errors.Is(err, media.ErrPhotoTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrEmailNotVerified):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
