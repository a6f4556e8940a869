package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"account-service/internal/config"
	"account-service/internal/encryption"
	"account-service/internal/hashing"
	"account-service/internal/models"
	redisrepo "account-service/internal/repository/redis"
	"account-service/internal/repository/scylla"
	"account-service/internal/service"
	"account-service/internal/util"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryAccounts is a minimal in-memory AccountRepository for HTTP tests.
type memoryAccounts struct {
	byID  map[uuid.UUID]*models.Account
	order []uuid.UUID
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{byID: make(map[uuid.UUID]*models.Account)}
}

func (m *memoryAccounts) byEmail(email string) *models.Account {
	for _, a := range m.byID {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func (m *memoryAccounts) CreateAccount(_ context.Context, account *models.Account) error {
	if m.byEmail(account.Email) != nil {
		return scylla.ErrEmailTaken
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	dup := *account
	m.byID[account.ID] = &dup
	m.order = append(m.order, account.ID)
	return nil
}

func (m *memoryAccounts) GetAccountByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	if a, ok := m.byID[id]; ok {
		dup := *a
		return &dup, nil
	}
	return nil, scylla.ErrAccountNotFound
}

func (m *memoryAccounts) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	if a := m.byEmail(email); a != nil {
		dup := *a
		return &dup, nil
	}
	return nil, scylla.ErrAccountNotFound
}

func (m *memoryAccounts) SetOTP(_ context.Context, account *models.Account, otp string, expiry time.Time) error {
	stored := m.byID[account.ID]
	stored.VerificationOTP = &otp
	stored.OTPExpiry = &expiry
	return nil
}

func (m *memoryAccounts) MarkVerified(_ context.Context, account *models.Account, at time.Time) error {
	stored := m.byID[account.ID]
	stored.EmailVerified = true
	stored.VerificationOTP = nil
	stored.OTPExpiry = nil
	stored.UpdatedAt = at
	return nil
}

func (m *memoryAccounts) SetResetToken(_ context.Context, account *models.Account, token string, expiry time.Time, _ time.Duration) error {
	stored := m.byID[account.ID]
	stored.ResetToken = &token
	stored.ResetTokenExpiry = &expiry
	return nil
}

func (m *memoryAccounts) ClearResetToken(_ context.Context, account *models.Account, at time.Time) error {
	stored := m.byID[account.ID]
	stored.ResetToken = nil
	stored.ResetTokenExpiry = nil
	stored.UpdatedAt = at
	return nil
}

func (m *memoryAccounts) GetAccountByResetToken(_ context.Context, token string) (*models.Account, error) {
	for _, a := range m.byID {
		if a.ResetToken != nil && *a.ResetToken == token {
			dup := *a
			return &dup, nil
		}
	}
	return nil, scylla.ErrAccountNotFound
}

func (m *memoryAccounts) UpdatePassword(_ context.Context, account *models.Account, passwordHash string, at time.Time) error {
	stored := m.byID[account.ID]
	stored.PasswordHash = passwordHash
	stored.ResetToken = nil
	stored.ResetTokenExpiry = nil
	stored.UpdatedAt = at
	return nil
}

func (m *memoryAccounts) UpdateProfile(_ context.Context, account *models.Account) error {
	dup := *account
	m.byID[account.ID] = &dup
	return nil
}

func (m *memoryAccounts) UpdateLastLogin(_ context.Context, account *models.Account, at time.Time) error {
	m.byID[account.ID].LastLogin = &at
	return nil
}

func (m *memoryAccounts) ListAccounts(_ context.Context, page, limit int) ([]*models.Account, error) {
	skip := (page - 1) * limit
	accounts := make([]*models.Account, 0, limit)
	for _, id := range m.order {
		if skip > 0 {
			skip--
			continue
		}
		dup := *m.byID[id]
		accounts = append(accounts, &dup)
		if len(accounts) == limit {
			break
		}
	}
	return accounts, nil
}

func (m *memoryAccounts) HealthCheck(context.Context) error { return nil }

type memorySessions struct {
	sessions map[string]*redisrepo.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]*redisrepo.Session)}
}

func (m *memorySessions) CreateSession(_ context.Context, token string, session *redisrepo.Session, _ time.Duration) error {
	m.sessions[token] = session
	return nil
}

func (m *memorySessions) GetSession(_ context.Context, token string) (*redisrepo.Session, error) {
	if s, ok := m.sessions[token]; ok {
		return s, nil
	}
	return nil, redisrepo.ErrSessionNotFound
}

func (m *memorySessions) DeleteSession(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func (m *memorySessions) InvalidateAccountSessions(_ context.Context, accountID uuid.UUID) error {
	for token, s := range m.sessions {
		if s.AccountID == accountID {
			delete(m.sessions, token)
		}
	}
	return nil
}

type openLimiter struct{}

func (openLimiter) Allow(context.Context, string, string, int, time.Duration) (bool, error) {
	return true, nil
}

type silentNotifier struct{}

func (silentNotifier) SendVerificationOTP(context.Context, string, string, string) error { return nil }
func (silentNotifier) SendPasswordReset(context.Context, string, string, string) error   { return nil }

type testEnv struct {
	router   chi.Router
	accounts *memoryAccounts
	sessions *memorySessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Hashing = config.HashingConfig{
		ArgonMemory:      16 * 1024,
		ArgonIterations:  1,
		ArgonParallelism: 1,
		SaltLength:       16,
		KeyLength:        32,
	}
	cfg.Lifecycle = config.LifecycleConfig{
		RegisterOTPTTL: 20 * time.Minute,
		ResendOTPTTL:   10 * time.Minute,
		ResetTokenTTL:  30 * time.Minute,
		SessionTTL:     24 * time.Hour,
	}
	cfg.RateLimit = config.RateLimitConfig{
		ResendLimit:  5,
		ResendWindow: 10 * time.Minute,
		LoginLimit:   10,
		LoginWindow:  5 * time.Minute,
	}

	env := &testEnv{
		accounts: newMemoryAccounts(),
		sessions: newMemorySessions(),
	}

	services := service.NewServiceFactory(
		env.accounts,
		env.sessions,
		openLimiter{},
		hashing.NewHasher(cfg),
		encryption.NewManager(&config.Config{}, nil),
		silentNotifier{},
		nil,
		nil,
		nil,
		cfg,
		util.Get(),
	)

	accountHandler := NewAccountHandler(services, util.Get())

	router := chi.NewRouter()
	accountHandler.RegisterRoutes(router, AuthMiddleware(env.sessions))
	env.router = router
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func (env *testEnv) registerAndVerify(t *testing.T, email string) *models.Account {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/register", map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     email,
		"password":  "correcthorse",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	account := env.accounts.byEmail(email)
	require.NotNil(t, account)
	require.NotNil(t, account.VerificationOTP)

	rec = env.do(t, http.MethodPost, "/verify-email", map[string]string{
		"email": email,
		"otp":   *account.VerificationOTP,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	return account
}

func (env *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	return data["token"].(string)
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/register", map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
		"password":  "correcthorse",
	}, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "User registered successfully. Please check your email to verify your account.", resp.Message)

	// the stored hash never leaks into the payload
	assert.NotContains(t, rec.Body.String(), "password_hash")
	assert.NotContains(t, rec.Body.String(), "correcthorse")
}

func TestRegisterEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/register", map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "not-an-email",
		"password":  "short",
	}, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "Enter a valid email address", resp.Errors["email"])
	assert.Equal(t, "Password should be at least 8 characters long", resp.Errors["password"])
}

func TestRegisterEndpointDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndVerify(t, "ada@example.com")

	rec := env.do(t, http.MethodPost, "/register", map[string]string{
		"firstName": "Augusta",
		"lastName":  "King",
		"email":     "ada@example.com",
		"password":  "differentpass",
	}, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyEmailEndpointRejectsBadOTP(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/register", map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
		"password":  "correcthorse",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/verify-email", map[string]string{
		"email": "ada@example.com",
		"otp":   "000000",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndVerify(t, "ada@example.com")

	token := env.login(t, "ada@example.com", "correcthorse")
	assert.NotEmpty(t, token)

	_, err := env.sessions.GetSession(context.Background(), token)
	assert.NoError(t, err)
}

func TestLoginEndpointBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndVerify(t, "ada@example.com")

	wrong := env.do(t, http.MethodPost, "/login", map[string]string{
		"email":    "ada@example.com",
		"password": "wrongpassword",
	}, "")
	unknown := env.do(t, http.MethodPost, "/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "correcthorse",
	}, "")

	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, decodeResponse(t, wrong).Error, decodeResponse(t, unknown).Error)
}

func TestLoginEndpointUnverifiedAccount(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/register", map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
		"password":  "correcthorse",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/login", map[string]string{
		"email":    "ada@example.com",
		"password": "correcthorse",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerAndVerify(t, "ada@example.com")

	rec := env.do(t, http.MethodPost, "/forgot-password", map[string]string{
		"email": "ada@example.com",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	stored := env.accounts.byID[account.ID]
	require.NotNil(t, stored.ResetToken)

	rec = env.do(t, http.MethodPost, "/reset-password", map[string]string{
		"token":       *stored.ResetToken,
		"newPassword": "brandnewsecret",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	env.login(t, "ada@example.com", "brandnewsecret")
}

func TestUpdateProfileEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndVerify(t, "ada@example.com")
	token := env.login(t, "ada@example.com", "correcthorse")

	rec := env.do(t, http.MethodPut, "/user/profile", map[string]string{
		"city":       "London",
		"profession": "Mathematician",
	}, token)

	require.Equal(t, http.StatusOK, rec.Code)
	stored := env.accounts.byEmail("ada@example.com")
	assert.Equal(t, "London", stored.City)
	assert.Equal(t, "Mathematician", stored.Profession)
}

func TestUpdateProfileEndpointRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/user/profile", map[string]string{"city": "London"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPut, "/user/profile", map[string]string{"city": "London"}, "bogus-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetAllUsersRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndVerify(t, "ada@example.com")
	token := env.login(t, "ada@example.com", "correcthorse")

	rec := env.do(t, http.MethodGet, "/users", nil, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetAllUsersAsAdmin(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 15; i++ {
		env.registerAndVerify(t, fmt.Sprintf("user%02d@example.com", i))
	}

	admin := env.accounts.byEmail("user00@example.com")
	admin.Role = models.RoleAdmin
	token := env.login(t, "user00@example.com", "correcthorse")

	rec := env.do(t, http.MethodGet, "/users?page=2&limit=10", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 10, resp.Meta.Limit)

	accounts := resp.Data.([]interface{})
	assert.Len(t, accounts, 5)
}

func TestMalformedJSONBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
