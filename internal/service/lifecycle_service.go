package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"account-service/internal/audit"
	"account-service/internal/config"
	"account-service/internal/hashing"
	"account-service/internal/models"
	"account-service/internal/notification"
	redisrepo "account-service/internal/repository/redis"
	"account-service/internal/repository/scylla"
	"account-service/internal/search"
	"account-service/internal/secret"
	"account-service/internal/util"
)

const (
	rateScopeResendOTP = "resend_otp"
	rateScopeLogin     = "login"
)

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Type      string `json:"type"`
}

// LifecycleService drives the account state machine: registration,
// verification, login, and password reset. Secrets are persisted before
// notification is attempted, so a delivery failure still leaves a valid
// pending secret.
type LifecycleService struct {
	accounts scylla.AccountRepository
	sessions redisrepo.SessionStore
	limiter  redisrepo.RateLimiter
	hasher   *hashing.Hasher
	secrets  secret.Generator
	notifier notification.Notifier
	recorder audit.Recorder
	indexer  search.Indexer
	clock    Clock
	cfg      *config.Config
}

func NewLifecycleService(
	accounts scylla.AccountRepository,
	sessions redisrepo.SessionStore,
	limiter redisrepo.RateLimiter,
	hasher *hashing.Hasher,
	secrets secret.Generator,
	notifier notification.Notifier,
	recorder audit.Recorder,
	indexer search.Indexer,
	clock Clock,
	cfg *config.Config,
) *LifecycleService {
	return &LifecycleService{
		accounts: accounts,
		sessions: sessions,
		limiter:  limiter,
		hasher:   hasher,
		secrets:  secrets,
		notifier: notifier,
		recorder: recorder,
		indexer:  indexer,
		clock:    clock,
		cfg:      cfg,
	}
}

// Register creates an unverified account with a pending OTP and queues
// the verification mail.
func (s *LifecycleService) Register(ctx context.Context, in *RegisterInput) (*models.Account, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	otp, err := s.secrets.OTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	now := s.clock.Now()
	otpExpiry := now.Add(s.cfg.Lifecycle.RegisterOTPTTL)

	account := &models.Account{
		Email:           in.Email,
		PasswordHash:    passwordHash,
		EmailVerified:   false,
		Role:            models.ParseRole(in.Type),
		VerificationOTP: &otp,
		OTPExpiry:       &otpExpiry,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, scylla.ErrEmailTaken) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	s.indexAccount(ctx, account)

	if err := s.notifier.SendVerificationOTP(ctx, account.Email, account.FullName(), otp); err != nil {
		util.Warn("Verification mail delivery failed",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
	}

	s.record(ctx, account, models.EventAccountRegistered, "")

	return account, nil
}

// VerifyEmail consumes the pending OTP. A cleared OTP fails closed, and
// expiry is checked at the moment of use.
func (s *LifecycleService) VerifyEmail(ctx context.Context, email, otp string) error {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	if account.VerificationOTP == nil || otp == "" || *account.VerificationOTP != otp {
		return ErrInvalidOTP
	}
	if account.OTPExpiry == nil || account.OTPExpiry.Before(s.clock.Now()) {
		return ErrInvalidOTP
	}

	if err := s.accounts.MarkVerified(ctx, account, s.clock.Now()); err != nil {
		return err
	}

	s.indexAccount(ctx, account)
	s.record(ctx, account, models.EventEmailVerified, "")

	util.Info("Email verified", zap.String("account_id", account.ID.String()))
	return nil
}

// ResendOtp issues a fresh OTP for an unverified account, replacing any
// previous code.
func (s *LifecycleService) ResendOtp(ctx context.Context, email string) error {
	allowed, err := s.limiter.Allow(ctx, rateScopeResendOTP, email,
		s.cfg.RateLimit.ResendLimit, s.cfg.RateLimit.ResendWindow)
	if err != nil {
		util.Warn("Rate limit check failed, allowing request", zap.Error(err))
	} else if !allowed {
		return ErrRateLimited
	}

	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	if account.EmailVerified {
		return ErrAlreadyVerified
	}

	otp, err := s.secrets.OTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	expiry := s.clock.Now().Add(s.cfg.Lifecycle.ResendOTPTTL)
	if err := s.accounts.SetOTP(ctx, account, otp, expiry); err != nil {
		return err
	}

	if err := s.notifier.SendVerificationOTP(ctx, account.Email, account.FullName(), otp); err != nil {
		util.Warn("Verification mail delivery failed",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
	}

	s.record(ctx, account, models.EventOTPResent, "")
	return nil
}

// Login verifies the password and issues an opaque session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *LifecycleService) Login(ctx context.Context, email, password, ipAddress string) (string, *models.Account, error) {
	allowed, err := s.limiter.Allow(ctx, rateScopeLogin, email,
		s.cfg.RateLimit.LoginLimit, s.cfg.RateLimit.LoginWindow)
	if err != nil {
		util.Warn("Rate limit check failed, allowing request", zap.Error(err))
	} else if !allowed {
		return "", nil, ErrRateLimited
	}

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, scylla.ErrAccountNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !account.EmailVerified {
		return "", nil, ErrEmailNotVerified
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.record(ctx, account, models.EventLoginFailed, ipAddress)
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.secrets.Token()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := s.clock.Now()
	session := &redisrepo.Session{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, token, session, s.cfg.Lifecycle.SessionTTL); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.accounts.UpdateLastLogin(ctx, account, now); err != nil {
		util.Warn("Failed to record last login",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
	}

	s.record(ctx, account, models.EventLoginSucceeded, ipAddress)

	return token, account, nil
}

// ForgotPassword issues a single-use reset token with a bounded window.
func (s *LifecycleService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.secrets.Token()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiry := s.clock.Now().Add(s.cfg.Lifecycle.ResetTokenTTL)
	if err := s.accounts.SetResetToken(ctx, account, token, expiry, s.cfg.Lifecycle.ResetTokenTTL); err != nil {
		return err
	}

	if err := s.notifier.SendPasswordReset(ctx, account.Email, account.FullName(), token); err != nil {
		util.Warn("Reset mail delivery failed",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
	}

	s.record(ctx, account, models.EventResetRequested, "")
	return nil
}

// ResetPassword consumes the reset token, re-hashes the password, and
// drops every live session for the account.
func (s *LifecycleService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	account, err := s.accounts.GetAccountByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, scylla.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	if account.ResetTokenExpiry == nil || account.ResetTokenExpiry.Before(s.clock.Now()) {
		// Lazy cleanup of the dead token and its lookup row
		if err := s.accounts.ClearResetToken(ctx, account, s.clock.Now()); err != nil {
			util.Warn("Failed to clear expired reset token",
				zap.String("account_id", account.ID.String()),
				zap.Error(err))
		}
		return ErrExpiredSecret
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, account, passwordHash, s.clock.Now()); err != nil {
		return err
	}

	if err := s.sessions.InvalidateAccountSessions(ctx, account.ID); err != nil {
		util.Warn("Failed to invalidate sessions after password reset",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
	}

	s.record(ctx, account, models.EventPasswordReset, "")

	util.Info("Password reset", zap.String("account_id", account.ID.String()))
	return nil
}

func (s *LifecycleService) findByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, scylla.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *LifecycleService) indexAccount(ctx context.Context, account *models.Account) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexAccount(ctx, account); err != nil {
		util.Warn("Failed to index account",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
	}
}

func (s *LifecycleService) record(ctx context.Context, account *models.Account, eventType, ipAddress string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, &models.AuditEvent{
		AccountID: account.ID,
		EventType: eventType,
		Email:     account.Email,
		IPAddress: ipAddress,
		EventTime: s.clock.Now(),
	})
}
