package scylla

import (
	"context"
	"time"

	"account-service/internal/models"

	"github.com/google/uuid"
)

// AccountRepository defines the storage operations the services depend on.
type AccountRepository interface {
	// Core operations
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)

	// Verification lifecycle
	SetOTP(ctx context.Context, account *models.Account, otp string, expiry time.Time) error
	MarkVerified(ctx context.Context, account *models.Account, at time.Time) error

	// Password reset lifecycle
	SetResetToken(ctx context.Context, account *models.Account, token string, expiry time.Time, ttl time.Duration) error
	ClearResetToken(ctx context.Context, account *models.Account, at time.Time) error
	GetAccountByResetToken(ctx context.Context, token string) (*models.Account, error)
	UpdatePassword(ctx context.Context, account *models.Account, passwordHash string, at time.Time) error

	// Profile
	UpdateProfile(ctx context.Context, account *models.Account) error
	UpdateLastLogin(ctx context.Context, account *models.Account, at time.Time) error

	// Administrative
	ListAccounts(ctx context.Context, page, limit int) ([]*models.Account, error)

	HealthCheck(ctx context.Context) error
}
