package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"account-service/internal/bucketing"
	"account-service/internal/models"
	"account-service/internal/util"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
)

type accountRepository struct {
	client   *ScyllaClient
	bucketer *bucketing.Manager
}

func NewAccountRepository(client *ScyllaClient, bucketer *bucketing.Manager, logger *zap.Logger) AccountRepository {
	return &accountRepository{
		client:   client,
		bucketer: bucketer,
	}
}

// CreateAccount claims the email via LWT first, so duplicate registration
// fails before any account row is written.
func (r *accountRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.Bucket = r.bucketer.AccountBucket(account.ID)

	var existingBucket int
	var existingID uuid.UUID
	var existingCreated time.Time
	applied, err := r.client.Prepared.ClaimEmail.
		Bind(account.Email, account.Bucket, account.ID, account.CreatedAt).
		WithContext(ctx).
		ScanCAS(&existingBucket, &existingID, &existingCreated)
	if err != nil {
		util.Error("Failed to claim email",
			zap.String("email", account.Email),
			zap.Error(err))
		return fmt.Errorf("failed to claim email: %w", err)
	}
	if !applied {
		return ErrEmailTaken
	}

	err = r.client.Prepared.CreateAccount.
		Bind(r.bindAccount(account)...).
		WithContext(ctx).
		Exec()
	if err != nil {
		// Roll the email claim back so the address is not orphaned
		_ = r.client.Prepared.ReleaseEmail.Bind(account.Email).WithContext(ctx).Exec()

		util.Error("Failed to create account",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create account: %w", err)
	}

	util.Info("Account created",
		zap.String("account_id", account.ID.String()),
		zap.Int("bucket", account.Bucket))

	return nil
}

func (r *accountRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	bucket := r.bucketer.AccountBucket(id)

	account, err := r.scanAccount(r.client.Prepared.GetAccountByID.Bind(bucket, id).WithContext(ctx))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}
	return account, nil
}

func (r *accountRepository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var bucket int
	var accountID uuid.UUID

	err := r.client.Prepared.GetIDByEmail.Bind(email).WithContext(ctx).Scan(&bucket, &accountID)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	account, err := r.scanAccount(r.client.Prepared.GetAccountByID.Bind(bucket, accountID).WithContext(ctx))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return account, nil
}

func (r *accountRepository) SetOTP(ctx context.Context, account *models.Account, otp string, expiry time.Time) error {
	now := time.Now().UTC()
	err := r.client.Prepared.SetOTP.
		Bind(otp, expiry, now, account.Bucket, account.ID).
		WithContext(ctx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to set otp: %w", err)
	}

	account.VerificationOTP = &otp
	account.OTPExpiry = &expiry
	account.UpdatedAt = now
	return nil
}

func (r *accountRepository) MarkVerified(ctx context.Context, account *models.Account, at time.Time) error {
	err := r.client.Prepared.MarkVerified.
		Bind(at, account.Bucket, account.ID).
		WithContext(ctx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to mark account verified: %w", err)
	}

	account.EmailVerified = true
	account.VerificationOTP = nil
	account.OTPExpiry = nil
	account.UpdatedAt = at
	return nil
}

// SetResetToken writes the token on the account row and the lookup row
// in one logged batch. The lookup row carries a TTL so stale tokens also
// age out of the index.
func (r *accountRepository) SetResetToken(ctx context.Context, account *models.Account, token string, expiry time.Time, ttl time.Duration) error {
	now := time.Now().UTC()

	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(r.client.Prepared.SetResetToken.Statement(),
		token, expiry, now, account.Bucket, account.ID)
	batch.Query(r.client.Prepared.CreateResetLookup.Statement(),
		token, account.Bucket, account.ID, now, int(ttl.Seconds()))

	if err := r.client.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	account.ResetToken = &token
	account.ResetTokenExpiry = &expiry
	account.UpdatedAt = now
	return nil
}

func (r *accountRepository) ClearResetToken(ctx context.Context, account *models.Account, at time.Time) error {
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(r.client.Prepared.ClearResetToken.Statement(), at, account.Bucket, account.ID)
	if account.ResetToken != nil {
		batch.Query(r.client.Prepared.DeleteResetLookup.Statement(), *account.ResetToken)
	}

	if err := r.client.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}

	account.ResetToken = nil
	account.ResetTokenExpiry = nil
	account.UpdatedAt = at
	return nil
}

// GetAccountByResetToken resolves the lookup row, then re-checks the
// token against the account row itself so a stale index entry can never
// authorize a reset.
func (r *accountRepository) GetAccountByResetToken(ctx context.Context, token string) (*models.Account, error) {
	var bucket int
	var accountID uuid.UUID

	err := r.client.Prepared.GetIDByResetToken.Bind(token).WithContext(ctx).Scan(&bucket, &accountID)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to look up reset token: %w", err)
	}

	account, err := r.scanAccount(r.client.Prepared.GetAccountByID.Bind(bucket, accountID).WithContext(ctx))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by reset token: %w", err)
	}

	if account.ResetToken == nil || *account.ResetToken != token {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, account *models.Account, passwordHash string, at time.Time) error {
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(r.client.Prepared.UpdatePassword.Statement(),
		passwordHash, at, account.Bucket, account.ID)
	if account.ResetToken != nil {
		batch.Query(r.client.Prepared.DeleteResetLookup.Statement(), *account.ResetToken)
	}

	if err := r.client.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	account.PasswordHash = passwordHash
	account.ResetToken = nil
	account.ResetTokenExpiry = nil
	account.UpdatedAt = at
	return nil
}

func (r *accountRepository) UpdateProfile(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()

	err := r.client.Prepared.UpdateProfile.
		Bind(account.FirstName, account.MiddleName, account.LastName, account.PhoneNumber,
			account.Photo, account.Gender, account.MaritalStatus, account.EmploymentStatus,
			account.DateOfBirth, account.Country, account.City, account.State,
			account.ResidentialAddress, account.Profession,
			account.NationalIDEncrypted, account.NationalIDKeyID,
			now, account.Bucket, account.ID).
		WithContext(ctx).
		Exec()
	if err != nil {
		util.Error("Failed to update profile",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update profile: %w", err)
	}

	account.UpdatedAt = now
	return nil
}

func (r *accountRepository) UpdateLastLogin(ctx context.Context, account *models.Account, at time.Time) error {
	err := r.client.Prepared.UpdateLastLogin.
		Bind(at, account.Bucket, account.ID).
		WithContext(ctx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	account.LastLogin = &at
	return nil
}

// ListAccounts walks the accounts table and returns the requested page.
// Page numbers start at 1.
func (r *accountRepository) ListAccounts(ctx context.Context, page, limit int) ([]*models.Account, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	skip := (page - 1) * limit

	iter := r.client.Query(`SELECT ` + accountColumns + ` FROM accounts`).
		WithContext(ctx).
		PageSize(1000).
		Iter()

	accounts := make([]*models.Account, 0, limit)
	for {
		account, ok := r.scanAccountFromIter(iter)
		if !ok {
			break
		}
		if skip > 0 {
			skip--
			continue
		}
		accounts = append(accounts, account)
		if len(accounts) == limit {
			break
		}
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (r *accountRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}

func (r *accountRepository) bindAccount(a *models.Account) []interface{} {
	return []interface{}{
		a.Bucket, a.ID, a.Email, a.PasswordHash, a.EmailVerified, string(a.Role),
		a.VerificationOTP, a.OTPExpiry, a.ResetToken, a.ResetTokenExpiry,
		a.FirstName, a.MiddleName, a.LastName, a.PhoneNumber, a.Photo,
		a.Gender, a.MaritalStatus, a.EmploymentStatus, a.DateOfBirth,
		a.Country, a.City, a.State, a.ResidentialAddress, a.Profession,
		a.NationalIDEncrypted, a.NationalIDKeyID,
		a.CreatedAt, a.LastLogin, a.UpdatedAt,
	}
}

func (r *accountRepository) scanAccount(query *gocql.Query) (*models.Account, error) {
	account := &models.Account{}
	var role string

	err := query.Scan(
		&account.Bucket, &account.ID, &account.Email, &account.PasswordHash,
		&account.EmailVerified, &role,
		&account.VerificationOTP, &account.OTPExpiry,
		&account.ResetToken, &account.ResetTokenExpiry,
		&account.FirstName, &account.MiddleName, &account.LastName,
		&account.PhoneNumber, &account.Photo,
		&account.Gender, &account.MaritalStatus, &account.EmploymentStatus,
		&account.DateOfBirth,
		&account.Country, &account.City, &account.State,
		&account.ResidentialAddress, &account.Profession,
		&account.NationalIDEncrypted, &account.NationalIDKeyID,
		&account.CreatedAt, &account.LastLogin, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Role = models.ParseRole(role)
	return account, nil
}

func (r *accountRepository) scanAccountFromIter(iter *gocql.Iter) (*models.Account, bool) {
	account := &models.Account{}
	var role string

	ok := iter.Scan(
		&account.Bucket, &account.ID, &account.Email, &account.PasswordHash,
		&account.EmailVerified, &role,
		&account.VerificationOTP, &account.OTPExpiry,
		&account.ResetToken, &account.ResetTokenExpiry,
		&account.FirstName, &account.MiddleName, &account.LastName,
		&account.PhoneNumber, &account.Photo,
		&account.Gender, &account.MaritalStatus, &account.EmploymentStatus,
		&account.DateOfBirth,
		&account.Country, &account.City, &account.State,
		&account.ResidentialAddress, &account.Profession,
		&account.NationalIDEncrypted, &account.NationalIDKeyID,
		&account.CreatedAt, &account.LastLogin, &account.UpdatedAt,
	)
	if !ok {
		return nil, false
	}

	account.Role = models.ParseRole(role)
	return account, true
}
