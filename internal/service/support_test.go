package service

import (
	"context"
	"errors"
	"io"
	"time"

	"account-service/internal/config"
	"account-service/internal/models"
	redisrepo "account-service/internal/repository/redis"
	"account-service/internal/repository/scylla"
	"account-service/internal/search"

	"github.com/google/uuid"
)

// fixedClock only moves when the test advances it.
type fixedClock struct {
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func (c *fixedClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// stubSecrets hands out a predetermined sequence of OTPs and tokens.
type stubSecrets struct {
	otps     []string
	tokens   []string
	otpIdx   int
	tokenIdx int
	otpErr   error
	tokenErr error
}

func (s *stubSecrets) OTP() (string, error) {
	if s.otpErr != nil {
		return "", s.otpErr
	}
	otp := s.otps[s.otpIdx]
	if s.otpIdx < len(s.otps)-1 {
		s.otpIdx++
	}
	return otp, nil
}

func (s *stubSecrets) Token() (string, error) {
	if s.tokenErr != nil {
		return "", s.tokenErr
	}
	token := s.tokens[s.tokenIdx]
	if s.tokenIdx < len(s.tokens)-1 {
		s.tokenIdx++
	}
	return token, nil
}

// fakeAccounts mirrors the repository's mutation semantics in memory.
type fakeAccounts struct {
	byID      map[uuid.UUID]*models.Account
	order     []uuid.UUID
	createErr error
	updateErr error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: make(map[uuid.UUID]*models.Account)}
}

func (f *fakeAccounts) stored(id uuid.UUID) *models.Account {
	return f.byID[id]
}

func (f *fakeAccounts) storedByEmail(email string) *models.Account {
	for _, a := range f.byID {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func copyAccount(a *models.Account) *models.Account {
	dup := *a
	return &dup
}

func (f *fakeAccounts) CreateAccount(_ context.Context, account *models.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.storedByEmail(account.Email) != nil {
		return scylla.ErrEmailTaken
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	f.byID[account.ID] = copyAccount(account)
	f.order = append(f.order, account.ID)
	return nil
}

func (f *fakeAccounts) GetAccountByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	if a, ok := f.byID[id]; ok {
		return copyAccount(a), nil
	}
	return nil, scylla.ErrAccountNotFound
}

func (f *fakeAccounts) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	if a := f.storedByEmail(email); a != nil {
		return copyAccount(a), nil
	}
	return nil, scylla.ErrAccountNotFound
}

func (f *fakeAccounts) SetOTP(_ context.Context, account *models.Account, otp string, expiry time.Time) error {
	stored, ok := f.byID[account.ID]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	stored.VerificationOTP = &otp
	stored.OTPExpiry = &expiry
	account.VerificationOTP = &otp
	account.OTPExpiry = &expiry
	return nil
}

func (f *fakeAccounts) MarkVerified(_ context.Context, account *models.Account, at time.Time) error {
	stored, ok := f.byID[account.ID]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	for _, a := range []*models.Account{stored, account} {
		a.EmailVerified = true
		a.VerificationOTP = nil
		a.OTPExpiry = nil
		a.UpdatedAt = at
	}
	return nil
}

func (f *fakeAccounts) SetResetToken(_ context.Context, account *models.Account, token string, expiry time.Time, _ time.Duration) error {
	stored, ok := f.byID[account.ID]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	stored.ResetToken = &token
	stored.ResetTokenExpiry = &expiry
	account.ResetToken = &token
	account.ResetTokenExpiry = &expiry
	return nil
}

func (f *fakeAccounts) ClearResetToken(_ context.Context, account *models.Account, at time.Time) error {
	stored, ok := f.byID[account.ID]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	for _, a := range []*models.Account{stored, account} {
		a.ResetToken = nil
		a.ResetTokenExpiry = nil
		a.UpdatedAt = at
	}
	return nil
}

func (f *fakeAccounts) GetAccountByResetToken(_ context.Context, token string) (*models.Account, error) {
	for _, a := range f.byID {
		if a.ResetToken != nil && *a.ResetToken == token {
			return copyAccount(a), nil
		}
	}
	return nil, scylla.ErrAccountNotFound
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, account *models.Account, passwordHash string, at time.Time) error {
	stored, ok := f.byID[account.ID]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	for _, a := range []*models.Account{stored, account} {
		a.PasswordHash = passwordHash
		a.ResetToken = nil
		a.ResetTokenExpiry = nil
		a.UpdatedAt = at
	}
	return nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, account *models.Account) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[account.ID]; !ok {
		return scylla.ErrAccountNotFound
	}
	f.byID[account.ID] = copyAccount(account)
	return nil
}

func (f *fakeAccounts) UpdateLastLogin(_ context.Context, account *models.Account, at time.Time) error {
	stored, ok := f.byID[account.ID]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	stored.LastLogin = &at
	account.LastLogin = &at
	return nil
}

func (f *fakeAccounts) ListAccounts(_ context.Context, page, limit int) ([]*models.Account, error) {
	skip := (page - 1) * limit
	accounts := make([]*models.Account, 0, limit)
	for _, id := range f.order {
		if skip > 0 {
			skip--
			continue
		}
		accounts = append(accounts, copyAccount(f.byID[id]))
		if len(accounts) == limit {
			break
		}
	}
	return accounts, nil
}

func (f *fakeAccounts) HealthCheck(context.Context) error { return nil }

type fakeSessions struct {
	sessions  map[string]*redisrepo.Session
	byAccount map[uuid.UUID][]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions:  make(map[string]*redisrepo.Session),
		byAccount: make(map[uuid.UUID][]string),
	}
}

func (f *fakeSessions) CreateSession(_ context.Context, token string, session *redisrepo.Session, _ time.Duration) error {
	f.sessions[token] = session
	f.byAccount[session.AccountID] = append(f.byAccount[session.AccountID], token)
	return nil
}

func (f *fakeSessions) GetSession(_ context.Context, token string) (*redisrepo.Session, error) {
	if s, ok := f.sessions[token]; ok {
		return s, nil
	}
	return nil, redisrepo.ErrSessionNotFound
}

func (f *fakeSessions) DeleteSession(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessions) InvalidateAccountSessions(_ context.Context, accountID uuid.UUID) error {
	for _, token := range f.byAccount[accountID] {
		delete(f.sessions, token)
	}
	delete(f.byAccount, accountID)
	return nil
}

type fakeLimiter struct {
	allowed bool
	err     error
	calls   []string
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{allowed: true}
}

func (f *fakeLimiter) Allow(_ context.Context, scope, key string, _ int, _ time.Duration) (bool, error) {
	f.calls = append(f.calls, scope+":"+key)
	return f.allowed, f.err
}

type sentMail struct {
	Email  string
	Name   string
	Secret string
}

type fakeNotifier struct {
	otps   []sentMail
	resets []sentMail
	err    error
}

func (f *fakeNotifier) SendVerificationOTP(_ context.Context, email, name, otp string) error {
	if f.err != nil {
		return f.err
	}
	f.otps = append(f.otps, sentMail{Email: email, Name: name, Secret: otp})
	return nil
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, email, name, token string) error {
	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, sentMail{Email: email, Name: name, Secret: token})
	return nil
}

type fakeRecorder struct {
	events []*models.AuditEvent
}

func (f *fakeRecorder) Record(_ context.Context, event *models.AuditEvent) {
	f.events = append(f.events, event)
}

func (f *fakeRecorder) eventTypes() []string {
	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.EventType)
	}
	return types
}

type fakeIndexer struct {
	indexed []*models.Account
	docs    []search.AccountDocument
	err     error
}

func (f *fakeIndexer) IndexAccount(_ context.Context, account *models.Account) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, account)
	return nil
}

func (f *fakeIndexer) SearchAccounts(_ context.Context, _ string, page, limit int) ([]search.AccountDocument, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}

	total := int64(len(f.docs))
	start := (page - 1) * limit
	if start >= len(f.docs) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(f.docs) {
		end = len(f.docs)
	}
	return f.docs[start:end], total, nil
}

type photoCall struct {
	AccountID uuid.UUID
	Filename  string
	Size      int64
	Body      []byte
}

type fakePhotos struct {
	calls []photoCall
	url   string
	err   error
}

func (f *fakePhotos) UploadPhoto(_ context.Context, accountID uuid.UUID, filename string, size int64, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.calls = append(f.calls, photoCall{AccountID: accountID, Filename: filename, Size: size, Body: data})
	if f.url != "" {
		return f.url, nil
	}
	return "user_photos/" + accountID.String(), nil
}

var errUnavailable = errors.New("backend unavailable")

func newTestConfig() *config.Config {
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
	return cfg
}
