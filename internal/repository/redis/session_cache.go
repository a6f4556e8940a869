package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"account-service/internal/client"
	"account-service/internal/models"
	"account-service/internal/util"

	"github.com/google/uuid"
)

const (
	sessionDataPrefix     = "session_data:"
	accountSessionsPrefix = "account_sessions:"
)

// ErrSessionNotFound covers both unknown and expired tokens.
var ErrSessionNotFound = errors.New("session not found")

// Session is the cached identity behind a login token.
type Session struct {
	AccountID uuid.UUID   `json:"account_id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// SessionStore is the session operations surface the services use.
type SessionStore interface {
	CreateSession(ctx context.Context, token string, session *Session, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error
	InvalidateAccountSessions(ctx context.Context, accountID uuid.UUID) error
}

type SessionCache struct {
	client *client.RedisClient
}

func NewSessionCache(client *client.RedisClient) *SessionCache {
	return &SessionCache{client: client}
}

// CreateSession stores the session payload and tracks the token under the
// account, so every live token is reachable for bulk invalidation.
func (c *SessionCache) CreateSession(ctx context.Context, token string, session *Session, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	accountKey := accountSessionsPrefix + session.AccountID.String()

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, sessionDataPrefix+token, string(data), ttl)
	pipe.SAdd(ctx, accountKey, token)
	pipe.Expire(ctx, accountKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to create session",
			zap.String("account_id", session.AccountID.String()),
			zap.Duration("ttl", ttl),
			zap.Error(err))
		return fmt.Errorf("failed to create session: %w", err)
	}

	util.Debug("Session created",
		zap.String("account_id", session.AccountID.String()),
		zap.Duration("ttl", ttl))

	return nil
}

func (c *SessionCache) GetSession(ctx context.Context, token string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := c.client.Get(ctx, sessionDataPrefix+token)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		util.Error("Failed to get session", zap.Error(err))
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session := &Session{}
	if err := json.Unmarshal([]byte(data), session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return session, nil
}

func (c *SessionCache) DeleteSession(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	session, err := c.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, sessionDataPrefix+token)
	pipe.SRem(ctx, accountSessionsPrefix+session.AccountID.String(), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// InvalidateAccountSessions drops every live token for the account.
// Called after a password reset.
func (c *SessionCache) InvalidateAccountSessions(ctx context.Context, accountID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	accountKey := accountSessionsPrefix + accountID.String()

	tokens, err := c.client.SMembers(ctx, accountKey)
	if err != nil {
		util.Error("Failed to list account sessions",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to list account sessions: %w", err)
	}

	pipe := c.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, sessionDataPrefix+token)
	}
	pipe.Del(ctx, accountKey)
	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to invalidate account sessions",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to invalidate account sessions: %w", err)
	}

	util.Info("Account sessions invalidated",
		zap.String("account_id", accountID.String()),
		zap.Int("session_count", len(tokens)))

	return nil
}
