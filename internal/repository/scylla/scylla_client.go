package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"account-service/internal/config"
	"account-service/internal/util"
)

const accountColumns = `bucket, id, email, password_hash, email_verified, role,
	verification_otp, otp_expiry, reset_token, reset_token_expiry,
	first_name, middle_name, last_name, phone_number, photo,
	gender, marital_status, employment_status, date_of_birth,
	country, city, state, residential_address, profession,
	national_id_encrypted, national_id_key_id,
	created_at, last_login, updated_at`

// PreparedStatements holds the statements the account repository executes.
type PreparedStatements struct {
	CreateAccount     *gocql.Query
	ClaimEmail        *gocql.Query
	ReleaseEmail      *gocql.Query
	GetAccountByID    *gocql.Query
	GetIDByEmail      *gocql.Query
	SetOTP            *gocql.Query
	MarkVerified      *gocql.Query
	SetResetToken     *gocql.Query
	ClearResetToken   *gocql.Query
	CreateResetLookup *gocql.Query
	DeleteResetLookup *gocql.Query
	GetIDByResetToken *gocql.Query
	UpdatePassword    *gocql.Query
	UpdateProfile     *gocql.Query
	UpdateLastLogin   *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.RWMutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Hosts...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = scyllaConfig.Timeout
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = scyllaConfig.NumConns
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		zap.Strings("hosts", scyllaConfig.Hosts),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	prepared.CreateAccount = s.Session.Query(`
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	// LWT keeps email the unique login key across buckets
	prepared.ClaimEmail = s.Session.Query(`
		INSERT INTO accounts_by_email (email, bucket, account_id, created_at)
		VALUES (?, ?, ?, ?) IF NOT EXISTS`)

	prepared.ReleaseEmail = s.Session.Query(`
		DELETE FROM accounts_by_email WHERE email = ?`)

	prepared.GetAccountByID = s.Session.Query(`
		SELECT ` + accountColumns + `
		FROM accounts WHERE bucket = ? AND id = ?`)

	prepared.GetIDByEmail = s.Session.Query(`
		SELECT bucket, account_id FROM accounts_by_email WHERE email = ?`)

	prepared.SetOTP = s.Session.Query(`
		UPDATE accounts SET verification_otp = ?, otp_expiry = ?, updated_at = ?
		WHERE bucket = ? AND id = ?`)

	prepared.MarkVerified = s.Session.Query(`
		UPDATE accounts SET email_verified = true, verification_otp = null, otp_expiry = null, updated_at = ?
		WHERE bucket = ? AND id = ?`)

	prepared.SetResetToken = s.Session.Query(`
		UPDATE accounts SET reset_token = ?, reset_token_expiry = ?, updated_at = ?
		WHERE bucket = ? AND id = ?`)

	prepared.ClearResetToken = s.Session.Query(`
		UPDATE accounts SET reset_token = null, reset_token_expiry = null, updated_at = ?
		WHERE bucket = ? AND id = ?`)

	prepared.CreateResetLookup = s.Session.Query(`
		INSERT INTO reset_tokens_by_token (token, bucket, account_id, created_at)
		VALUES (?, ?, ?, ?) USING TTL ?`)

	prepared.DeleteResetLookup = s.Session.Query(`
		DELETE FROM reset_tokens_by_token WHERE token = ?`)

	prepared.GetIDByResetToken = s.Session.Query(`
		SELECT bucket, account_id FROM reset_tokens_by_token WHERE token = ?`)

	prepared.UpdatePassword = s.Session.Query(`
		UPDATE accounts SET password_hash = ?, reset_token = null, reset_token_expiry = null, updated_at = ?
		WHERE bucket = ? AND id = ?`)

	prepared.UpdateProfile = s.Session.Query(`
		UPDATE accounts SET first_name = ?, middle_name = ?, last_name = ?, phone_number = ?,
			photo = ?, gender = ?, marital_status = ?, employment_status = ?, date_of_birth = ?,
			country = ?, city = ?, state = ?, residential_address = ?, profession = ?,
			national_id_encrypted = ?, national_id_key_id = ?, updated_at = ?
		WHERE bucket = ? AND id = ?`)

	prepared.UpdateLastLogin = s.Session.Query(`
		UPDATE accounts SET last_login = ? WHERE bucket = ? AND id = ?`)

	s.Prepared = prepared
	s.isPrepared = true

	util.Info("ScyllaDB prepared statements created successfully")
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) Batch(typ gocql.BatchType) *gocql.Batch {
	return s.Session.NewBatch(typ)
}

func (s *ScyllaClient) ExecuteBatch(batch *gocql.Batch) error {
	return s.Session.ExecuteBatch(batch)
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}
