package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit event types emitted by the lifecycle and profile services.
const (
	EventAccountRegistered = "account.registered"
	EventEmailVerified     = "account.email_verified"
	EventOTPResent         = "account.otp_resent"
	EventLoginSucceeded    = "account.login_succeeded"
	EventLoginFailed       = "account.login_failed"
	EventResetRequested    = "account.reset_requested"
	EventPasswordReset     = "account.password_reset"
	EventProfileUpdated    = "account.profile_updated"
)

// AuditEvent is the security/audit record streamed to Kafka and batched
// into ClickHouse for analytics.
type AuditEvent struct {
	EventBucket int       `db:"event_bucket" json:"event_bucket"`
	EventID     uuid.UUID `db:"event_id" json:"event_id"`
	AccountID   uuid.UUID `db:"account_id" json:"account_id"`
	EventDate   string    `db:"event_date" json:"event_date"`
	EventTime   time.Time `db:"event_time" json:"event_time"`
	EventType   string    `db:"event_type" json:"event_type"`
	Email       string    `db:"email" json:"email"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	Details     string    `db:"details" json:"details"`
}
