package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"account-service/internal/client"
	"account-service/internal/config"
	"account-service/internal/util"
)

const (
	mailTypeVerificationOTP = "verification_otp"
	mailTypePasswordReset   = "password_reset"
)

// Notifier delivers lifecycle mail. Failures are reported to the caller
// but never block the operation that triggered them.
type Notifier interface {
	SendVerificationOTP(ctx context.Context, email, name, otp string) error
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

// mailEnvelope is the message consumed by the mail dispatch workers.
type mailEnvelope struct {
	Type      string    `json:"type"`
	Recipient string    `json:"recipient"`
	Name      string    `json:"name"`
	OTP       string    `json:"otp,omitempty"`
	Token     string    `json:"token,omitempty"`
	QueuedAt  time.Time `json:"queued_at"`
}

// KafkaMailer queues mail envelopes on the mail topic.
type KafkaMailer struct {
	producer *client.KafkaProducer
	topic    string
}

func NewKafkaMailer(cfg *config.Config, producer *client.KafkaProducer) *KafkaMailer {
	return &KafkaMailer{
		producer: producer,
		topic:    cfg.Kafka.MailTopic,
	}
}

func (m *KafkaMailer) SendVerificationOTP(ctx context.Context, email, name, otp string) error {
	return m.enqueue(ctx, mailEnvelope{
		Type:      mailTypeVerificationOTP,
		Recipient: email,
		Name:      name,
		OTP:       otp,
		QueuedAt:  time.Now().UTC(),
	})
}

func (m *KafkaMailer) SendPasswordReset(ctx context.Context, email, name, token string) error {
	return m.enqueue(ctx, mailEnvelope{
		Type:      mailTypePasswordReset,
		Recipient: email,
		Name:      name,
		Token:     token,
		QueuedAt:  time.Now().UTC(),
	})
}

func (m *KafkaMailer) enqueue(ctx context.Context, envelope mailEnvelope) error {
	if m.producer == nil {
		return fmt.Errorf("mail producer unavailable")
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal mail envelope: %w", err)
	}

	err = m.producer.ProduceMessage(ctx, m.topic, []byte(envelope.Recipient), payload, map[string]string{
		"mail_type": envelope.Type,
	})
	if err != nil {
		util.Error("Failed to queue mail",
			zap.String("mail_type", envelope.Type),
			zap.Error(err))
		return err
	}

	util.Debug("Mail queued", zap.String("mail_type", envelope.Type))
	return nil
}
