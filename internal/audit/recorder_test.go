package audit

import (
	"context"
	"testing"
	"time"

	"account-service/internal/bucketing"
	"account-service/internal/config"
	"account-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRecordAssignsPartitionFields(t *testing.T) {
	cfg := &config.Config{}
	cfg.Bucketing.BucketCount = 16

	sink := NewSink(cfg, nil, nil, bucketing.NewManager(cfg))
	defer sink.Close()

	event := &models.AuditEvent{
		AccountID: uuid.New(),
		EventType: models.EventLoginSucceeded,
		Email:     "ada@example.com",
		EventTime: time.Date(2024, 6, 1, 23, 45, 0, 0, time.UTC),
	}

	sink.Record(context.Background(), event)

	assert.NotEqual(t, uuid.Nil, event.EventID)
	assert.Equal(t, "2024-06-01", event.EventDate)
	assert.GreaterOrEqual(t, event.EventBucket, 0)
	assert.Less(t, event.EventBucket, 16)
}

func TestRecordBucketIsStablePerEvent(t *testing.T) {
	cfg := &config.Config{}
	cfg.Bucketing.BucketCount = 256

	sink := NewSink(cfg, nil, nil, bucketing.NewManager(cfg))
	defer sink.Close()

	event := &models.AuditEvent{
		AccountID: uuid.New(),
		EventType: models.EventAccountRegistered,
	}

	sink.Record(context.Background(), event)
	first := event.EventBucket

	sink.Record(context.Background(), event)
	assert.Equal(t, first, event.EventBucket)
}
