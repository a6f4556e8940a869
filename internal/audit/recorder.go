package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"account-service/internal/bucketing"
	"account-service/internal/client"
	"account-service/internal/config"
	"account-service/internal/models"
	"account-service/internal/util"

	"github.com/google/uuid"
)

const (
	flushInterval = 5 * time.Second
	flushSize     = 200
)

const insertEventsQuery = `
	INSERT INTO account_events
	(event_bucket, event_id, account_id, event_date, event_time, event_type, email, ip_address, details)`

// Recorder captures lifecycle events for the audit trail.
type Recorder interface {
	Record(ctx context.Context, event *models.AuditEvent)
}

// Sink streams every event to Kafka immediately and batches rows into
// ClickHouse in the background. Both paths are best effort.
type Sink struct {
	producer   *client.KafkaProducer
	clickhouse *client.ClickHouseClient
	buckets    *bucketing.Manager
	topic      string

	mu      sync.Mutex
	pending [][]interface{}

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewSink(cfg *config.Config, producer *client.KafkaProducer, clickhouse *client.ClickHouseClient, buckets *bucketing.Manager) *Sink {
	s := &Sink{
		producer:   producer,
		clickhouse: clickhouse,
		buckets:    buckets,
		topic:      cfg.Kafka.AuditTopic,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	go s.flushLoop()

	return s
}

// Record never fails the calling operation; delivery problems are logged
// and dropped.
func (s *Sink) Record(ctx context.Context, event *models.AuditEvent) {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.EventTime.IsZero() {
		event.EventTime = time.Now().UTC()
	}
	// Partition by (date, bucket) so a busy day never concentrates in
	// one ClickHouse part.
	event.EventDate = s.buckets.DateBucket(event.EventTime)
	event.EventBucket = s.buckets.KeyBucket(event.EventID.String())

	if s.producer != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			util.Error("Failed to marshal audit event", zap.Error(err))
		} else if err := s.producer.ProduceMessage(ctx, s.topic, []byte(event.AccountID.String()), payload, nil); err != nil {
			util.Warn("Failed to stream audit event", zap.Error(err))
		}
	}

	if s.clickhouse == nil {
		return
	}

	row := []interface{}{
		event.EventBucket, event.EventID, event.AccountID,
		event.EventDate, event.EventTime, event.EventType,
		event.Email, event.IPAddress, event.Details,
	}

	s.mu.Lock()
	s.pending = append(s.pending, row)
	full := len(s.pending) >= flushSize
	s.mu.Unlock()

	if full {
		s.flush()
	}
}

func (s *Sink) flushLoop() {
	defer close(s.done)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.stop:
			s.flush()
			return
		}
	}
}

func (s *Sink) flush() {
	s.mu.Lock()
	rows := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(rows) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.clickhouse.BatchInsert(ctx, insertEventsQuery, rows); err != nil {
		util.Error("Failed to flush audit events",
			zap.Int("row_count", len(rows)),
			zap.Error(err))
		return
	}

	util.Debug("Audit events flushed", zap.Int("row_count", len(rows)))
}

// Close flushes the remaining rows and stops the background loop.
func (s *Sink) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}
