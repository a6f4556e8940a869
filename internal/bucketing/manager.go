package bucketing

import (
	"hash"
	"sync"
	"time"

	"account-service/internal/config"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
)

// Manager assigns accounts to stable partitions. Account rows are
// partitioned by bucket so a single partition never grows unbounded.
type Manager struct {
	bucketCount uint32
	hasherPool  sync.Pool
}

func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		bucketCount: cfg.Bucketing.BucketCount,
	}

	// Pool of hash functions to avoid allocation overhead
	m.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return m
}

// AccountBucket returns the consistent bucket for an account id
// (0 to bucketCount-1).
func (m *Manager) AccountBucket(id uuid.UUID) int {
	return m.bucket(id.String())
}

// KeyBucket returns the consistent bucket for an arbitrary key,
// used for email and token lookup partitions.
func (m *Manager) KeyBucket(key string) int {
	return m.bucket(key)
}

// DateBucket returns the UTC date partition for event rows.
func (m *Manager) DateBucket(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}

func (m *Manager) bucket(key string) int {
	hasher := m.hasherPool.Get().(hash.Hash64)
	defer m.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	sum := hasher.Sum64()

	return int(sum % uint64(m.bucketCount))
}
