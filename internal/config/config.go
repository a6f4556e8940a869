package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded once at startup.
type Config struct {
	Environment string

	Server        ServerConfig
	Scylla        ScyllaConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	ClickHouse    ClickHouseConfig
	Elasticsearch ElasticsearchConfig
	KMS           KMSConfig
	S3            S3Config
	Hashing       HashingConfig
	Bucketing     BucketingConfig
	Lifecycle     LifecycleConfig
	RateLimit     RateLimitConfig
	Media         MediaConfig
	Logging       LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type ScyllaConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Consistency string
	Timeout     time.Duration
	NumConns    int
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	PoolSize  int
	EnableTLS bool
}

type KafkaConfig struct {
	Brokers    []string
	MailTopic  string
	AuditTopic string
}

type ClickHouseConfig struct {
	Addr      string
	Database  string
	Username  string
	Password  string
	EnableTLS bool
}

type ElasticsearchConfig struct {
	Addresses    []string
	Username     string
	Password     string
	AccountIndex string
}

type KMSConfig struct {
	Enabled        bool
	Region         string
	KeyID          string
	LocalKeyBase64 string
}

type S3Config struct {
	Enabled         bool
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type HashingConfig struct {
	ArgonMemory      uint32
	ArgonIterations  uint32
	ArgonParallelism uint8
	SaltLength       uint32
	KeyLength        uint32
}

type BucketingConfig struct {
	BucketCount uint32
}

// LifecycleConfig carries the credential and verification time windows.
type LifecycleConfig struct {
	RegisterOTPTTL time.Duration
	ResendOTPTTL   time.Duration
	ResetTokenTTL  time.Duration
	SessionTTL     time.Duration
}

type RateLimitConfig struct {
	ResendLimit  int
	ResendWindow time.Duration
	LoginLimit   int
	LoginWindow  time.Duration
}

type MediaConfig struct {
	MaxPhotoBytes int64
	TempDir       string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig reads .env (if present) and builds the typed config.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			TLSPort:      getEnvInt("SERVER_TLS_PORT", 8443),
			EnableTLS:    getEnvBool("SERVER_ENABLE_TLS", false),
			AutoCert:     getEnvBool("SERVER_AUTO_CERT", false),
			Domain:       getEnv("SERVER_DOMAIN", ""),
			CertFile:     getEnv("SERVER_CERT_FILE", ""),
			KeyFile:      getEnv("SERVER_KEY_FILE", ""),
			AutoCertDir:  getEnv("SERVER_AUTOCERT_DIR", "/var/cache/autocert"),
			Email:        getEnv("SERVER_ACME_EMAIL", ""),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},

		Scylla: ScyllaConfig{
			Hosts:       getEnvSlice("SCYLLA_HOSTS", []string{"127.0.0.1:9042"}),
			Keyspace:    getEnv("SCYLLA_KEYSPACE", "accounts"),
			Username:    getEnv("SCYLLA_USERNAME", ""),
			Password:    getEnv("SCYLLA_PASSWORD", ""),
			Consistency: getEnv("SCYLLA_CONSISTENCY", "quorum"),
			Timeout:     getEnvDuration("SCYLLA_TIMEOUT", 10*time.Second),
			NumConns:    getEnvInt("SCYLLA_NUM_CONNS", 2),
		},

		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			PoolSize:  getEnvInt("REDIS_POOL_SIZE", 10),
			EnableTLS: getEnvBool("REDIS_ENABLE_TLS", false),
		},

		Kafka: KafkaConfig{
			Brokers:    getEnvSlice("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
			MailTopic:  getEnv("KAFKA_MAIL_TOPIC", "account-mail"),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "account-audit"),
		},

		ClickHouse: ClickHouseConfig{
			Addr:      getEnv("CLICKHOUSE_ADDR", "127.0.0.1:9000"),
			Database:  getEnv("CLICKHOUSE_DATABASE", "audit"),
			Username:  getEnv("CLICKHOUSE_USERNAME", "default"),
			Password:  getEnv("CLICKHOUSE_PASSWORD", ""),
			EnableTLS: getEnvBool("CLICKHOUSE_ENABLE_TLS", false),
		},

		Elasticsearch: ElasticsearchConfig{
			Addresses:    getEnvSlice("ELASTICSEARCH_ADDRESSES", []string{"http://127.0.0.1:9200"}),
			Username:     getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:     getEnv("ELASTICSEARCH_PASSWORD", ""),
			AccountIndex: getEnv("ELASTICSEARCH_ACCOUNT_INDEX", "accounts"),
		},

		KMS: KMSConfig{
			Enabled:        getEnvBool("KMS_ENABLED", false),
			Region:         getEnv("KMS_REGION", "us-east-1"),
			KeyID:          getEnv("KMS_KEY_ID", ""),
			LocalKeyBase64: getEnv("KMS_LOCAL_KEY", ""),
		},

		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", "account-media"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
		},

		Hashing: HashingConfig{
			ArgonMemory:      uint32(getEnvInt("ARGON_MEMORY_KB", 64*1024)),
			ArgonIterations:  uint32(getEnvInt("ARGON_ITERATIONS", 3)),
			ArgonParallelism: uint8(getEnvInt("ARGON_PARALLELISM", 2)),
			SaltLength:       uint32(getEnvInt("ARGON_SALT_LENGTH", 16)),
			KeyLength:        uint32(getEnvInt("ARGON_KEY_LENGTH", 32)),
		},

		Bucketing: BucketingConfig{
			BucketCount: uint32(getEnvInt("BUCKET_COUNT", 256)),
		},

		Lifecycle: LifecycleConfig{
			RegisterOTPTTL: getEnvDuration("LIFECYCLE_REGISTER_OTP_TTL", 20*time.Minute),
			ResendOTPTTL:   getEnvDuration("LIFECYCLE_RESEND_OTP_TTL", 10*time.Minute),
			ResetTokenTTL:  getEnvDuration("LIFECYCLE_RESET_TOKEN_TTL", 30*time.Minute),
			SessionTTL:     getEnvDuration("LIFECYCLE_SESSION_TTL", 24*time.Hour),
		},

		RateLimit: RateLimitConfig{
			ResendLimit:  getEnvInt("RATE_LIMIT_RESEND", 5),
			ResendWindow: getEnvDuration("RATE_LIMIT_RESEND_WINDOW", 10*time.Minute),
			LoginLimit:   getEnvInt("RATE_LIMIT_LOGIN", 10),
			LoginWindow:  getEnvDuration("RATE_LIMIT_LOGIN_WINDOW", 5*time.Minute),
		},

		Media: MediaConfig{
			MaxPhotoBytes: int64(getEnvInt("MEDIA_MAX_PHOTO_BYTES", 2*1024*1024)),
			TempDir:       getEnv("MEDIA_TEMP_DIR", os.TempDir()),
		},

		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// GetServerAddress returns the plain HTTP listen address.
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
