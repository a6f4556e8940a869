package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"account-service/internal/audit"
	"account-service/internal/bucketing"
	"account-service/internal/client"
	"account-service/internal/config"
	"account-service/internal/encryption"
	"account-service/internal/hashing"
	"account-service/internal/media"
	"account-service/internal/notification"
	redisrepo "account-service/internal/repository/redis"
	"account-service/internal/repository/scylla"
	"account-service/internal/search"
	"account-service/internal/service"
	"account-service/internal/tls"
	"account-service/internal/util"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"golang.org/x/sync/errgroup"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient
	s3Client         *client.S3Client

	// Managers
	hasher            *hashing.Hasher
	encryptionManager *encryption.Manager
	bucketingManager  *bucketing.Manager

	// Repositories and sinks
	accountRepository scylla.AccountRepository
	sessionCache      *redisrepo.SessionCache
	rateLimitCache    *redisrepo.RateLimitCache
	auditSink         *audit.Sink
	mailer            *notification.KafkaMailer
	accountIndex      *search.AccountIndex
	photoStore        *media.S3PhotoStore

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
	}

	if cfg.Server.EnableTLS {
		factory.tlsManager = tls.NewTLSManager(&tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		})
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	factory.initializeManagers()
	factory.initializeRepositories()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients initializes the external service clients and runs
// their health checks in parallel.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	if redisClient, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = redisClient
	}

	if scyllaClient, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = scyllaClient
	}

	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
	}

	if esClient, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
	} else {
		f.esClient = esClient
	}

	if chClient, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
	} else {
		f.clickhouseClient = chClient
	}

	if f.config.S3.Enabled {
		if s3Client, err := client.NewS3Client(f.config, util.Get()); err != nil {
			initErrors = append(initErrors, fmt.Errorf("s3: %w", err))
		} else {
			f.s3Client = s3Client
		}
	}

	if healthErr := f.runHealthChecks(ctx); healthErr != nil {
		initErrors = append(initErrors, healthErr)
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

func (f *Factory) runHealthChecks(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if f.redisClient != nil {
		g.Go(func() error {
			if err := f.redisClient.HealthCheck(ctx); err != nil {
				return fmt.Errorf("redis health check: %w", err)
			}
			util.Info("Redis client initialized and healthy")
			return nil
		})
	}
	if f.scyllaClient != nil {
		g.Go(func() error {
			if err := f.scyllaClient.HealthCheck(); err != nil {
				return fmt.Errorf("scylla health check: %w", err)
			}
			util.Info("ScyllaDB client initialized and healthy")
			return nil
		})
	}
	if f.esClient != nil {
		g.Go(func() error {
			if err := f.esClient.HealthCheck(); err != nil {
				return fmt.Errorf("elasticsearch health check: %w", err)
			}
			util.Info("Elasticsearch client initialized and healthy")
			return nil
		})
	}
	if f.clickhouseClient != nil {
		g.Go(func() error {
			if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
				return fmt.Errorf("clickhouse health check: %w", err)
			}
			util.Info("ClickHouse client initialized and healthy")
			return nil
		})
	}
	if f.s3Client != nil {
		g.Go(func() error {
			if err := f.s3Client.HealthCheck(ctx); err != nil {
				return fmt.Errorf("s3 health check: %w", err)
			}
			util.Info("S3 client initialized and healthy")
			return nil
		})
	}

	return g.Wait()
}

// initializeManagers initializes hashing, encryption, and bucketing managers
func (f *Factory) initializeManagers() {
	f.hasher = hashing.NewHasher(f.config)

	var kmsClient *kms.Client
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			util.Warn("Failed to load AWS config for KMS - falling back to local keys", util.ErrorField(err))
			f.config.KMS.Enabled = false
		} else {
			kmsClient = kms.NewFromConfig(awsCfg)
		}
	}

	f.encryptionManager = encryption.NewManager(f.config, kmsClient)
	f.bucketingManager = bucketing.NewManager(f.config)
}

func (f *Factory) initializeRepositories() {
	f.accountRepository = scylla.NewAccountRepository(f.scyllaClient, f.bucketingManager, util.Get())
	f.sessionCache = redisrepo.NewSessionCache(f.redisClient)
	f.rateLimitCache = redisrepo.NewRateLimitCache(f.redisClient)
	f.auditSink = audit.NewSink(f.config, f.kafkaProducer, f.clickhouseClient, f.bucketingManager)
	f.mailer = notification.NewKafkaMailer(f.config, f.kafkaProducer)
	f.accountIndex = search.NewAccountIndex(f.config, f.esClient)
	f.photoStore = media.NewS3PhotoStore(f.config, f.s3Client)
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

// ServiceFactory wires the repositories and managers into services.
func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		f.serviceFactory = service.NewServiceFactory(
			f.accountRepository,
			f.sessionCache,
			f.rateLimitCache,
			f.hasher,
			f.encryptionManager,
			f.mailer,
			f.auditSink,
			f.accountIndex,
			f.photoStore,
			f.config,
			util.Get(),
		)
	}
	return f.serviceFactory
}

// HealthCheck reports the health of every initialized dependency.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	} else {
		healthErrors["redis"] = fmt.Errorf("redis client not initialized")
	}

	if f.scyllaClient != nil {
		if err := f.scyllaClient.HealthCheck(); err != nil {
			healthErrors["scylla"] = err
		}
	} else {
		healthErrors["scylla"] = fmt.Errorf("scylla client not initialized")
	}

	if f.esClient != nil {
		if err := f.esClient.HealthCheck(); err != nil {
			healthErrors["elasticsearch"] = err
		}
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	return healthErrors
}

// Close shuts the dependencies down in reverse dependency order.
func (f *Factory) Close() {
	f.closeOnce.Do(func() {
		if f.auditSink != nil {
			f.auditSink.Close()
		}
		if f.kafkaProducer != nil {
			_ = f.kafkaProducer.Close()
		}
		if f.esClient != nil {
			f.esClient.Close()
		}
		if f.clickhouseClient != nil {
			_ = f.clickhouseClient.Close()
		}
		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}
		if f.redisClient != nil {
			_ = f.redisClient.Close()
		}

		util.Info("Factory closed")
		util.Sync()
	})
}
