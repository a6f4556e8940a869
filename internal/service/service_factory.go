package service

import (
	"account-service/internal/audit"
	"account-service/internal/config"
	"account-service/internal/encryption"
	"account-service/internal/hashing"
	"account-service/internal/media"
	"account-service/internal/notification"
	redisrepo "account-service/internal/repository/redis"
	"account-service/internal/repository/scylla"
	"account-service/internal/search"
	"account-service/internal/secret"

	"go.uber.org/zap"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	accounts  scylla.AccountRepository
	sessions  redisrepo.SessionStore
	limiter   redisrepo.RateLimiter
	hasher    *hashing.Hasher
	encryptor *encryption.Manager
	secrets   secret.Generator
	notifier  notification.Notifier
	recorder  audit.Recorder
	indexer   search.Indexer
	photos    media.PhotoStore
	clock     Clock
	cfg       *config.Config
	logger    *zap.Logger

	lifecycleService *LifecycleService
	profileService   *ProfileService
	adminService     *AdminService
}

func NewServiceFactory(
	accounts scylla.AccountRepository,
	sessions redisrepo.SessionStore,
	limiter redisrepo.RateLimiter,
	hasher *hashing.Hasher,
	encryptor *encryption.Manager,
	notifier notification.Notifier,
	recorder audit.Recorder,
	indexer search.Indexer,
	photos media.PhotoStore,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceFactory {
	return &ServiceFactory{
		accounts:  accounts,
		sessions:  sessions,
		limiter:   limiter,
		hasher:    hasher,
		encryptor: encryptor,
		secrets:   secret.NewGenerator(),
		notifier:  notifier,
		recorder:  recorder,
		indexer:   indexer,
		photos:    photos,
		clock:     NewClock(),
		cfg:       cfg,
		logger:    logger,
	}
}

// LifecycleService returns the lifecycle service instance (singleton)
func (f *ServiceFactory) LifecycleService() *LifecycleService {
	if f.lifecycleService == nil {
		f.lifecycleService = NewLifecycleService(
			f.accounts,
			f.sessions,
			f.limiter,
			f.hasher,
			f.secrets,
			f.notifier,
			f.recorder,
			f.indexer,
			f.clock,
			f.cfg,
		)
	}
	return f.lifecycleService
}

// ProfileService returns the profile service instance (singleton)
func (f *ServiceFactory) ProfileService() *ProfileService {
	if f.profileService == nil {
		f.profileService = NewProfileService(
			f.accounts,
			f.photos,
			f.encryptor,
			f.recorder,
			f.indexer,
			f.clock,
		)
	}
	return f.profileService
}

// AdminService returns the admin service instance (singleton)
func (f *ServiceFactory) AdminService() *AdminService {
	if f.adminService == nil {
		f.adminService = NewAdminService(f.accounts, f.indexer)
	}
	return f.adminService
}

// Sessions exposes the session store for the auth middleware.
func (f *ServiceFactory) Sessions() redisrepo.SessionStore {
	return f.sessions
}
