package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository instances
type Repositories struct {
	User         UserRepository
	Subscription SubscriptionRepository
	Gift         GiftRepository
	AuditLog     AuditLogRepository
}

// NewRepositories creates all repositories from a shared DB handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Gift:         NewGiftRepository(db),
		AuditLog:     NewAuditLogRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// NewFactoryWithRepositories wraps pre-built repositories, used by tests
// that substitute fakes for the GORM implementations.
func NewFactoryWithRepositories(repos *Repositories) *Factory {
	f := &Factory{repos: repos}
	f.once.Do(func() {})
	return f
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetSubscriptionRepository returns the subscription repository instance
func (f *Factory) GetSubscriptionRepository() SubscriptionRepository {
	return f.GetRepositories().Subscription
}

// GetGiftRepository returns the gift repository instance
func (f *Factory) GetGiftRepository() GiftRepository {
	return f.GetRepositories().Gift
}

// GetAuditLogRepository returns the audit log repository instance
func (f *Factory) GetAuditLogRepository() AuditLogRepository {
	return f.GetRepositories().AuditLog
}

var (
	globalFactory *Factory
	globalMu      sync.Mutex
)

// SetGlobalFactory installs the process-wide repository factory.
func SetGlobalFactory(f *Factory) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalFactory = f
}

// GetGlobalFactory returns the process-wide repository factory.
func GetGlobalFactory() *Factory {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalFactory
}
