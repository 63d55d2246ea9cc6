package postgres

import (
	"context"

	"github.com/upb/smart-city-assistant/config"
	"github.com/upb/smart-city-assistant/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory opens the connection pool
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return &RepositoryFactory{db: db, logger: logger}, nil
}

// NewRepositoryFactoryWithDB builds a factory over an existing pool
func NewRepositoryFactoryWithDB(db *DB, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, logger: logger}
}

// Migrate applies pending schema migrations
func (f *RepositoryFactory) Migrate(ctx context.Context) error {
	return f.db.RunMigrations(ctx)
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Subjects:      NewSubjectRepository(f.db, f.logger),
		Feedback:      NewFeedbackRepository(f.db, f.logger),
		Announcements: NewAnnouncementRepository(f.db, f.logger),
		Chat:          NewChatRepository(f.db, f.logger),
	}
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
