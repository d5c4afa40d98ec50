package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/sov-billing/internal/application/dispatcher"
	"github.com/garyjia/sov-billing/internal/application/port"
	"github.com/garyjia/sov-billing/internal/application/service"
	"github.com/garyjia/sov-billing/internal/domain/sov"
	"github.com/garyjia/sov-billing/internal/infrastructure/persistence/repository"
	"github.com/garyjia/sov-billing/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/sov-billing/internal/infrastructure/tabular"
	"github.com/garyjia/sov-billing/pkg/database"
	"github.com/garyjia/sov-billing/pkg/logging"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// TabularBundle holds the spreadsheet reader and writer
type TabularBundle struct {
	Reader port.TableReader
	Writer port.TableWriter
}

// ProvideDatabase opens the database and applies the embedded migrations
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(ctx, database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(database.Migrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		SOV:        repository.NewSOVRepository(sqlDB, logger),
		SOVVersion: repository.NewSOVVersionRepository(sqlDB, logger),
		Draw:       repository.NewDrawRepository(sqlDB, logger),
		Commitment: repository.NewCommitmentRepository(sqlDB, logger),
		CostCode:   repository.NewCostCodeRepository(sqlDB, logger),
		Bill:       repository.NewBillRepository(sqlDB, logger),
		Event:      repository.NewEventRepository(sqlDB, logger),
	}, nil
}

// ProvideTabular creates the spreadsheet reader and writer
func ProvideTabular(logger *zap.Logger) *TabularBundle {
	return &TabularBundle{
		Reader: tabular.NewReader(logger),
		Writer: tabular.NewWriter(logger),
	}
}

// ProvideDispatcher creates the event dispatcher and subscribes the audit
// trail to every billing event
func ProvideDispatcher(repos *RepositoryBundle, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	kv := logging.NewKV(logger)
	disp := dispatcher.NewDispatcher(dispatcher.WithLogger(kv))

	audit := service.NewAuditHandler(repos.Event, kv)
	for _, t := range audit.EventTypes() {
		disp.SubscribeNamed(t, audit.Name(), audit.Handle)
	}
	return disp, nil
}

// ServiceDeps holds dependencies for creating services
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Tabular    *TabularBundle
	Dispatcher dispatcher.Dispatcher
	Billing    *BillingConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil || deps.TxManager == nil || deps.Tabular == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("repositories, transaction manager, tabular and dispatcher are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	policy := service.DefaultPolicy()
	if deps.Billing != nil {
		policy.ApproverRoles = deps.Billing.ApproverRoles
		policy.SumTolerance = deps.Billing.SumTolerance
		policy.Balance = service.BalancePolicy(deps.Billing.BalancePolicy)
	}

	kv := logging.NewKV(deps.Logger)
	repos := deps.Repos
	locks := sov.NewLockCache(repos.Draw.Exists)

	return &ServiceBundle{
		SOV: service.NewSOVService(repos.SOV, repos.SOVVersion, repos.Draw, repos.Event,
			deps.Tabular.Reader, deps.Tabular.Writer, deps.TxManager, deps.Dispatcher, locks, policy, kv),
		Draw: service.NewDrawService(repos.SOV, repos.SOVVersion, repos.Draw,
			deps.TxManager, deps.Dispatcher, locks, kv),
		Billing: service.NewBillingService(repos.Commitment, repos.CostCode, repos.Bill,
			deps.TxManager, deps.Dispatcher, policy, kv),
	}, nil
}
