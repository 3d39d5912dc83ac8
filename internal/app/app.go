// Package app wires the ledger services from configuration
package app

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fadedpez/agentledger/internal/config"
	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/fadedpez/agentledger/pkg/db"
	"github.com/fadedpez/agentledger/pkg/notify"
	"github.com/fadedpez/agentledger/pkg/reporting"
	appRepo "github.com/fadedpez/agentledger/pkg/repositories/application"
	scholarshipRepo "github.com/fadedpez/agentledger/pkg/repositories/scholarship"
	walletRepo "github.com/fadedpez/agentledger/pkg/repositories/wallet"
	"github.com/fadedpez/agentledger/pkg/requirements"
	"github.com/fadedpez/agentledger/pkg/scheduler"
	"github.com/fadedpez/agentledger/pkg/services/application"
	"github.com/fadedpez/agentledger/pkg/services/approval"
	"github.com/fadedpez/agentledger/pkg/services/inventory"
	"github.com/fadedpez/agentledger/pkg/services/projection"
	"github.com/fadedpez/agentledger/pkg/services/scholarship"
	"github.com/fadedpez/agentledger/pkg/services/wallet"
)

// App holds the wired services
type App struct {
	Config       *config.Config
	Logger       *logging.Logger
	Wallets      *wallet.Service
	Applications *application.Engine
	Scholarships *scholarship.Service
	Inventories  *inventory.Service
	Projections  *projection.Service
	Jobs         *scheduler.Jobs

	database *sql.DB
	discord  *notify.DiscordSession
}

// NewLogger creates the process logger described by cfg
func NewLogger(cfg *config.Config) *logging.Logger {
	level := logging.ParseLevel(cfg.LogLevel)
	if cfg.IsDevelopment() {
		return logging.NewConsoleLogger(level)
	}
	return logging.NewLogger(level)
}

// New opens the database and builds every service
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	reqs, err := requirements.Load(cfg.RequirementsPath)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	logger.Info("Opened database at %s", cfg.DatabasePath)

	a := &App{Config: cfg, Logger: logger, database: database}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.NotificationsEnabled() {
		session, err := notify.NewSession(cfg.DiscordToken)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("error creating Discord session: %w", err)
		}
		a.discord = session
		notifier = notify.NewDiscordNotifier(session, cfg.DiscordChannelID)
		logger.Info("Discord notifications enabled for channel %s", cfg.DiscordChannelID)
	}

	var publisher reporting.Publisher
	if cfg.ReportingEnabled() {
		es, err := reporting.NewElasticsearchPublisher(&reporting.ElasticsearchConfig{
			URL:         cfg.ElasticsearchURL,
			Username:    cfg.ElasticsearchUsername,
			Password:    cfg.ElasticsearchPassword,
			IndexPrefix: cfg.ElasticsearchIndexPrefix,
		})
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("error creating Elasticsearch publisher: %w", err)
		}
		publisher = es
		logger.Info("Elasticsearch reporting enabled at %s", cfg.ElasticsearchURL)
	}

	scholarships := scholarshipRepo.NewSQLiteRepository(database)

	a.Wallets = wallet.NewService(walletRepo.NewSQLiteRepository(database), notifier, logger)
	a.Scholarships = scholarship.NewService(scholarships, reqs, notifier, logger)
	a.Inventories = inventory.NewService(scholarships, reqs, publisher, logger)
	a.Projections = projection.NewService(scholarships, reqs, publisher, logger)

	dispatcher := approval.NewDispatcher(a.Wallets, a.Scholarships, a.Inventories, logger)
	a.Applications = application.NewEngine(appRepo.NewSQLiteRepository(database), dispatcher, logger)
	a.Jobs = scheduler.NewJobs(a.Scholarships, a.Inventories, a.Now, logger)

	return a, nil
}

// Now returns the current time in the configured timezone
func (a *App) Now() time.Time {
	return time.Now().In(a.Config.Location)
}

// Schedules returns the configured job schedules
func (a *App) Schedules() scheduler.Schedules {
	return scheduler.Schedules{
		ExpirePoints:           a.Config.ExpirePointsSchedule,
		RecalculateInventories: a.Config.RecalculateInventorySchedule,
		FixScholarships:        a.Config.FixScholarshipsSchedule,
		CycleReset:             a.Config.CycleResetSchedule,
	}
}

// Close releases the database and Discord session
func (a *App) Close() error {
	if a.discord != nil {
		if err := a.discord.Close(); err != nil {
			a.Logger.Warn("Error closing Discord session: %v", err)
		}
	}
	return a.database.Close()
}
