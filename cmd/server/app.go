package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/SemenBogdanov/dpms-system/internal/config"
	"github.com/SemenBogdanov/dpms-system/internal/platform/postgres"
	"github.com/SemenBogdanov/dpms-system/internal/service"
	"github.com/SemenBogdanov/dpms-system/internal/service/auth"
)

// application holds the assembled dependency graph: configuration, the
// shared database handle, and every service the HTTP layer needs.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jwtService auth.JWTService

	userStore         *postgres.UserStore
	taskStore         *postgres.TaskStore
	ledgerStore       *postgres.LedgerStore
	catalogStore      *postgres.CatalogStore
	shopStore         *postgres.ShopStore
	snapshotStore     *postgres.SnapshotStore
	notificationStore *postgres.NotificationStore
	correctionStore   *postgres.CorrectionStore

	userService         *service.UserService
	taskService         *service.TaskService
	focusService        *service.FocusService
	queueService        *service.QueueService
	walletService       *service.WalletService
	shopService         *service.ShopService
	rolloverService     *service.RolloverService
	calculatorService   *service.CalculatorService
	maintenanceService  *service.MaintenanceService
	notificationService *service.NotificationService
}

// newApplication wires stores and services onto a ready database handle.
func newApplication(cfg *config.Config, db *sql.DB, log *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: log,
		db:     db,
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	app.jwtService = jwtService

	app.userStore = postgres.NewUserStore(db, log)
	app.taskStore = postgres.NewTaskStore(db, log)
	app.ledgerStore = postgres.NewLedgerStore(db, log)
	app.catalogStore = postgres.NewCatalogStore(db, log)
	app.shopStore = postgres.NewShopStore(db, log)
	app.snapshotStore = postgres.NewSnapshotStore(db, log)
	app.notificationStore = postgres.NewNotificationStore(db, log)
	app.correctionStore = postgres.NewCorrectionStore(db, log)

	notifier := service.NewStoreNotifier(app.notificationStore, log)
	verifier := auth.NewBcryptVerifier()

	app.userService, err = service.NewUserService(
		app.userStore, app.taskStore, jwtService, verifier, verifier, log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	app.taskService, err = service.NewTaskService(
		db, app.taskStore, app.userStore, app.ledgerStore, notifier, log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.focusService, err = service.NewFocusService(
		db, app.taskStore, app.correctionStore, notifier, log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create focus service: %w", err)
	}

	app.queueService, err = service.NewQueueService(app.taskStore, app.userStore, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue service: %w", err)
	}

	app.walletService, err = service.NewWalletService(db, app.userStore, app.ledgerStore, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet service: %w", err)
	}

	app.shopService, err = service.NewShopService(
		db, app.userStore, app.shopStore, app.ledgerStore, notifier, log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create shop service: %w", err)
	}

	app.rolloverService, err = service.NewRolloverService(
		db, app.userStore, app.taskStore, app.ledgerStore, app.snapshotStore, notifier, log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rollover service: %w", err)
	}

	app.calculatorService, err = service.NewCalculatorService(app.catalogStore, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create calculator service: %w", err)
	}

	app.maintenanceService, err = service.NewMaintenanceService(
		db, app.taskStore, app.userStore, app.notificationStore, notifier, log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create maintenance service: %w", err)
	}

	app.notificationService, err = service.NewNotificationService(app.notificationStore, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification service: %w", err)
	}

	return app, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Failed to close database connection", "error", err)
		}
	}
}
