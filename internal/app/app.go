package app

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/monmlabs/monm-server/internal/config"
	"github.com/monmlabs/monm-server/internal/db"
	"github.com/monmlabs/monm-server/internal/ledger"
	"github.com/monmlabs/monm-server/internal/repository"
	"github.com/monmlabs/monm-server/internal/service"
	"github.com/monmlabs/monm-server/internal/storage"
	"github.com/monmlabs/monm-server/internal/ws"
)

type App struct {
	Cfg                 *config.Config
	DB                  *sqlx.DB
	Hub                 *ws.Hub
	AuthService         *service.AuthService
	UserService         *service.UserService
	ConversationService *service.ConversationService
	MessageService      *service.MessageService
	MediaService        *service.MediaService
	PermissionService   *service.PermissionService
	ForwardService      *service.ForwardService
	LeakService         *service.LeakService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	conversationRepository := repository.NewConversationRepository(database)
	messageRepository := repository.NewMessageRepository(database)
	mediaRepository := repository.NewMediaRepository(database)
	permissionRepository := repository.NewPermissionRepository(database)
	traceRepository := repository.NewForwardTraceRepository(database)
	leakRepository := repository.NewLeakReportRepository(database)

	// Storage
	blobStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	// Ledger: real chain client when configured, otherwise a no-op.
	// The app runs identically either way; only the tx refs differ.
	var ledgerClient ledger.Client = ledger.Disabled{}
	if cfg.LedgerRPCURL != "" && cfg.LedgerSignerKey != "" {
		ledgerClient, err = ledger.NewEthereumClient(ledger.EthereumConfig{
			RPCURL:                        cfg.LedgerRPCURL,
			SignerKey:                     cfg.LedgerSignerKey,
			ChainID:                       cfg.LedgerChainID,
			MessageHashRegistryAddr:       cfg.MessageHashRegistryAddr,
			FileFingerprintRegistryAddr:   cfg.FileFingerprintRegistryAddr,
			KilledFingerprintRegistryAddr: cfg.KilledFingerprintRegistryAddr,
			ForwardTraceRegistryAddr:      cfg.ForwardTraceRegistryAddr,
			LeakEvidenceRegistryAddr:      cfg.LeakEvidenceRegistryAddr,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ledger client: %v", err)
		}
		slog.Info("ledger enabled", "chain_id", cfg.LedgerChainID)
	} else {
		slog.Info("ledger disabled")
	}

	// Live delivery hub
	hub := ws.NewHub()

	// Services
	authService := service.NewAuthService(userRepository, cfg.JWTSecret, cfg.JWTExpiry)
	userService := service.NewUserService(userRepository)
	conversationService := service.NewConversationService(conversationRepository)
	messageService := service.NewMessageService(
		messageRepository,
		conversationRepository,
		ledgerClient,
		cfg.LedgerTimeout,
		hub,
	)
	mediaService := service.NewMediaService(
		mediaRepository,
		messageRepository,
		conversationRepository,
		blobStorage,
		ledgerClient,
		cfg.LedgerTimeout,
		cfg.AppName,
		cfg.AppURL,
		cfg.MaxProtectedSize,
	)
	permissionService := service.NewPermissionService(permissionRepository, mediaRepository, messageRepository)
	forwardService := service.NewForwardService(
		messageRepository,
		conversationRepository,
		traceRepository,
		permissionService,
		ledgerClient,
		cfg.LedgerTimeout,
	)
	leakService := service.NewLeakService(leakRepository, mediaRepository, ledgerClient, cfg.LedgerTimeout)

	return &App{
		Cfg:                 cfg,
		DB:                  database,
		Hub:                 hub,
		AuthService:         authService,
		UserService:         userService,
		ConversationService: conversationService,
		MessageService:      messageService,
		MediaService:        mediaService,
		PermissionService:   permissionService,
		ForwardService:      forwardService,
		LeakService:         leakService,
	}, nil
}

func (a *App) Close() error {
	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
