package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fathia/miniapp/internal/config"
	"github.com/fathia/miniapp/internal/db"
	"github.com/fathia/miniapp/internal/events"
	apphttp "github.com/fathia/miniapp/internal/http"
	"github.com/fathia/miniapp/internal/http/dto"
	"github.com/fathia/miniapp/internal/http/handlers"
	"github.com/fathia/miniapp/internal/middleware"
	"github.com/fathia/miniapp/internal/mood"
	"github.com/fathia/miniapp/internal/provider"
	"github.com/fathia/miniapp/internal/repositories"
	"github.com/fathia/miniapp/internal/session"
	"github.com/fathia/miniapp/internal/txstatus"
	"github.com/fathia/miniapp/internal/verify"
	"github.com/fathia/miniapp/internal/wallet"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is optional: without it events stay in-process and rate
	// limiting is off.
	var (
		publisher  events.Publisher
		subscriber events.Subscriber
		nullifiers verify.NullifierStore
	)
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Warn("redis unavailable, using in-process events", zap.Error(err))
		rdb = nil
		bus := events.NewLocalBus()
		publisher, subscriber = bus, bus
		nullifiers = verify.NewMemoryNullifierStore()
	} else {
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, log)
		subscriber = events.NewRedisSubscriber(rdb, log)
		nullifiers = verify.NewRedisNullifierStore(rdb, cfg.NullifierTTL)
	}

	// Session slot
	store, closeStore, err := openSessionStore(ctx, cfg, rdb, log)
	if err != nil {
		log.Fatal("failed to open session store", zap.Error(err))
	}
	defer closeStore()

	sessions := session.NewService(store, log)
	if err := sessions.Restore(ctx); err != nil {
		log.Warn("starting signed out", zap.Error(err))
	}

	// Wallet provider
	var prov wallet.Provider
	if cfg.WalletRPCURL != "" {
		p, err := provider.Dial(ctx, cfg.WalletRPCURL, provider.Options{PollInterval: cfg.ProviderPollInterval}, log)
		if err != nil {
			log.Error("failed to dial wallet provider", zap.String("url", cfg.WalletRPCURL), zap.Error(err))
		} else {
			defer p.Close()
			prov = p
		}
	}

	notifier := wallet.MultiNotifier{
		wallet.NewLogNotifier(log),
		wallet.NewEventNotifier(publisher, log),
	}
	manager := wallet.NewManager(prov, notifier, wallet.Options{
		Timeout:      cfg.ProviderTimeout,
		GasLimitHint: cfg.GasLimitHint,
	}, log)
	defer manager.Close()

	// Subscribe before Restore so a wallet already authorized on load is
	// linked to the user too.
	sessCh := make(chan wallet.Session, 8)
	sessSub := manager.SubscribeSession(sessCh)
	defer sessSub.Unsubscribe()
	go session.FollowWallet(sessCh, sessSub, sessions, publisher, log)

	if err := manager.Restore(ctx); err != nil && !errors.Is(err, wallet.ErrNoProvider) {
		log.Warn("wallet restore failed", zap.Error(err))
	}

	observer := txstatus.NewObserver(
		txstatus.DelayConfirmer{Delay: cfg.TxConfirmDelay},
		publisher,
		func() uint64 { return manager.Session().ChainID },
		log,
	)
	defer observer.Close()

	// Moods
	registry := verify.NewRegistry()
	moodOpts := mood.Options{ContractAddress: cfg.MoodContractAddress, Delay: cfg.SimulatedDelay}

	var moods mood.Contract
	if cfg.LedgerEnabled() {
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, os.DirFS(cfg.MigrationsDir), log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		moods = mood.NewLedger(
			repositories.NewMoodRepo(pool), registry, repositories.NewAuditRepo(pool),
			manager, observer, notifier, moodOpts, log,
		)
	} else {
		moods = mood.NewSimulated(manager, observer, notifier, moodOpts, log)
	}
	log.Info("mood backend ready", zap.String("backend", cfg.MoodBackend), zap.Bool("ledger", cfg.LedgerEnabled()))

	verifier := verify.NewStub(nullifiers, registry, verify.Options{
		Strict:          cfg.VerifyStrict,
		CredentialTypes: cfg.VerifyCredentialTypes,
		Delay:           cfg.SimulatedDelay,
	}, log)

	// Handlers
	wsHub := handlers.NewWSHub(subscriber, log)
	wsHub.Start(ctx)

	h := apphttp.Handlers{
		Auth:    handlers.NewAuthHandler(sessions, cfg.JWTSecret, cfg.JWTExpiration, log),
		User:    handlers.NewUserHandler(sessions, manager, registry, log),
		Network: handlers.NewNetworkHandler(),
		Wallet:  handlers.NewWalletHandler(manager, observer, log),
		Mood:    handlers.NewMoodHandler(moods, log),
		Verify:  handlers.NewVerifyHandler(verifier, registry, moods, manager, log),
		Tx:      handlers.NewTxHandler(observer, moods),
		WS:      wsHub,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			reqID, _ := c.Locals(middleware.CtxRequestID).(string)
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: reqID})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, sessions, h)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func openSessionStore(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *zap.Logger) (session.Store, func(), error) {
	if cfg.SessionStore == config.SessionStoreRedis {
		if rdb != nil {
			return session.NewRedisStore(rdb), func() {}, nil
		}
		log.Warn("SESSION_STORE=redis but redis is unavailable, using sqlite")
	}

	sqlDB, err := db.OpenSQLite(ctx, cfg.SessionDBPath, log)
	if err != nil {
		return nil, nil, err
	}
	store, err := session.NewSQLiteStore(ctx, sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	return store, func() { sqlDB.Close() }, nil
}
