package http

import (
	"time"

	"github.com/fathia/miniapp/internal/config"
	"github.com/fathia/miniapp/internal/http/handlers"
	"github.com/fathia/miniapp/internal/metrics"
	"github.com/fathia/miniapp/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
	Network *handlers.NetworkHandler
	Wallet  *handlers.WalletHandler
	Mood    *handlers.MoodHandler
	Verify  *handlers.VerifyHandler
	Tx      *handlers.TxHandler
	WS      *handlers.WSHub
}

// SetupRouter mounts every route. rdb may be nil, which disables rate
// limiting.
func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	sessions middleware.SessionLookup,
	h Handlers,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))
	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	authMW := middleware.AuthMiddleware(cfg.JWTSecret, sessions, log)

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/signin", h.Auth.SignIn)
	api.Post("/auth/signup", h.Auth.SignUp)

	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute, log))

	api.Get("/networks", h.Network.GetNetworks)
	api.Get("/moods/labels", h.Mood.GetLabels)

	protected := api.Group("", authMW)

	protected.Post("/auth/signout", h.Auth.SignOut)
	protected.Get("/me", h.User.GetMe)

	// Wallet
	protected.Get("/me/wallet", h.Wallet.GetWallet)
	protected.Post("/me/wallet", h.Wallet.Connect)
	protected.Delete("/me/wallet", h.Wallet.Disconnect)
	protected.Post("/me/wallet/network", h.Wallet.SwitchNetwork)
	protected.Post("/me/wallet/transactions", h.Wallet.SendTransaction)

	// Moods
	protected.Get("/moods/current", h.Mood.GetCurrent)
	protected.Post("/moods", h.Mood.SetMood)
	protected.Get("/moods/history", h.Mood.GetHistory)
	protected.Get("/moods/latest", h.Mood.GetLatest)

	// Verification
	protected.Post("/verify", h.Verify.Verify)
	protected.Get("/me/verification", h.Verify.GetStatus)

	// Last transaction
	protected.Get("/tx", h.Tx.GetCurrent)
	protected.Delete("/tx", h.Tx.Reset)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware(), authMW)
	app.Get("/ws", websocket.New(h.WS.HandleWS))
}
