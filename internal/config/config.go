package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	MoodBackendSimulated = "simulated"
	MoodBackendLedger    = "ledger"

	SessionStoreSQLite = "sqlite"
	SessionStoreRedis  = "redis"

	defaultMoodContract = "0x1234567890123456789012345678901234567890"
)

type Config struct {
	// Storage
	PostgresDSN   string // empty disables the mood ledger
	RedisURL      string
	SessionDBPath string
	SessionStore  string // sqlite or redis
	MigrationsDir string

	// Wallet provider
	WalletRPCURL         string // empty means no provider is injected
	ProviderTimeout      time.Duration
	ProviderPollInterval time.Duration
	GasLimitHint         string

	// Mood contract
	MoodBackend         string
	MoodContractAddress string
	SimulatedDelay      time.Duration
	TxConfirmDelay      time.Duration

	// Verification. Strict mode checks the proof fields and binds each
	// nullifier to one address; the demo default accepts any payload.
	VerifyStrict          bool
	VerifyCredentialTypes []string
	NullifierTTL          time.Duration

	// Notifications
	NotifyWebhookURL string

	// Auth
	JWTSecret     string
	JWTExpiration time.Duration

	// Server
	APIPort            string
	RateLimitPerMinute int
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionDBPath: getEnv("SESSION_DB_PATH", "miniapp.db"),
		SessionStore:  strings.ToLower(getEnv("SESSION_STORE", SessionStoreSQLite)),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),

		WalletRPCURL:         getEnv("WALLET_RPC_URL", ""),
		ProviderTimeout:      time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 120)) * time.Second,
		ProviderPollInterval: time.Duration(getEnvInt("PROVIDER_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		GasLimitHint:         getEnv("GAS_LIMIT_HINT", "0x55555"),

		MoodBackend:         strings.ToLower(getEnv("MOOD_BACKEND", MoodBackendSimulated)),
		MoodContractAddress: getEnv("MOOD_CONTRACT_ADDRESS", defaultMoodContract),
		SimulatedDelay:      time.Duration(getEnvInt("SIMULATED_DELAY_MS", 1000)) * time.Millisecond,
		TxConfirmDelay:      time.Duration(getEnvInt("TX_CONFIRM_DELAY_MS", 3000)) * time.Millisecond,

		VerifyStrict:          getEnvBool("VERIFY_STRICT", false),
		VerifyCredentialTypes: parseList(getEnv("VERIFY_CREDENTIAL_TYPES", "orb,device")),
		NullifierTTL:          time.Duration(getEnvInt("NULLIFIER_TTL_HOURS", 24*30)) * time.Hour,

		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),

		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpiration: time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,

		APIPort:            getEnv("API_PORT", "3000"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
	}

	return cfg
}

// LedgerEnabled reports whether moods are read from and written to postgres.
func (c *Config) LedgerEnabled() bool {
	return c.MoodBackend == MoodBackendLedger && c.PostgresDSN != ""
}

func (c *Config) Validate(log *zap.Logger) {
	if c.WalletRPCURL == "" {
		log.Warn("WALLET_RPC_URL is not set, wallet operations will report a missing provider")
	}
	if c.JWTSecret == "change-me-in-production" {
		log.Warn("JWT_SECRET is default, change in production")
	}
	if c.MoodBackend == MoodBackendLedger && c.PostgresDSN == "" {
		log.Warn("MOOD_BACKEND=ledger requires POSTGRES_DSN, falling back to simulated moods")
	}
	if c.MoodBackend != MoodBackendLedger && c.MoodBackend != MoodBackendSimulated {
		log.Warn("unknown MOOD_BACKEND, using simulated", zap.String("backend", c.MoodBackend))
		c.MoodBackend = MoodBackendSimulated
	}
	if c.SessionStore != SessionStoreSQLite && c.SessionStore != SessionStoreRedis {
		log.Warn("unknown SESSION_STORE, using sqlite", zap.String("store", c.SessionStore))
		c.SessionStore = SessionStoreSQLite
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = 120 * time.Second
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var items []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			items = append(items, p)
		}
	}
	return items
}
