package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppURL  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret string
	JWTExpiry time.Duration

	// Uploads
	UploadPath       string
	MaxUploadSize    int64 // hard ceiling for multipart uploads
	MaxProtectedSize int64 // ceiling for base64-embedded protected downloads

	// Storage ("local" or "s3")
	StorageDriver string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3Endpoint    string // Optional: for S3-compatible services (MinIO, R2, etc.)

	// Ledger (blockchain audit trail; disabled when signer key is empty)
	LedgerRPCURL                  string
	LedgerSignerKey               string
	LedgerChainID                 int64
	LedgerTimeout                 time.Duration
	MessageHashRegistryAddr       string
	FileFingerprintRegistryAddr   string
	KilledFingerprintRegistryAddr string
	ForwardTraceRegistryAddr      string
	LeakEvidenceRegistryAddr      string

	// Observability (optional)
	SentryDSN string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "MonM"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:  envRequired("APP_URL"), // Required: public base URL, embedded in protected-download artifacts
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/monm.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret: envRequired("JWT_SECRET"),
		JWTExpiry: envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days

		// Uploads
		UploadPath:       envString("UPLOAD_PATH", "./data/uploads"),
		MaxUploadSize:    envInt64("MAX_UPLOAD_SIZE", 25<<20),   // 25 MiB
		MaxProtectedSize: envInt64("MAX_PROTECTED_SIZE", 8<<20), // 8 MiB raw, before base64

		// Storage
		StorageDriver: envString("STORAGE_DRIVER", "local"),
		S3Region:      envString("S3_REGION", ""),
		S3Bucket:      envString("S3_BUCKET", ""),
		S3AccessKey:   envString("S3_ACCESS_KEY", ""),
		S3SecretKey:   envString("S3_SECRET_KEY", ""),
		S3Endpoint:    envString("S3_ENDPOINT", ""),

		// Ledger
		LedgerRPCURL:                  envString("LEDGER_RPC_URL", ""),
		LedgerSignerKey:               envString("LEDGER_SIGNER_PRIVATE_KEY", ""),
		LedgerChainID:                 envInt64("LEDGER_CHAIN_ID", 80002), // Polygon Amoy
		LedgerTimeout:                 envDuration("LEDGER_TIMEOUT", 30*time.Second),
		MessageHashRegistryAddr:       envString("LEDGER_MESSAGE_HASH_REGISTRY", ""),
		FileFingerprintRegistryAddr:   envString("LEDGER_FILE_FINGERPRINT_REGISTRY", ""),
		KilledFingerprintRegistryAddr: envString("LEDGER_KILLED_FINGERPRINT_REGISTRY", ""),
		ForwardTraceRegistryAddr:      envString("LEDGER_FORWARD_TRACE_REGISTRY", ""),
		LeakEvidenceRegistryAddr:      envString("LEDGER_LEAK_EVIDENCE_REGISTRY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production
// deployments. Development allows fallback modes for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.StorageDriver == "s3" && (cfg.S3Bucket == "" || cfg.S3Region == "") {
		slog.Error("production S3 storage requires S3_BUCKET and S3_REGION")
		os.Exit(1)
	}
	if cfg.LedgerSignerKey != "" && cfg.LedgerRPCURL == "" {
		slog.Error("LEDGER_SIGNER_PRIVATE_KEY set but LEDGER_RPC_URL missing")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
