package app

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Issuer string // issuer claim on tokens and the TOTP provisioning label

	JWTSecret     []byte // Required: HMAC key for session and challenge tokens (min 32 bytes)
	EncryptionKey []byte // Required: 32-byte AES key for MFA secrets at rest

	SessionTTL   time.Duration // session token and cookie lifetime (default: 24h)
	ChallengeTTL time.Duration // MFA challenge token lifetime (default: 5m)
	TOTPSkew     uint          // tolerated 30s steps either side of now (default: 1)

	LockoutThreshold int           // consecutive failures before lockout (default: 5)
	LockoutDuration  time.Duration // lockout window (default: 15m)

	DatabaseFile string // path to SQLite database file (default: ./nexus.db)
	UploadDir    string // document storage directory (default: ./uploads)

	BootstrapAdminUsername string // seeded admin username (default: admin)
	BootstrapAdminEmail    string // seeded admin email
	BootstrapAdminPassword string // seeded admin password; generated when empty

	Env                  string // Environment (dev, staging, prod) (default: dev)
	LogLevel             string // Log level (debug, info, warn, error) (default: info)
	LogFormat            string // Log format (json, text) (default: json)
	Port                 int    // HTTP server port (default: 8080)
	SecureCookies        bool   // Secure flag on the session cookie (default: true outside dev)
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration
}

// LoadConfig reads configuration from the environment, after loading a .env
// file when one exists alongside the binary.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Issuer:                 getEnvOrDefault("NEXUS_ISSUER", "PixelForge Nexus"),
		SessionTTL:             getEnvDurationOrDefault("SESSION_TTL", 24*time.Hour),
		ChallengeTTL:           getEnvDurationOrDefault("MFA_CHALLENGE_TTL", 5*time.Minute),
		TOTPSkew:               totpSkewFromEnv("MFA_WINDOW", 1),
		LockoutThreshold:       getEnvIntOrDefault("LOCKOUT_THRESHOLD", 5),
		LockoutDuration:        getEnvDurationOrDefault("LOCKOUT_DURATION", 15*time.Minute),
		DatabaseFile:           getEnvOrDefault("NEXUS_DATABASE_FILE", "nexus.db"),
		UploadDir:              getEnvOrDefault("NEXUS_UPLOAD_DIR", "uploads"),
		BootstrapAdminUsername: getEnvOrDefault("BOOTSTRAP_ADMIN_USERNAME", "admin"),
		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		Env:                    getEnvOrDefault("ENV", "dev"),
		LogLevel:               getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:              getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                   getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:    getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval:   getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	cfg.SecureCookies = getEnvBoolOrDefault("COOKIE_SECURE", cfg.Env != "dev")

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWTSecret = []byte(secret)

	key, err := parseKey(os.Getenv("MFA_ENCRYPTION_KEY"))
	if err != nil {
		return Config{}, fmt.Errorf("MFA_ENCRYPTION_KEY: %w", err)
	}
	cfg.EncryptionKey = key

	return cfg, nil
}

// parseKey accepts a 32-byte key as hex, base64 or raw text.
func parseKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, fmt.Errorf("value is required")
	}
	if b, err := hex.DecodeString(raw); err == nil && len(b) == 32 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil && len(b) == 32 {
		return b, nil
	}
	if len(raw) == 32 {
		return []byte(raw), nil
	}
	return nil, fmt.Errorf("must decode to exactly 32 bytes")
}

// totpSkewFromEnv clamps the tolerated TOTP step window to [0, 4]. A wide
// window makes stale codes usable, and a negative value converted to uint
// would accept almost anything.
func totpSkewFromEnv(key string, defaultValue int) uint {
	const maxSkew = 4
	v := getEnvIntOrDefault(key, defaultValue)
	if v < 0 {
		v = defaultValue
	}
	if v > maxSkew {
		v = maxSkew
	}
	return uint(v)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	// Integer values are taken as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	return defaultValue
}
