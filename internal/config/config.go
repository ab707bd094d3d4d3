package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Gateway keys are optional at startup so the
// service can boot without Midtrans configured; the token endpoint answers
// 500 until both keys are present.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	MidtransServerKey string // Midtrans server key (token creation, status checks)
	MidtransClientKey string // Midtrans client key (echoed to the Snap popup)
	MidtransProd      bool   // use the production gateway endpoints when true

	AdminPasswordHash string // bcrypt hash of the shared admin password
	SessionSecret     string // secret used to sign the admin session cookie

	StorageEndpoint  string // S3-compatible object storage endpoint
	StorageAccessKey string // object storage access key
	StorageSecretKey string // object storage secret key
	StorageBucket    string // bucket holding participant photos and proofs
	StorageUseSSL    bool   // connect to storage over TLS

	DraftTTL   time.Duration // lifetime of an in-progress wizard draft
	PendingTTL time.Duration // lifetime of an unpaid staged submission
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"), // empty allowed
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		MidtransServerKey: os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransClientKey: os.Getenv("MIDTRANS_CLIENT_KEY"),
		MidtransProd:      envBool("MIDTRANS_PRODUCTION", false),

		AdminPasswordHash: must("ADMIN_PASSWORD_HASH"),
		SessionSecret:     must("SESSION_SECRET"),

		StorageEndpoint:  must("STORAGE_ENDPOINT"),
		StorageAccessKey: must("STORAGE_ACCESS_KEY"),
		StorageSecretKey: must("STORAGE_SECRET_KEY"),
		StorageBucket:    envStr("STORAGE_BUCKET", "file-peserta"),
		StorageUseSSL:    envBool("STORAGE_USE_SSL", true),

		DraftTTL:   envDur("DRAFT_TTL", 24*time.Hour),
		PendingTTL: envDur("PENDING_TTL", 24*time.Hour),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
