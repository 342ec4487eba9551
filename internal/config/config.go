package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Store selects the instance storage backend.
const (
	StoreSurreal = "surreal"
	StoreMemory  = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	ListenAddr string
	Store      string

	DBUrl  string
	DBNs   string
	DBDb   string
	DBUser string
	DBPass string

	PythonBin          string
	ScriptTemplatePath string
	ScriptTimeout      time.Duration
	PacingInterval     time.Duration
}

// New loads configuration from environment variables. The caller is expected
// to have run godotenv.Load already (the server entrypoint does).
func New() *Config {
	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		Store:              getEnv("STORE", StoreSurreal),
		DBUrl:              os.Getenv("SURREAL_URL"),
		DBUser:             os.Getenv("SURREAL_USER"),
		DBPass:             os.Getenv("SURREAL_PASS"),
		DBNs:               os.Getenv("SURREAL_NS"),
		DBDb:               os.Getenv("SURREAL_DB"),
		PythonBin:          getEnv("PYTHON_BIN", "python3"),
		ScriptTemplatePath: os.Getenv("SCRIPT_TEMPLATE_PATH"),
		ScriptTimeout:      getEnvMillis("SCRIPT_TIMEOUT_MS", 60000),
		PacingInterval:     getEnvMillis("DISPATCH_PACING_MS", 1500),
	}

	if cfg.Store != StoreSurreal && cfg.Store != StoreMemory {
		log.Fatalf("STORE must be %q or %q, got %q", StoreSurreal, StoreMemory, cfg.Store)
	}

	if cfg.Store == StoreSurreal && (cfg.DBUrl == "" || cfg.DBNs == "" || cfg.DBDb == "") {
		log.Fatal("Required environment variables SURREAL_URL, SURREAL_NS, or SURREAL_DB are not set.")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvMillis(key string, fallback int) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(fallback) * time.Millisecond
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		log.Fatalf("%s must be a positive integer number of milliseconds, got %q", key, raw)
	}
	return time.Duration(ms) * time.Millisecond
}
