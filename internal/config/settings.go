package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Settings are the process-level values read once at startup. Everything has
// a default so the server boots with no environment at all, using mock
// adapters where keys are missing.
type Settings struct {
	Port            string
	MongoURI        string
	MongoDatabase   string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	JWTSecret       string
	ConfigStorePath string

	// Client-side tunables, exposed here so the demo client and the server
	// agree on protocol timing.
	PingInterval   time.Duration
	ReconnectDelay time.Duration
	MaxReconnects  int
}

// Load reads .env if present, then the environment, applying defaults with a
// log line per defaulted value.
func Load(logger *zap.Logger) Settings {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", zap.Error(err))
	}

	s := Settings{
		Port:            getEnv(logger, "PORT", "8080"),
		MongoURI:        getEnv(logger, "MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv(logger, "MONGODB_DATABASE", "leadpilot"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		JWTSecret:       getEnv(logger, "JWT_SECRET", "development-secret"),
		ConfigStorePath: getEnv(logger, "CONFIG_STORE_PATH", "leadpilot-config.json"),
		PingInterval:    getEnvDuration(logger, "PING_INTERVAL", 30*time.Second),
		ReconnectDelay:  getEnvDuration(logger, "RECONNECT_DELAY", 2*time.Second),
		MaxReconnects:   getEnvInt(logger, "MAX_RECONNECT_ATTEMPTS", 5),
	}
	return s
}

func getEnv(logger *zap.Logger, key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	logger.Info("Using default value", zap.String("key", key), zap.String("value", fallback))
	return fallback
}

func getEnvInt(logger *zap.Logger, key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
		logger.Warn("Ignoring invalid integer value", zap.String("key", key), zap.String("value", value))
	}
	return fallback
}

func getEnvDuration(logger *zap.Logger, key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		logger.Warn("Ignoring invalid duration value", zap.String("key", key), zap.String("value", value))
	}
	return fallback
}
