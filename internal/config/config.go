package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends selectable through SESSION_STORE.
const (
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the listen address. The portal acts for whoever is signed
	// in, so it binds to loopback unless told otherwise.
	ServerHost string
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string
	// LogFile enables a rotating JSON log file next to the console output.
	LogFile string

	BackendURL string
	// BackendTimeout bounds every outbound request. Zero means no client-side timeout.
	BackendTimeout time.Duration

	SessionStore  string
	SessionFile   string
	SessionPrefix string
	RedisURL      string

	// AllowedOrigins lists the foreign origins allowed to call the API and open
	// the stream. Empty means same-origin only.
	AllowedOrigins []string
	// AllowedHosts restricts the Host header. Defaults to the loopback names on
	// ServerPort; "*" disables the check.
	AllowedHosts []string

	// StaticDir serves the browser shell when set.
	StaticDir string

	NotificationPollInterval time.Duration
	LoginRatePerMinute       int
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load()

	port := getEnv("SERVER_PORT", "3000")
	return &Config{
		ServerHost:               getEnv("SERVER_HOST", "127.0.0.1"),
		ServerPort:               port,
		GinMode:                  getEnv("GIN_MODE", "debug"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		LogFormat:                getEnv("LOG_FORMAT", "pretty"),
		LogFile:                  getEnv("LOG_FILE", ""),
		BackendURL:               strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000/api"), "/"),
		BackendTimeout:           time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 0)) * time.Second,
		SessionStore:             getEnv("SESSION_STORE", SessionStoreFile),
		SessionFile:              getEnv("SESSION_FILE", defaultSessionFile()),
		SessionPrefix:            getEnv("SESSION_PREFIX", "portal"),
		RedisURL:                 getEnv("REDIS_URL", "redis://localhost:6379/0"),
		AllowedOrigins:           parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		AllowedHosts:             parseHosts(getEnv("ALLOWED_HOSTS", ""), port),
		StaticDir:                getEnv("STATIC_DIR", ""),
		NotificationPollInterval: time.Duration(getEnvInt("NOTIFICATION_POLL_SECONDS", 60)) * time.Second,
		LoginRatePerMinute:       getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// defaultSessionFile places the session next to the user's other config files,
// falling back to the working directory.
func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".portal-session.json"
	}
	return dir + string(os.PathSeparator) + "learning-portal" + string(os.PathSeparator) + "session.json"
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ServerHost, c.ServerPort)
}

// parseHosts splits ALLOWED_HOSTS, defaulting to the loopback names on port.
func parseHosts(raw, port string) []string {
	switch strings.TrimSpace(raw) {
	case "":
		return []string{"localhost:" + port, "127.0.0.1:" + port, "[::1]:" + port}
	case "*":
		return nil
	}
	return parseOrigins(raw)
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
