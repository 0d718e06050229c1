package infra

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends selectable through STORE_BACKEND.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	LogLevel      string
	Port          string
	PublicBaseURL string

	StoreBackend string
	DataDir      string
	DatabaseURL  string
	SQLitePath   string

	JWTSecret             string
	TokenTTL              time.Duration
	AdminRegistrationCode string
	RolePolicyFile        string

	GeoIPDBPath     string
	AllowedOrigins  []string
	RateLimitPerMin int
	DefaultLocale   string
	TrustProxy      bool

	MirrorTimeout        time.Duration
	FormanceStackURL     string
	FormanceClientID     string
	FormanceClientSecret string
	FormanceLedger       string
	ContractEndpointURL  string
	ContractAPIKey       string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	var errs []error
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		LogLevel:              os.Getenv("LOG_LEVEL"),
		Port:                  port,
		PublicBaseURL:         strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		StoreBackend:          strings.ToLower(getEnv("STORE_BACKEND", BackendFile)),
		DataDir:               getEnv("DATA_DIR", "data"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SQLitePath:            getEnv("SQLITE_PATH", "data/lifelink.db"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		TokenTTL:              getEnvDuration("TOKEN_TTL", 24*time.Hour, &errs),
		AdminRegistrationCode: os.Getenv("ADMIN_REGISTRATION_CODE"),
		RolePolicyFile:        os.Getenv("ROLE_POLICY_FILE"),
		GeoIPDBPath:           os.Getenv("GEOIP_DB_PATH"),
		AllowedOrigins:        splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RateLimitPerMin:       getEnvInt("RATE_LIMIT_PER_MINUTE", 30, &errs),
		DefaultLocale:         getEnv("DEFAULT_LOCALE", "en"),
		TrustProxy:            getEnvBool("TRUST_PROXY_HEADERS", false, &errs),
		MirrorTimeout:         getEnvDuration("MIRROR_TIMEOUT", 30*time.Second, &errs),
		FormanceStackURL:      os.Getenv("FORMANCE_STACK_URL"),
		FormanceClientID:      os.Getenv("FORMANCE_CLIENT_ID"),
		FormanceClientSecret:  os.Getenv("FORMANCE_CLIENT_SECRET"),
		FormanceLedger:        getEnv("FORMANCE_LEDGER", "lifelink"),
		ContractEndpointURL:   os.Getenv("CONTRACT_ENDPOINT_URL"),
		ContractAPIKey:        os.Getenv("CONTRACT_API_KEY"),
		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15, &errs)),
		HTTPWriteTimeout:      time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60, &errs)),
		HTTPIdleTimeout:       time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60, &errs)),
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	}
	switch cfg.StoreBackend {
	case BackendFile, BackendMemory, BackendSQLite:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of file, memory, postgres, sqlite", cfg.StoreBackend))
	}
	if u, err := url.Parse(cfg.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL %q must be an absolute URL", cfg.PublicBaseURL))
	}
	if cfg.ContractEndpointURL != "" {
		if u, err := url.Parse(cfg.ContractEndpointURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("CONTRACT_ENDPOINT_URL %q must be an absolute URL", cfg.ContractEndpointURL))
		}
	}
	if cfg.FormanceStackURL != "" && (cfg.FormanceClientID == "" || cfg.FormanceClientSecret == "") {
		errs = append(errs, fmt.Errorf("FORMANCE_CLIENT_ID and FORMANCE_CLIENT_SECRET are required with FORMANCE_STACK_URL"))
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive"))
	}
	if cfg.MirrorTimeout <= 0 {
		errs = append(errs, fmt.Errorf("MIRROR_TIMEOUT must be positive"))
	}
	if cfg.RateLimitPerMin < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MirrorEnabled reports whether any external ledger is configured.
func (c *Config) MirrorEnabled() bool {
	return c.FormanceStackURL != "" || c.ContractEndpointURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return fallback
	}
	return i
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
