package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	LLMProviderOllama = "ollama"
	LLMProviderOpenAI = "openai"

	ArchiveBackendLocal = "local"
	ArchiveBackendS3    = "s3"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Auth          AuthConfig
	Database      DatabaseConfig
	LLM           LLMConfig
	History       HistoryConfig
	Archive       ArchiveConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address            string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSOrigins        []string
	RateLimitPerMinute int
}

// AuthConfig turns on API key checks. StaticKeys holds "key:client"
// entries separated by commas.
type AuthConfig struct {
	Required   bool
	StaticKeys string
}

// DatabaseConfig describes the MariaDB instance that owns the queried view.
type DatabaseConfig struct {
	DSN          string
	View         string
	QueryTimeout time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

type LLMConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// HistoryConfig enables the Postgres query log when DSN is non-empty.
type HistoryConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func (h HistoryConfig) Enabled() bool {
	return h.DSN != ""
}

type ArchiveConfig struct {
	Backend string
	Dir     string
	S3      S3Config
}

type S3Config struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("QUERYDESK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid QUERYDESK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "QUERYDESK_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDESK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDESK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDESK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyList(lookup, "QUERYDESK_CORS_ORIGINS", &cfg.HTTP.CORSOrigins); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYDESK_RATE_LIMIT_PER_MINUTE", &cfg.HTTP.RateLimitPerMinute); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_DB_DSN", &cfg.Database.DSN); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_DB_VIEW", &cfg.Database.View); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDESK_DB_QUERY_TIMEOUT", &cfg.Database.QueryTimeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYDESK_DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYDESK_DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_LLM_PROVIDER", &cfg.LLM.Provider); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_LLM_BASE_URL", &cfg.LLM.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_LLM_API_KEY", &cfg.LLM.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_LLM_MODEL", &cfg.LLM.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "QUERYDESK_LLM_TEMPERATURE", &cfg.LLM.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDESK_LLM_TIMEOUT", &cfg.LLM.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_HISTORY_DSN", &cfg.History.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYDESK_HISTORY_MAX_OPEN_CONNS", &cfg.History.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_ARCHIVE_BACKEND", &cfg.Archive.Backend); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_ARCHIVE_DIR", &cfg.Archive.Dir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_ARCHIVE_S3_ENDPOINT", &cfg.Archive.S3.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_ARCHIVE_S3_REGION", &cfg.Archive.S3.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_ARCHIVE_S3_BUCKET", &cfg.Archive.S3.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_ARCHIVE_S3_ACCESS_KEY", &cfg.Archive.S3.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_ARCHIVE_S3_SECRET_KEY", &cfg.Archive.S3.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYDESK_ARCHIVE_S3_USE_SSL", &cfg.Archive.S3.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_ARCHIVE_S3_PREFIX", &cfg.Archive.S3.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYDESK_ARCHIVE_S3_AUTO_CREATE_BUCKET", &cfg.Archive.S3.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYDESK_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYDESK_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "QUERYDESK_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if !identifierPattern.MatchString(c.Database.View) {
		return fmt.Errorf("invalid QUERYDESK_DB_VIEW: %q", c.Database.View)
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("invalid QUERYDESK_DB_QUERY_TIMEOUT: must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("invalid QUERYDESK_DB_MAX_IDLE_CONNS: must be >= 0")
	}
	switch c.LLM.Provider {
	case LLMProviderOllama, LLMProviderOpenAI:
	default:
		return fmt.Errorf("invalid QUERYDESK_LLM_PROVIDER: %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}
	if c.LLM.Provider == LLMProviderOpenAI && c.LLM.APIKey == "" {
		return fmt.Errorf("QUERYDESK_LLM_API_KEY is required for provider %q", c.LLM.Provider)
	}
	switch c.Archive.Backend {
	case ArchiveBackendLocal:
		if c.Archive.Dir == "" {
			return fmt.Errorf("archive dir is required for local backend")
		}
	case ArchiveBackendS3:
		if c.Archive.S3.Bucket == "" {
			return fmt.Errorf("archive bucket is required for s3 backend")
		}
	default:
		return fmt.Errorf("invalid QUERYDESK_ARCHIVE_BACKEND: %q", c.Archive.Backend)
	}
	if c.HTTP.RateLimitPerMinute < 0 {
		return fmt.Errorf("invalid QUERYDESK_RATE_LIMIT_PER_MINUTE: must be >= 0")
	}
	if c.Auth.Required && c.Auth.StaticKeys == "" {
		return fmt.Errorf("QUERYDESK_AUTH_STATIC_KEYS is required when QUERYDESK_AUTH_REQUIRED is true")
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "querydesk-api"},
		HTTP: HTTPConfig{
			Address:            ":8000",
			ReadTimeout:        5 * time.Second,
			WriteTimeout:       120 * time.Second,
			IdleTimeout:        60 * time.Second,
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 60,
		},
		Database: DatabaseConfig{
			DSN:          "root:root@tcp(127.0.0.1:3307)/data_db",
			View:         "SUPPLIER_VIEW",
			QueryTimeout: 30 * time.Second,
			MaxOpenConns: 10,
			MaxIdleConns: 0,
		},
		LLM: LLMConfig{
			Provider:    LLMProviderOllama,
			BaseURL:     "http://localhost:11434",
			Model:       "llama3",
			Temperature: 0,
			Timeout:     90 * time.Second,
		},
		History: HistoryConfig{
			MaxOpenConns:    5,
			MaxIdleConns:    5,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Archive: ArchiveConfig{
			Backend: ArchiveBackendLocal,
			Dir:     "./chats",
			S3: S3Config{
				Endpoint:         "localhost:9000",
				Region:           "us-east-1",
				Bucket:           "querydesk",
				AccessKeyID:      "minio",
				SecretAccessKey:  "miniostorage",
				AutoCreateBucket: true,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18000"
		cfg.HTTP.RateLimitPerMinute = 0
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Archive.S3.UseSSL = true
		cfg.Archive.S3.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

// ValidIdentifier reports whether name can be used as an unquoted SQL identifier.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	values := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	*dst = values
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
