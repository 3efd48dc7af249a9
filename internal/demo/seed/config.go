package seed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/querydesk/querydesk/internal/config"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	DSN                 string
	View                string
	ProductsPerSupplier int
	Reset               bool
	ConnectTimeout      time.Duration
	Seed                int64
}

func DefaultConfig() Config {
	return Config{
		DSN:                 "root:root@tcp(127.0.0.1:3307)/data_db",
		View:                "SUPPLIER_VIEW",
		ProductsPerSupplier: 4,
		Reset:               false,
		ConnectTimeout:      10 * time.Second,
		Seed:                time.Now().UTC().UnixNano(),
	}
}

// LoadConfigFromEnv shares QUERYDESK_DB_DSN and QUERYDESK_DB_VIEW with the
// API so the seeded view is the one being queried.
func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyString(lookup, "QUERYDESK_DB_DSN", &cfg.DSN); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDESK_DB_VIEW", &cfg.View); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYDESK_SEED_PRODUCTS_PER_SUPPLIER", &cfg.ProductsPerSupplier); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYDESK_SEED_RESET", &cfg.Reset); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDESK_SEED_CONNECT_TIMEOUT", &cfg.ConnectTimeout); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "QUERYDESK_SEED_RANDOM_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}

	if cfg.DSN == "" {
		return Config{}, fmt.Errorf("QUERYDESK_DB_DSN is required")
	}
	if !config.ValidIdentifier(cfg.View) {
		return Config{}, fmt.Errorf("invalid QUERYDESK_DB_VIEW: %q", cfg.View)
	}
	if cfg.ProductsPerSupplier <= 0 {
		return Config{}, fmt.Errorf("QUERYDESK_SEED_PRODUCTS_PER_SUPPLIER must be > 0")
	}
	if cfg.ConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("QUERYDESK_SEED_CONNECT_TIMEOUT must be > 0")
	}
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
