// Package config builds the process configuration from environment
// variables so main stays lean. Only the orchestration surface is
// configurable; rail selection policy defaults live with the selector.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// ModernTreasury holds the US rail provider credentials.
type ModernTreasury struct {
	BaseURL        string
	OrganizationID string
	APIKey         string
}

// Rapyd holds the international rail provider credentials.
type Rapyd struct {
	BaseURL   string
	AccessKey string
	SecretKey string
}

// Circle holds the stablecoin bridge credentials.
type Circle struct {
	BaseURL string
	APIKey  string
}

// Redis configures the optional Redis-backed transfer store. An empty URL
// disables it.
type Redis struct {
	URL string
	TTL time.Duration
}

// Kafka configures the optional lifecycle event stream. Empty brokers
// disable it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Config is the full process configuration.
type Config struct {
	Server         Server
	ModernTreasury ModernTreasury
	Rapyd          Rapyd
	Circle         Circle
	Redis          Redis
	Kafka          Kafka

	// PostgresURL enables the Postgres transfer store when set.
	PostgresURL string

	// AccountsFile points at the JSON account book for the static account
	// resolver.
	AccountsFile string

	// KeyNamespace isolates idempotency keys between environments; staging
	// keys must never collide with production keys at a provider.
	KeyNamespace string

	// Chain is the bridge settlement chain.
	Chain string

	// FallbackOrder overrides the US push fallback chain, comma separated
	// (e.g. "rtp,fednow,ach,wire").
	FallbackOrder []string

	// CustodialAccounts maps destination countries to bridge redemption
	// accounts, comma separated pairs (e.g. "CA=acct_1,MX=acct_2").
	CustodialAccounts map[string]string

	ReconcileInterval time.Duration
}

// FromEnv builds the configuration from CROSSRAIL_* environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("CROSSRAIL_ADDR", ":8080"),
			JWTSigningKey: envOr("CROSSRAIL_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		ModernTreasury: ModernTreasury{
			BaseURL:        envOr("CROSSRAIL_MT_BASE_URL", "https://app.moderntreasury.com"),
			OrganizationID: os.Getenv("CROSSRAIL_MT_ORG_ID"),
			APIKey:         os.Getenv("CROSSRAIL_MT_API_KEY"),
		},
		Rapyd: Rapyd{
			BaseURL:   envOr("CROSSRAIL_RAPYD_BASE_URL", "https://sandboxapi.rapyd.net"),
			AccessKey: os.Getenv("CROSSRAIL_RAPYD_ACCESS_KEY"),
			SecretKey: os.Getenv("CROSSRAIL_RAPYD_SECRET_KEY"),
		},
		Circle: Circle{
			BaseURL: envOr("CROSSRAIL_CIRCLE_BASE_URL", "https://api-sandbox.circle.com"),
			APIKey:  os.Getenv("CROSSRAIL_CIRCLE_API_KEY"),
		},
		Redis: Redis{
			URL: os.Getenv("CROSSRAIL_REDIS_URL"),
			TTL: durationOr("CROSSRAIL_REDIS_TTL", 30*24*time.Hour),
		},
		Kafka: Kafka{
			Brokers: splitList(os.Getenv("CROSSRAIL_KAFKA_BROKERS")),
			Topic:   envOr("CROSSRAIL_KAFKA_TOPIC", "transfer-events"),
		},
		PostgresURL:       os.Getenv("CROSSRAIL_POSTGRES_URL"),
		AccountsFile:      os.Getenv("CROSSRAIL_ACCOUNTS_FILE"),
		KeyNamespace:      envOr("CROSSRAIL_KEY_NAMESPACE", "crossrail-dev"),
		Chain:             envOr("CROSSRAIL_CHAIN", "ETH"),
		FallbackOrder:     splitList(os.Getenv("CROSSRAIL_FALLBACK_ORDER")),
		CustodialAccounts: parsePairs(os.Getenv("CROSSRAIL_CUSTODIAL_ACCOUNTS")),
		ReconcileInterval: durationOr("CROSSRAIL_RECONCILE_INTERVAL", time.Minute),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePairs(v string) map[string]string {
	out := make(map[string]string)
	for _, part := range splitList(v) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return out
}
