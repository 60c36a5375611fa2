package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.HTTP.Port != "8080" {
		t.Fatalf("HTTP.Port = %q, want 8080", cfg.HTTP.Port)
	}
	if cfg.Store.Driver != StoreMemory {
		t.Fatalf("Store.Driver = %q, want %q", cfg.Store.Driver, StoreMemory)
	}
	if cfg.Pricing.TaxRate.String() != "0.08" || cfg.Pricing.SplitTolerance.String() != "0.01" {
		t.Fatalf("Pricing = %+v", cfg.Pricing)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Fatalf("TokenTTL = %v, want 12h", cfg.Auth.TokenTTL)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "*" {
		t.Fatalf("CORSOrigins = %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.Events.Mirror != MirrorNone || cfg.Events.MailboxSize != 256 {
		t.Fatalf("Events = %+v", cfg.Events)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("FLOOR_DSN", "postgres://floor@localhost/floor")
	t.Setenv("TAX_RATE", "0.1")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("EVENT_MIRROR", "redis")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Store.Driver != StorePostgres {
		t.Fatalf("Store.Driver = %q", cfg.Store.Driver)
	}
	if cfg.Pricing.TaxRate.String() != "0.1" {
		t.Fatalf("TaxRate = %s, want 0.1", cfg.Pricing.TaxRate)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v", cfg.HTTP.CORSOrigins)
	}
	if got := cfg.Redis.Addr(); got != "localhost:6379" {
		t.Fatalf("Redis.Addr() = %q", got)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"postgres without dsn", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "sqlite"}},
		{"redis mirror without redis", map[string]string{"JWT_SECRET": "x", "EVENT_MIRROR": "redis"}},
		{"negative tax", map[string]string{"JWT_SECRET": "x", "TAX_RATE": "-0.1"}},
		{"admin email without password", map[string]string{"JWT_SECRET": "x", "ADMIN_EMAIL": "a@b.co", "ADMIN_PASSWORD": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Parse(); err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
		})
	}
}
