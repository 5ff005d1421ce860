package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.StoreDriver != StoreMongo || cfg.TokenTTL != 8*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Redis.Enabled || cfg.Login.MaxFailures != 5 || cfg.Login.Lockout != 15*time.Minute {
		t.Fatalf("unexpected redis/login defaults: %+v %+v", cfg.Redis, cfg.Login)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("unexpected idempotency ttl: %s", cfg.IdempotencyTTL)
	}
	if cfg.Bootstrap.Enabled() {
		t.Fatalf("bootstrap should be disabled without credentials")
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected development env by default")
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":               "s3cret",
		"STORE_DRIVER":             "Postgres",
		"POSTGRES_DSN":             "postgres://localhost/db",
		"TOKEN_TTL":                "1h",
		"REDIS_ENABLED":            "false",
		"BOOTSTRAP_ADMIN_EMAIL":    "root@example.com",
		"BOOTSTRAP_ADMIN_PASSWORD": "pw",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != StorePostgres || cfg.TokenTTL != time.Hour || cfg.Redis.Enabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !cfg.Bootstrap.Enabled() {
		t.Fatalf("expected bootstrap enabled")
	}
}

func TestLoadWith_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"unknown driver", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "sqlite"}, "STORE_DRIVER"},
		{"postgres without dsn", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "postgres"}, "POSTGRES_DSN"},
		{"bad duration", map[string]string{"JWT_SECRET": "x", "TOKEN_TTL": "soon"}, "TokenTTL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadWith(context.Background(), envconfig.MapLookuper(tc.env))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
