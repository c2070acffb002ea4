package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "HTTP_HOST", "HTTP_PORT", "BACKEND_URL", "BACKEND_TIMEOUT", "DATABASE_DSN", "ALLOWED_ORIGINS", "SALE_QUANTITY_UNIT", "METRICS_ENABLED"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.HTTPPort != "8090" || cfg.BackendURL != "http://127.0.0.1:8081" || cfg.BackendTimeout != 30*time.Second {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.HTTPHost != "127.0.0.1" || cfg.SaleQuantityUnit != "sale_type" || !cfg.MetricsEnabled {
		t.Fatalf("defaults = %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestWildcardOriginRefused(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "*")
	if cfg := Load(); len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://127.0.0.1:5173" {
		t.Fatalf("AllowedOrigins = %v, want the UI defaults", cfg.AllowedOrigins)
	}

	t.Setenv("ALLOWED_ORIGINS", "app://pos,*")
	if cfg := Load(); len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "app://pos" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadOverridesAndFallbacks(t *testing.T) {
	t.Setenv("HTTP_PORT", "abc")
	t.Setenv("BACKEND_URL", "http://10.0.0.2:9000/")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, app://pos ,")
	t.Setenv("SALE_QUANTITY_UNIT", "base")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()
	if cfg.HTTPPort != "8090" {
		t.Fatalf("HTTPPort = %q, want fallback", cfg.HTTPPort)
	}
	if cfg.BackendURL != "http://10.0.0.2:9000" || cfg.BackendTimeout != 5*time.Second {
		t.Fatalf("backend = %q %v", cfg.BackendURL, cfg.BackendTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "app://pos" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.SaleQuantityUnit != "base" || cfg.MetricsEnabled {
		t.Fatalf("cfg = %+v", cfg)
	}
}
