package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if cfg.EndpointAddr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.EndpointAddr)
	}
	if cfg.MaxUploadSize != 100<<20 {
		t.Fatalf("unexpected max upload size: %d", cfg.MaxUploadSize)
	}
	if cfg.PresignTTL != time.Hour {
		t.Fatalf("unexpected presign ttl: %v", cfg.PresignTTL)
	}
	if cfg.MaxPageSize != 100 {
		t.Fatalf("unexpected page ceiling: %d", cfg.MaxPageSize)
	}
}

func TestExtensionAllowed(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if !cfg.ExtensionAllowed("pdf") {
		t.Fatal("pdf must be allowed by default")
	}
	if cfg.ExtensionAllowed("exe") {
		t.Fatal("exe must not be allowed")
	}
	if cfg.ExtensionAllowed("") {
		t.Fatal("empty extension must not be allowed")
	}
}

func TestParseEnvOverlay(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	t.Setenv("DATABASE_DSN", "postgres://env/dsn")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("ALLOWED_EXTENSIONS", "pdf, TXT ,")
	t.Setenv("MAX_UPLOAD_SIZE", "1024")

	parseEnv(cfg)

	if cfg.DatabaseDSN != "postgres://env/dsn" {
		t.Fatalf("dsn not overlaid: %s", cfg.DatabaseDSN)
	}
	if cfg.AccessTokenValidityDuration != 5*time.Minute {
		t.Fatalf("token validity not overlaid: %v", cfg.AccessTokenValidityDuration)
	}
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[1] != "txt" {
		t.Fatalf("extensions not normalized: %v", cfg.AllowedExtensions)
	}
	if cfg.MaxUploadSize != 1024 {
		t.Fatalf("max upload size not overlaid: %d", cfg.MaxUploadSize)
	}
	// Untouched values keep their defaults.
	if cfg.EndpointAddr != ":8080" {
		t.Fatalf("addr must keep default: %s", cfg.EndpointAddr)
	}
}
