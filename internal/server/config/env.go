package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables, loading a .env
// file first when present. Unset variables keep their current values.
func parseEnv(config *Config) {
	// Missing .env is fine; real environment still applies.
	_ = godotenv.Load()

	setString(&config.EndpointAddr, "ENDPOINT_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setInt(&config.DatabasePoolSize, "DATABASE_POOL_SIZE")
	setString(&config.SecretKey, "SECRET_KEY")
	setMinutes(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_EXPIRE_MINUTES")
	setMinutes(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_EXPIRE_MINUTES")
	setString(&config.S3AccessKey, "S3_ACCESS_KEY")
	setString(&config.S3SecretKey, "S3_SECRET_KEY")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_ENDPOINT_URL")
	setSeconds(&config.BlobTimeout, "BLOB_TIMEOUT_SECONDS")
	setSeconds(&config.PresignTTL, "PRESIGNED_URL_EXPIRY_SECONDS")
	setInt64(&config.MaxUploadSize, "MAX_UPLOAD_SIZE")
	setInt(&config.MaxPageSize, "MAX_PAGE_SIZE")

	if v := os.Getenv("ALLOWED_EXTENSIONS"); v != "" {
		parts := strings.Split(v, ",")
		exts := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				exts = append(exts, p)
			}
		}
		config.AllowedExtensions = exts
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setMinutes(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(n) * time.Minute
		}
	}
}

func setSeconds(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(n) * time.Second
		}
	}
}
