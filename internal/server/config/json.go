package config

import (
	"encoding/json"
	"os"
	"time"

	"docvault/internal/flagx"
)

// JsonConfig is the DTO for the optional JSON config file. Durations are
// given in minutes (tokens) and seconds (blob/presign), matching the flags.
type JsonConfig struct {
	EndpointAddr              string   `json:"endpoint_addr"`
	DatabaseDSN               string   `json:"database_dsn"`
	DatabasePoolSize          int      `json:"database_pool_size"`
	SecretKey                 string   `json:"secret_key"`
	AccessTokenExpireMinutes  int      `json:"access_token_expire_minutes"`
	RefreshTokenExpireMinutes int      `json:"refresh_token_expire_minutes"`
	S3AccessKey               string   `json:"s3_access_key"`
	S3SecretKey               string   `json:"s3_secret_key"`
	S3Bucket                  string   `json:"s3_bucket"`
	S3Region                  string   `json:"s3_region"`
	S3BaseEndpoint            string   `json:"s3_base_endpoint"`
	BlobTimeoutSeconds        int      `json:"blob_timeout_seconds"`
	PresignTTLSeconds         int      `json:"presign_ttl_seconds"`
	MaxUploadSize             int64    `json:"max_upload_size"`
	AllowedExtensions         []string `json:"allowed_extensions"`
	MaxPageSize               int      `json:"max_page_size"`
}

// parseJson overlays values from the JSON file named by -c/-config, if any.
// Zero values in the file keep the current config.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.DatabasePoolSize > 0 {
		config.DatabasePoolSize = c.DatabasePoolSize
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenExpireMinutes > 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenExpireMinutes) * time.Minute
	}
	if c.RefreshTokenExpireMinutes > 0 {
		config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenExpireMinutes) * time.Minute
	}
	if c.S3AccessKey != "" {
		config.S3AccessKey = c.S3AccessKey
	}
	if c.S3SecretKey != "" {
		config.S3SecretKey = c.S3SecretKey
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.BlobTimeoutSeconds > 0 {
		config.BlobTimeout = time.Duration(c.BlobTimeoutSeconds) * time.Second
	}
	if c.PresignTTLSeconds > 0 {
		config.PresignTTL = time.Duration(c.PresignTTLSeconds) * time.Second
	}
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	if len(c.AllowedExtensions) > 0 {
		config.AllowedExtensions = c.AllowedExtensions
	}
	if c.MaxPageSize > 0 {
		config.MaxPageSize = c.MaxPageSize
	}
}
