// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Store backend names accepted in StoreBackend.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendS3       = "s3"
)

// Config holds runtime settings for the botkeeper server.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP endpoint.
//   - ShutdownTimeout: graceful-shutdown budget for in-flight requests.
//   - StoreBackend: record-store backend ("file", "postgres", "redis", "s3").
//   - StoreFilePath: path of the JSON collection file (file backend).
//   - DatabaseDSN: PostgreSQL DSN (postgres backend, pgx driver).
//   - RedisAddr / RedisPassword / RedisDB / RedisKey: redis backend settings.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint / S3Key: object storage settings.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration: access-token lifetime.
//   - KafkaBrokers / KafkaTopic: optional record-change event stream.
type Config struct {
	EndpointAddr                string
	ShutdownTimeout             time.Duration
	StoreBackend                string
	StoreFilePath               string
	DatabaseDSN                 string
	RedisAddr                   string
	RedisPassword               string
	RedisDB                     int
	RedisKey                    string
	S3RootUser                  string
	S3RootPassword              string
	S3Bucket                    string
	S3Region                    string
	S3BaseEndpoint              string
	S3Key                       string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	KafkaBrokers                string
	KafkaTopic                  string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":3000"
	c.ShutdownTimeout = 10 * time.Second
	c.StoreBackend = BackendFile
	c.StoreFilePath = "users.json"
	c.DatabaseDSN = ""
	c.RedisAddr = "localhost:6379"
	c.RedisPassword = ""
	c.RedisDB = 0
	c.RedisKey = "botkeeper:users"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "botkeeper"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3Key = "users.json"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.KafkaBrokers = ""
	c.KafkaTopic = "botkeeper.records"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
