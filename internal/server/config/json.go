package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/botkeeper/botkeeper/internal/flagx"
)

// duration allows parsing both string values such as "15m" and integer
// nanoseconds from JSON configuration files.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return &json.UnsupportedTypeError{}
	}
}

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It is an intermediate DTO used only for reading JSON
// configuration files; after unmarshalling, its fields are copied into the
// runtime Config struct.
type JsonConfig struct {
	EndpointAddr                string   `json:"endpoint_addr"`
	ShutdownTimeout             duration `json:"shutdown_timeout"`
	StoreBackend                string   `json:"store_backend"`
	StoreFilePath               string   `json:"store_file_path"`
	DatabaseDSN                 string   `json:"database_dsn"`
	RedisAddr                   string   `json:"redis_addr"`
	RedisPassword               string   `json:"redis_password"`
	RedisDB                     int      `json:"redis_db"`
	RedisKey                    string   `json:"redis_key"`
	S3RootUser                  string   `json:"s3_root_user"`
	S3RootPassword              string   `json:"s3_root_password"`
	S3Bucket                    string   `json:"s3_bucket"`
	S3Region                    string   `json:"s3_region"`
	S3BaseEndpoint              string   `json:"s3_base_endpoint"`
	S3Key                       string   `json:"s3_key"`
	SecretKey                   string   `json:"secret_key"`
	AccessTokenValidityDuration duration `json:"access_token_validity_duration"`
	KafkaBrokers                string   `json:"kafka_brokers"`
	KafkaTopic                  string   `json:"kafka_topic"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path is taken from the -c or -config command-line flags;
// if neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.StoreBackend != "" {
		config.StoreBackend = c.StoreBackend
	}
	if c.StoreFilePath != "" {
		config.StoreFilePath = c.StoreFilePath
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.RedisAddr != "" {
		config.RedisAddr = c.RedisAddr
	}
	if c.RedisPassword != "" {
		config.RedisPassword = c.RedisPassword
	}
	if c.RedisDB != 0 {
		config.RedisDB = c.RedisDB
	}
	if c.RedisKey != "" {
		config.RedisKey = c.RedisKey
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
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
	if c.S3Key != "" {
		config.S3Key = c.S3Key
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.KafkaBrokers != "" {
		config.KafkaBrokers = c.KafkaBrokers
	}
	if c.KafkaTopic != "" {
		config.KafkaTopic = c.KafkaTopic
	}
}
