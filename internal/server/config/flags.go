package config

import (
	"flag"
	"os"
	"time"

	"github.com/botkeeper/botkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-k string   store backend: file, postgres, redis or s3
//	-f string   JSON collection file path (file backend)
//	-d string   PostgreSQL DSN
//	-r string   redis address
//	-q string   redis password
//	-n int      redis database number
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-x string   Kafka brokers, comma-separated (empty disables events)
//	-y string   Kafka topic for record-change events
//
// The function filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. The token
// validity flag is accepted as integer minutes and converted to a
// time.Duration value.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-k", "-f", "-d", "-r", "-q", "-n",
		"-u", "-p", "-b", "-g", "-e", "-s", "-t", "-x", "-y",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.StoreBackend, "k", config.StoreBackend, "record store backend")
	fs.StringVar(&config.StoreFilePath, "f", config.StoreFilePath, "collection file path")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.RedisPassword, "q", config.RedisPassword, "redis password")
	fs.IntVar(&config.RedisDB, "n", config.RedisDB, "redis database number")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.KafkaBrokers, "x", config.KafkaBrokers, "kafka brokers (comma-separated)")
	fs.StringVar(&config.KafkaTopic, "y", config.KafkaTopic, "kafka topic")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
