package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/taskmate/internal/flagx"
)

var serverFlags = []string{
	"-a", "-d", "-s", "-google-client-id", "-cookie-secure", "-max-body",
	"-shutdown-timeout", "-log-level", "-log-file", "-telemetry", "-telemetry-endpoint",
	"-s3-access-key", "-s3-secret-key", "-b", "-g", "-e",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string                  HTTP bind address (e.g. ":8080")
//	-d string                  PostgreSQL DSN or "memory"
//	-s string                  token secret key
//	-google-client-id string   Google OAuth client id
//	-cookie-secure             mark the session cookie Secure
//	-max-body int              request body limit, bytes
//	-shutdown-timeout duration graceful shutdown timeout
//	-log-level string          debug, info, warn or error
//	-log-file string           rotate logs into this file
//	-telemetry string          none, stdout or otlp
//	-telemetry-endpoint string OTLP HTTP endpoint
//	-s3-access-key string      S3 access key
//	-s3-secret-key string      S3 secret key
//	-b string                  S3 bucket for snapshot archives
//	-g string                  S3 region
//	-e string                  S3 endpoint (e.g. "http://127.0.0.1:9000/")
//
// os.Args is filtered with flagx.FilterArgs first so other layers' flags
// (such as -c) do not collide.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("taskmate-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN or \"memory\"")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.GoogleClientID, "google-client-id", config.GoogleClientID, "Google OAuth client id")
	fs.BoolVar(&config.CookieSecure, "cookie-secure", config.CookieSecure, "mark the session cookie Secure")
	fs.Int64Var(&config.MaxBodyBytes, "max-body", config.MaxBodyBytes, "request body limit in bytes")
	fs.DurationVar(&config.ShutdownTimeout, "shutdown-timeout", config.ShutdownTimeout, "graceful shutdown timeout")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "log-file", config.LogFile, "log file")
	fs.StringVar(&config.TelemetryExporter, "telemetry", config.TelemetryExporter, "telemetry exporter")
	fs.StringVar(&config.TelemetryEndpoint, "telemetry-endpoint", config.TelemetryEndpoint, "OTLP endpoint")
	fs.StringVar(&config.S3AccessKey, "s3-access-key", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "s3-secret-key", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3Endpoint, "e", config.S3Endpoint, "S3 endpoint")

	return fs.Parse(args)
}
