package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/taskmate/internal/flagx"
	"github.com/dmitrijs2005/taskmate/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Pointer fields
// distinguish "absent" from a zero value, so a file only overrides the
// keys it names.
type FileConfig struct {
	HTTPAddr          *string         `json:"http_addr" yaml:"http_addr"`
	DatabaseDSN       *string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey         *string         `json:"secret_key" yaml:"secret_key"`
	GoogleClientID    *string         `json:"google_client_id" yaml:"google_client_id"`
	CookieSecure      *bool           `json:"cookie_secure" yaml:"cookie_secure"`
	MaxBodyBytes      *int64          `json:"max_body_bytes" yaml:"max_body_bytes"`
	ShutdownTimeout   *timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          *string         `json:"log_level" yaml:"log_level"`
	LogFile           *string         `json:"log_file" yaml:"log_file"`
	TelemetryExporter *string         `json:"telemetry_exporter" yaml:"telemetry_exporter"`
	TelemetryEndpoint *string         `json:"telemetry_endpoint" yaml:"telemetry_endpoint"`
	S3AccessKey       *string         `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey       *string         `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Bucket          *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region          *string         `json:"s3_region" yaml:"s3_region"`
	S3Endpoint        *string         `json:"s3_endpoint" yaml:"s3_endpoint"`
}

// parseFile overlays the file named by -c/-config, if any. The decoder is
// picked by extension: .yaml and .yml are YAML, anything else JSON.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	fc, err := decodeFile(path, raw)
	if err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	fc.apply(config)
	return nil
}

func decodeFile(path string, raw []byte) (*FileConfig, error) {
	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, fc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(raw, fc); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (fc *FileConfig) apply(c *Config) {
	set(&c.HTTPAddr, fc.HTTPAddr)
	set(&c.DatabaseDSN, fc.DatabaseDSN)
	set(&c.SecretKey, fc.SecretKey)
	set(&c.GoogleClientID, fc.GoogleClientID)
	set(&c.CookieSecure, fc.CookieSecure)
	set(&c.MaxBodyBytes, fc.MaxBodyBytes)
	if fc.ShutdownTimeout != nil {
		c.ShutdownTimeout = fc.ShutdownTimeout.Duration
	}
	set(&c.LogLevel, fc.LogLevel)
	set(&c.LogFile, fc.LogFile)
	set(&c.TelemetryExporter, fc.TelemetryExporter)
	set(&c.TelemetryEndpoint, fc.TelemetryEndpoint)
	set(&c.S3AccessKey, fc.S3AccessKey)
	set(&c.S3SecretKey, fc.S3SecretKey)
	set(&c.S3Bucket, fc.S3Bucket)
	set(&c.S3Region, fc.S3Region)
	set(&c.S3Endpoint, fc.S3Endpoint)
}
