package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/timex"
	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the taskmate CLI.
//
// Fields:
//   - ServerURL: base URL of the taskmate HTTP API.
//   - TokenFile: where the session token is kept between invocations.
//   - Timeout: per-request HTTP timeout.
type Config struct {
	ServerURL string
	TokenFile string
	Timeout   time.Duration
}

// fileConfig is the on-disk shape; absent keys keep earlier values.
type fileConfig struct {
	ServerURL *string         `json:"server_url" yaml:"server_url"`
	TokenFile *string         `json:"token_file" yaml:"token_file"`
	Timeout   *timex.Duration `json:"timeout" yaml:"timeout"`
}

// userHomeDir is a test seam.
var userHomeDir = os.UserHomeDir

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Timeout = 30 * time.Second
	c.TokenFile = ".taskmate-token"
	if home, err := userHomeDir(); err == nil {
		c.TokenFile = filepath.Join(home, ".taskmate", "token")
	}
}

// LoadFile overlays values from a JSON or YAML file.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &fc)
	default:
		err = json.Unmarshal(raw, &fc)
	}
	if err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	if fc.ServerURL != nil {
		c.ServerURL = *fc.ServerURL
	}
	if fc.TokenFile != nil {
		c.TokenFile = *fc.TokenFile
	}
	if fc.Timeout != nil {
		c.Timeout = fc.Timeout.Duration
	}
	return nil
}
