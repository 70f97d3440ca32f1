// Package config provides configuration management for go-numfeed.
package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/BurntSushi/toml"
)

var AppVersion = "-unset-" // will be set at build time

const (
	DefaultConfigFile  = "config.toml"
	DefaultNumbersFile = "numbers.txt"
	DefaultMessageFile = "msg.txt"
	DefaultCharset     = "utf-8"
	DefaultListenPort  = 8080
	DefaultFetchCount  = 1
)

// MainConfig holds the configuration for go-numfeed
type MainConfig struct {
	Port              int    `toml:"port"`
	DefaultFetchCount int    `toml:"default_fetch_count"`
	TestNumber        string `toml:"test_number"`

	// optional
	Charset     string `toml:"charset"`      // charset of the numbers and message files
	NumbersFile string `toml:"numbers_file"` // one number per line
	MessageFile string `toml:"message_file"` // first line is used
	Debug       bool   `toml:"debug"`        // log response bodies and access log
	LedgerDir   string `toml:"ledger_dir"`   // empty disables the ledger

	AppVersion string `toml:"-"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	return &MainConfig{
		Port:              DefaultListenPort,
		DefaultFetchCount: DefaultFetchCount,
		Charset:           DefaultCharset,
		NumbersFile:       DefaultNumbersFile,
		MessageFile:       DefaultMessageFile,
		AppVersion:        AppVersion,
	}
}

// requiredKeys must be present in every config file
var requiredKeys = []string{"port", "default_fetch_count", "test_number"}

// LoadConfig reads a TOML config file on top of the defaults.
// A missing or broken file, or one without a required key, is an error.
// Defaults only apply to the optional keys.
func LoadConfig(path string) (*MainConfig, error) {
	cfg := NewDefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	for _, key := range requiredKeys {
		if !md.IsDefined(key) {
			return nil, fmt.Errorf("failed to load config %s: missing required key '%s'", path, key)
		}
	}
	for _, key := range md.Undecoded() {
		log.Printf("[CONFIG]: Warning: unknown key '%s' in %s", key.String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values the server cannot run without
func (c *MainConfig) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", c.Port)
	}
	if c.DefaultFetchCount <= 0 {
		return fmt.Errorf("default_fetch_count must be positive, got %d", c.DefaultFetchCount)
	}
	return nil
}

// ListenAddr returns the address the web server binds to
func (c *MainConfig) ListenAddr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}
