package graphbase

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries the driver connection settings used to build an
// adaptor plus directory-level knobs. It maps a TOML config file of the
// form:
//
//	uri = "neo4j://localhost:7687"
//	username = "neo4j"
//	password = "secret"
//	database = "neo4j"
//	log_level = "info"
type Config struct {
	URI      string `toml:"uri"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns the settings used when the config file leaves
// them out.
func DefaultConfig() Config {
	return Config{
		URI:      "neo4j://localhost:7687",
		Database: "neo4j",
		LogLevel: "info",
	}
}

// LoadConfig reads a TOML config file, overlaying defaults for any key
// the file does not define.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("graphbase: load config: %w", err)
	}

	if meta.IsDefined("uri") {
		cfg.URI = strings.TrimSpace(raw.URI)
	}
	if meta.IsDefined("username") {
		cfg.Username = strings.TrimSpace(raw.Username)
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}
	if meta.IsDefined("database") {
		cfg.Database = strings.TrimSpace(raw.Database)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if cfg.URI == "" {
		return Config{}, fmt.Errorf("graphbase: config: uri cannot be empty")
	}
	return cfg, nil
}
