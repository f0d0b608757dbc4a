// Package config loads the backlogdb configuration.
//
// Values are layered, each layer overriding the previous one:
//
//  1. built-in defaults
//  2. a YAML file (see Load for how it is found)
//  3. environment variables (see envMappings)
//
// The result is validated with struct tags before it is returned.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	backlogdb "github.com/saulfrancisco-ruizacevedo/go-backlogdb"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/logging"
)

// DefaultConfigPaths lists where a config file is looked for when none is
// given. The first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/backlogdb/config.yaml",
	"/etc/backlogdb/config.yml",
}

// ConfigPathEnvVar names the environment variable holding a config file path.
const ConfigPathEnvVar = "BACKLOGDB_CONFIG"

// Config is the whole configuration.
type Config struct {
	Neo4j   Neo4jConfig   `koanf:"neo4j"`
	Logging LoggingConfig `koanf:"logging"`
	Auth    AuthConfig    `koanf:"auth"`
	MAL     MALConfig     `koanf:"mal"`
}

// Neo4jConfig locates the graph database.
type Neo4jConfig struct {
	URI      string `koanf:"uri" validate:"required,uri"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database" validate:"required"`
}

// Connection returns the settings in the form the store expects.
func (c Neo4jConfig) Connection() backlogdb.ConnectionConfig {
	return backlogdb.ConnectionConfig{
		URI:      c.URI,
		Username: c.Username,
		Password: c.Password,
		Database: c.Database,
	}
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Logging returns the settings in the form the logging package expects.
func (c LoggingConfig) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Level
	cfg.Format = c.Format
	cfg.Caller = c.Caller
	return cfg
}

// AuthConfig configures password hashing.
type AuthConfig struct {
	// BcryptRounds is the bcrypt cost. 0 selects bcrypt's default.
	BcryptRounds int `koanf:"bcrypt_rounds" validate:"eq=0|gte=4,lte=31"`
}

// MALConfig configures the MyAnimeList client.
type MALConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	MaxPages          int           `koanf:"max_pages" validate:"gte=1"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	BreakerThreshold  uint32        `koanf:"breaker_threshold" validate:"gte=1"`
	BreakerTimeout    time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Neo4j: Neo4jConfig{
			URI:      "neo4j://localhost:7687",
			Username: "neo4j",
			Database: "backlogger",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "json",
		},
		MAL: MALConfig{
			BaseURL:           "https://myanimelist.net",
			RequestsPerSecond: 1,
			MaxPages:          11,
			Timeout:           10 * time.Second,
			BreakerThreshold:  5,
			BreakerTimeout:    30 * time.Second,
		},
	}
}

// Load builds the configuration.
//
// Parameters:
//   - path: A config file to read. When empty, the file named by
//     BACKLOGDB_CONFIG is used, then the first of DefaultConfigPaths that
//     exists. Having no file at all is not an error; naming a missing one is.
//
// Returns:
//
//	The validated configuration, or an error naming the layer that failed.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings maps environment variables onto config keys. Variables not
// listed are ignored.
var envMappings = map[string]string{
	"neo4j_uri":      "neo4j.uri",
	"neo4j_username": "neo4j.username",
	"neo4j_password": "neo4j.password",
	"neo4j_database": "neo4j.database",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"bcrypt_rounds": "auth.bcrypt_rounds",

	"mal_base_url":            "mal.base_url",
	"mal_requests_per_second": "mal.requests_per_second",
	"mal_max_pages":           "mal.max_pages",
	"mal_timeout":             "mal.timeout",
	"mal_breaker_threshold":   "mal.breaker_threshold",
	"mal_breaker_timeout":     "mal.breaker_timeout",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints and reports all
// failures at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
