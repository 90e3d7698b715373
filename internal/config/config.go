// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package config loads sparqlgate configuration from defaults, an optional
// YAML file and SPARQLGATE_* environment variables.
package config

import (
	"errors"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sigil-dev/sparqlgate/internal/secrets"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. SPARQLGATE_GRAPHDB_BASE_URL.
const EnvPrefix = "SPARQLGATE"

const (
	xsdNamespace        = "http://www.w3.org/2001/XMLSchema#"
	rdfsLabel           = "<http://www.w3.org/2000/01/rdf-schema#label>"
	defaultDataDirParts = ".local/share/sparqlgate"
)

// Config is the top-level sparqlgate configuration.
type Config struct {
	GraphDB    GraphDBConfig    `mapstructure:"graphdb"`
	Validation ValidationConfig `mapstructure:"validation"`
	Tools      ToolsConfig      `mapstructure:"tools"`
	Networking NetworkingConfig `mapstructure:"networking"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GraphDBConfig locates the repository.
type GraphDBConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RepositoryID   string        `mapstructure:"repository_id"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	// AuthHeader is sent as the Authorization header. Use a keyring:// URI
	// to keep it out of the file.
	AuthHeader string `mapstructure:"auth_header"`
}

// ValidationConfig controls query validation.
type ValidationConfig struct {
	// Enabled is the default for API and CLI queries. Agent tools always validate.
	Enabled            bool     `mapstructure:"enabled"`
	ExcludedNamespaces []string `mapstructure:"excluded_namespaces"`
}

// ToolsConfig selects the agent tools.
type ToolsConfig struct {
	Autocomplete AutocompleteConfig `mapstructure:"autocomplete"`
	Retrieval    RetrievalConfig    `mapstructure:"retrieval"`
	Ontology     OntologyConfig     `mapstructure:"ontology"`
	Output       OutputConfig       `mapstructure:"output"`
	Timeout      time.Duration      `mapstructure:"timeout"`
}

type AutocompleteConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Limit        int    `mapstructure:"limit"`
	PropertyPath string `mapstructure:"property_path"`
}

type RetrievalConfig struct {
	ConnectorName string `mapstructure:"connector_name"`
	Limit         int    `mapstructure:"limit"`
}

// OntologyConfig sets the ontology_schema source: a CONSTRUCT query or a
// Turtle file, never both.
type OntologyConfig struct {
	Query string `mapstructure:"query"`
	File  string `mapstructure:"file"`
}

// OutputConfig bounds the combined size of tool outputs in one agent turn.
type OutputConfig struct {
	MaxTotal  int `mapstructure:"max_total"`
	MinSingle int `mapstructure:"min_single"`
}

// NetworkingConfig controls the HTTP listener.
type NetworkingConfig struct {
	Listen      string          `mapstructure:"listen"`
	CORSOrigins []string        `mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// StorageConfig selects the query log backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Metrics bool `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("graphdb.base_url", "http://localhost:7200")
	v.SetDefault("graphdb.repository_id", "")
	v.SetDefault("graphdb.connect_timeout", 2*time.Second)
	v.SetDefault("graphdb.read_timeout", 10*time.Second)
	v.SetDefault("graphdb.auth_header", "")
	v.SetDefault("validation.enabled", true)
	v.SetDefault("validation.excluded_namespaces", []string{xsdNamespace})
	v.SetDefault("tools.autocomplete.enabled", false)
	v.SetDefault("tools.autocomplete.limit", 10)
	v.SetDefault("tools.autocomplete.property_path", rdfsLabel)
	v.SetDefault("tools.retrieval.connector_name", "")
	v.SetDefault("tools.retrieval.limit", 10)
	v.SetDefault("tools.ontology.query", "")
	v.SetDefault("tools.ontology.file", "")
	v.SetDefault("tools.output.max_total", 256000)
	v.SetDefault("tools.output.min_single", 10000)
	v.SetDefault("tools.timeout", 30*time.Second)
	v.SetDefault("networking.listen", "127.0.0.1:8080")
	v.SetDefault("networking.cors_origins", []string{})
	v.SetDefault("networking.rate_limit.rps", 0)
	v.SetDefault("networking.rate_limit.burst", 20)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.data_dir", "~/"+defaultDataDirParts)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("telemetry.metrics", true)
}

// Load reads configuration from the given path (or defaults only when path
// is empty) with SPARQLGATE_ environment overrides. keyring:// values are
// resolved from the OS keyring.
func Load(path string) (*Config, error) {
	return LoadWithSecrets(path, secrets.NewKeyringStore())
}

// LoadWithSecrets is Load with an explicit secret store.
func LoadWithSecrets(path string, store secrets.Store) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound *os.PathError
			if errors.As(err, &notFound) {
				return nil, sigilerr.Wrapf(err, sigilerr.CodeConfigLoadReadFailure, "reading config %s", path)
			}
			return nil, sigilerr.Wrapf(err, sigilerr.CodeConfigParseInvalidFormat, "parsing config %s", path)
		}
	}

	if err := secrets.ResolveViperSecrets(v, store); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeConfigParseInvalidFormat, "unmarshalling config")
	}
	cfg.Storage.DataDir = expandHome(cfg.Storage.DataDir)
	cfg.Tools.Ontology.File = expandHome(cfg.Tools.Ontology.File)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, sigilerr.Wrap(errors.Join(errs...), sigilerr.CodeConfigValidateInvalidValue, "validating config")
	}
	return &cfg, nil
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// Validate checks the configuration for logical errors. It collects every
// problem rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, c.validateGraphDB()...)
	errs = append(errs, c.validateTools()...)
	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateLogging()...)
	return errs
}

func invalid(format string, args ...any) error {
	return sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func (c *Config) validateGraphDB() []error {
	var errs []error

	u, err := url.Parse(c.GraphDB.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, invalid("graphdb.base_url must be an absolute http(s) URL, got %q", c.GraphDB.BaseURL))
	}
	if c.GraphDB.RepositoryID == "" {
		errs = append(errs, invalid("graphdb.repository_id must not be empty"))
	}
	if c.GraphDB.ConnectTimeout <= 0 {
		errs = append(errs, invalid("graphdb.connect_timeout must be positive, got %s", c.GraphDB.ConnectTimeout))
	}
	if c.GraphDB.ReadTimeout <= 0 {
		errs = append(errs, invalid("graphdb.read_timeout must be positive, got %s", c.GraphDB.ReadTimeout))
	}
	if secrets.IsKeyringURI(c.GraphDB.AuthHeader) {
		errs = append(errs, invalid("graphdb.auth_header keyring URI was not resolved"))
	}
	return errs
}

func (c *Config) validateTools() []error {
	var errs []error
	t := c.Tools

	if t.Autocomplete.Enabled && t.Autocomplete.Limit < 1 {
		errs = append(errs, invalid("tools.autocomplete.limit must be at least 1, got %d", t.Autocomplete.Limit))
	}
	if t.Retrieval.ConnectorName != "" && t.Retrieval.Limit < 1 {
		errs = append(errs, invalid("tools.retrieval.limit must be at least 1, got %d", t.Retrieval.Limit))
	}
	if t.Ontology.Query != "" && t.Ontology.File != "" {
		errs = append(errs, invalid("tools.ontology.query and tools.ontology.file are mutually exclusive"))
	}
	if t.Output.MaxTotal <= 0 {
		errs = append(errs, invalid("tools.output.max_total must be greater than 0, got %d", t.Output.MaxTotal))
	}
	if t.Output.MinSingle <= 0 {
		errs = append(errs, invalid("tools.output.min_single must be greater than 0, got %d", t.Output.MinSingle))
	} else if t.Output.MaxTotal > 0 && t.Output.MinSingle > t.Output.MaxTotal {
		errs = append(errs, invalid("tools.output.min_single (%d) must not exceed tools.output.max_total (%d)",
			t.Output.MinSingle, t.Output.MaxTotal))
	}
	if t.Timeout <= 0 {
		errs = append(errs, invalid("tools.timeout must be positive, got %s", t.Timeout))
	}
	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, invalid("networking.listen must not be empty"))
	} else if _, portStr, err := net.SplitHostPort(c.Networking.Listen); err != nil {
		errs = append(errs, invalid("networking.listen must be a valid host:port address, got %q", c.Networking.Listen))
	} else if port, err := strconv.Atoi(portStr); err != nil || port < 1 || port > 65535 {
		errs = append(errs, invalid("networking.listen port must be between 1 and 65535, got %q", portStr))
	}

	rl := c.Networking.RateLimit
	if rl.RPS < 0 {
		errs = append(errs, invalid("networking.rate_limit.rps must not be negative, got %g", rl.RPS))
	}
	if rl.RPS > 0 && rl.Burst <= 0 {
		errs = append(errs, invalid("networking.rate_limit.burst must be positive when rps is set, got %d", rl.Burst))
	}
	return errs
}

// Backends lists the valid storage.backend values.
var Backends = []string{"sqlite", "memory"}

func (c *Config) validateStorage() []error {
	var errs []error
	if !slices.Contains(Backends, c.Storage.Backend) {
		errs = append(errs, invalid("storage.backend must be one of %v, got %q", Backends, c.Storage.Backend))
	}
	if c.Storage.Backend == "sqlite" && c.Storage.DataDir == "" {
		errs = append(errs, invalid("storage.data_dir must not be empty for the sqlite backend"))
	}
	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		errs = append(errs, invalid("logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}
	if !slices.Contains([]string{"text", "json"}, c.Logging.Format) {
		errs = append(errs, invalid("logging.format must be one of [text, json], got %q", c.Logging.Format))
	}
	return errs
}
