// Package config loads and validates the Moneta configuration file.
//
// The file is YAML. Structural validation happens against the embedded
// JSON schema, so the rules stay declarative and the error messages name
// the offending path; the handful of checks a schema cannot express live
// in Validate.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration.
type Config struct {
	Matrix   Matrix           `yaml:"matrix" json:"matrix"`
	Store    StoreConfig      `yaml:"store" json:"store"`
	Payments Payments         `yaml:"payments" json:"payments"`
	Admins   []string         `yaml:"admins,omitempty" json:"admins,omitempty"`
	Limits   map[string]Limit `yaml:"limits,omitempty" json:"limits,omitempty"`
	Confirm  Confirm          `yaml:"confirm,omitempty" json:"confirm,omitempty"`
	Logging  Logging          `yaml:"logging,omitempty" json:"logging,omitempty"`
}

// Matrix configures the chat transport.
type Matrix struct {
	Homeserver  string `yaml:"homeserver" json:"homeserver"`
	UserID      string `yaml:"userId" json:"userId"`
	AccessToken string `yaml:"accessToken,omitempty" json:"accessToken,omitempty"`
	// DeviceID pins the session so encryption keys survive restarts.
	DeviceID string `yaml:"deviceId,omitempty" json:"deviceId,omitempty"`
}

// StoreConfig selects and configures the key-value backend.
type StoreConfig struct {
	// Backend is "sqlite" or "redis".
	Backend string `yaml:"backend" json:"backend"`
	// Path is the SQLite database file (sqlite backend).
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// URL is the Redis connection URL (redis backend).
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"`
	// MasterKey is the hex-encoded 32-byte AES key for values encrypted
	// at rest. Usually supplied via MONETA_MASTER_KEY instead.
	MasterKey string `yaml:"masterKey,omitempty" json:"masterKey,omitempty"`
	// PruneInterval is how often expired keys are swept (sqlite backend).
	PruneInterval Duration `yaml:"pruneInterval,omitempty" json:"pruneInterval,omitempty"`
}

// Payments configures the upstream payments API.
type Payments struct {
	BaseURL string   `yaml:"baseUrl" json:"baseUrl"`
	APIKey  string   `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Limit is one named rate-limit rule.
type Limit struct {
	Window        Duration `yaml:"window" json:"window"`
	MaxPerUser    int      `yaml:"maxPerUser" json:"maxPerUser"`
	MaxPerGroup   int      `yaml:"maxPerGroup,omitempty" json:"maxPerGroup,omitempty"`
	BlockDuration Duration `yaml:"blockDuration,omitempty" json:"blockDuration,omitempty"`
}

// Confirm configures the payment confirmation window.
type Confirm struct {
	TTL Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`
}

// Logging configures the slog handler.
type Logging struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level,omitempty" json:"level,omitempty"`
	// Format is "text" or "json".
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// Load reads, parses, and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML config document and validates it. It is the
// canonical entry point for loading configurations.
func Parse(data []byte) (*Config, error) {
	// The schema validator speaks JSON values, so decode generically
	// first and re-feed the same bytes to the typed decode after the
	// structure checks out.
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	if err := validateSchema(generic); err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateSchema(doc any) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("moneta.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	schema, err := compiler.Compile("moneta.schema.json")
	if err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	if err := schema.Validate(normalizeYAML(doc)); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	return nil
}

// normalizeYAML converts yaml.v3's map[string]any / []any tree into the
// json-typed tree the validator expects. Durations appear as strings and
// are checked by pattern.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	case int:
		return json.Number(fmt.Sprint(t))
	case int64:
		return json.Number(fmt.Sprint(t))
	case float64:
		return json.Number(fmt.Sprint(t))
	default:
		return v
	}
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = "sqlite"
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		c.Store.Path = "moneta.db"
	}
	if c.Store.PruneInterval <= 0 {
		c.Store.PruneInterval = Duration(10 * time.Minute)
	}
	if c.Payments.Timeout <= 0 {
		c.Payments.Timeout = Duration(10 * time.Second)
	}
	if c.Confirm.TTL <= 0 {
		c.Confirm.TTL = Duration(300 * time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate applies the checks the schema cannot express.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite":
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("store.path must be set for the sqlite backend")
		}
	case "redis":
		if strings.TrimSpace(c.Store.URL) == "" {
			return fmt.Errorf("store.url must be set for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend must be \"sqlite\" or \"redis\", got %q", c.Store.Backend)
	}

	for _, admin := range c.Admins {
		if !strings.HasPrefix(admin, "@") {
			return fmt.Errorf("admins entry %q must be a Matrix user id starting with '@'", admin)
		}
	}

	for name, limit := range c.Limits {
		if limit.Window <= 0 {
			return fmt.Errorf("limits[%s]: window must be positive", name)
		}
		if limit.MaxPerUser <= 0 {
			return fmt.Errorf("limits[%s]: maxPerUser must be positive", name)
		}
	}

	return nil
}
