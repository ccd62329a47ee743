package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/vango-dev/vstore/internal/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the definition file.
	ConfigFileName = "vstore.yaml"

	// DefaultDriver is the storage driver used when none is configured.
	DefaultDriver = "memory"

	// DefaultPath is the default data location for the file and badger drivers.
	DefaultPath = ".vstore"

	// DefaultInspectorAddr is the default inspector listen address.
	DefaultInspectorAddr = ":7070"

	// DefaultCodec is the default field codec.
	DefaultCodec = "json"
)

// configFileNames are tried in order by Load and Exists.
var configFileNames = []string{ConfigFileName, "vstore.yml", "vstore.json"}

// Drivers lists the supported storage drivers.
var Drivers = []string{"memory", "file", "sqlite", "badger", "s3", "nats"}

// Config is a parsed definition file.
type Config struct {
	// Name identifies the store in logs and metrics.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Storage selects the durable backend.
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Persistence lists the fields mirrored to storage.
	Persistence *PersistenceConfig `yaml:"persistence,omitempty" json:"persistence,omitempty"`

	// History enables undo/redo.
	History *HistoryConfig `yaml:"history,omitempty" json:"history,omitempty"`

	// Fields declares the store fields in order.
	Fields []FieldConfig `yaml:"fields" json:"fields" validate:"required,min=1,dive"`

	// Inspector configures `vstore serve`.
	Inspector InspectorConfig `yaml:"inspector,omitempty" json:"inspector,omitempty"`

	// Log configures the CLI logger.
	Log LogConfig `yaml:"log,omitempty" json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// StorageConfig selects and configures a backend driver.
type StorageConfig struct {
	Driver string `yaml:"driver" json:"driver" validate:"required,oneof=memory file sqlite badger s3 nats"`

	// Path is the directory (file, badger) or database file (sqlite).
	Path string `yaml:"path,omitempty" json:"path,omitempty" validate:"required_if=Driver file"`

	// InMemory runs badger without touching disk.
	InMemory bool `yaml:"inMemory,omitempty" json:"inMemory,omitempty"`

	// Table overrides the sqlite table name.
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	// Bucket is the S3 bucket or the NATS key-value bucket.
	Bucket string `yaml:"bucket,omitempty" json:"bucket,omitempty" validate:"required_if=Driver s3,required_if=Driver nats"`

	// Prefix is prepended to S3 object keys.
	Prefix string `yaml:"prefix,omitempty" json:"prefix,omitempty"`

	Region   string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" validate:"omitempty,url"`

	// URL is the NATS server URL.
	URL string `yaml:"url,omitempty" json:"url,omitempty" validate:"required_if=Driver nats"`

	// Codec is json or yaml.
	Codec string `yaml:"codec,omitempty" json:"codec,omitempty" validate:"omitempty,oneof=json yaml yml"`

	// Timeout bounds each storage call, e.g. "5s".
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"omitempty,duration"`
}

// PersistenceConfig mirrors store.PersistenceConfig.
type PersistenceConfig struct {
	Keys   []string `yaml:"keys" json:"keys" validate:"dive,required"`
	Prefix string   `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Deep   bool     `yaml:"deep,omitempty" json:"deep,omitempty"`
}

// HistoryConfig mirrors store.HistoryConfig.
type HistoryConfig struct {
	Keys       []string `yaml:"keys" json:"keys" validate:"dive,required"`
	UseStorage bool     `yaml:"useStorage,omitempty" json:"useStorage,omitempty"`
	StorageKey string   `yaml:"storageKey,omitempty" json:"storageKey,omitempty"`
	MaxLength  int      `yaml:"maxLength,omitempty" json:"maxLength,omitempty" validate:"gte=0"`
}

// FieldConfig declares one field. Exactly one of Initial and Computed may
// be set; a field with neither starts as null.
type FieldConfig struct {
	Name string `yaml:"name" json:"name" validate:"required"`

	// Initial is the default value, any YAML or JSON value.
	Initial yaml.Node `yaml:"initial,omitempty" json:"-" validate:"-"`

	// Computed is an expr-lang expression over the other fields.
	Computed string `yaml:"computed,omitempty" json:"computed,omitempty"`
}

// InspectorConfig configures the inspector server.
type InspectorConfig struct {
	Addr    string `yaml:"addr,omitempty" json:"addr,omitempty"`
	Metrics bool   `yaml:"metrics,omitempty" json:"metrics,omitempty"`

	// AllowedOrigins lists browser origins allowed to open /ws besides the
	// inspector's own.
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty" json:"allowedOrigins,omitempty"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format,omitempty" json:"format,omitempty" validate:"omitempty,oneof=text json"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("duration", validateDuration)
}

func validateDuration(fl validator.FieldLevel) bool {
	_, err := time.ParseDuration(fl.Field().String())
	return err == nil
}

// New creates a Config with default values and no fields.
func New() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: DefaultDriver,
			Codec:  DefaultCodec,
		},
		Inspector: InspectorConfig{
			Addr: DefaultInspectorAddr,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the definition file from dir, trying vstore.yaml, vstore.yml
// and vstore.json in that order.
func Load(dir string) (*Config, error) {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("S030").
		WithDetail("No " + ConfigFileName + " found in " + dir).
		WithSuggestion("Create " + ConfigFileName + " or pass --config")
}

// LoadFile reads the definition file at path. A .env file in the same
// directory is loaded into the environment first; existing variables win.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("S030").
				WithDetail("No definition file at " + path).
				WithSuggestion("Create " + ConfigFileName + " or pass --config")
		}
		return nil, errors.New("S030").Wrap(err)
	}

	if err := LoadDotEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Parse decodes a definition from YAML or JSON, applies defaults and
// environment overrides, and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("S030").
			WithDetail("Failed to parse the definition file: " + err.Error()).
			WithSuggestion("Check that the file is valid YAML or JSON")
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads dir/.env when it exists.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.New("S030").
			WithDetail("Failed to read " + path).
			Wrap(err)
	}
	return nil
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultDriver
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	if c.Storage.Codec == "" {
		c.Storage.Codec = DefaultCodec
	}
	if c.Storage.Path == "" && !c.Storage.InMemory {
		switch c.Storage.Driver {
		case "file", "badger":
			c.Storage.Path = DefaultPath
		case "sqlite":
			c.Storage.Path = filepath.Join(DefaultPath, "vstore.db")
		}
	}
	if c.Inspector.Addr == "" {
		c.Inspector.Addr = DefaultInspectorAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// envOverrides maps environment variables to the settings they replace.
var envOverrides = []struct {
	name  string
	apply func(c *Config, v string)
}{
	{"VSTORE_DRIVER", func(c *Config, v string) { c.Storage.Driver = strings.ToLower(v) }},
	{"VSTORE_PATH", func(c *Config, v string) { c.Storage.Path = v }},
	{"VSTORE_DSN", func(c *Config, v string) { c.Storage.Path = v }},
	{"VSTORE_BUCKET", func(c *Config, v string) { c.Storage.Bucket = v }},
	{"VSTORE_URL", func(c *Config, v string) { c.Storage.URL = v }},
	{"VSTORE_LOG_LEVEL", func(c *Config, v string) { c.Log.Level = strings.ToLower(v) }},
}

// applyEnv applies VSTORE_* overrides.
func (c *Config) applyEnv() {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			o.apply(c, v)
		}
	}
}

// Validate checks the definition. An unknown driver is reported as S031;
// everything else as S030.
func (c *Config) Validate() error {
	if !isDriver(c.Storage.Driver) {
		return errors.New("S031").
			WithDetail(fmt.Sprintf("Driver %q is not supported.", c.Storage.Driver)).
			WithSuggestion("Use one of: " + strings.Join(Drivers, ", "))
	}

	if err := validate.Struct(c); err != nil {
		return errors.New("S030").
			WithDetail(describeValidation(err)).
			Wrap(err)
	}

	if c.Storage.Driver == "badger" && c.Storage.Path == "" && !c.Storage.InMemory {
		return errors.New("S030").
			WithDetail("The badger driver needs storage.path or storage.inMemory.")
	}

	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if seen[f.Name] {
			return errors.New("S030").WithField(f.Name).
				WithDetail(fmt.Sprintf("Field %q is declared more than once.", f.Name))
		}
		seen[f.Name] = true
		if f.Computed != "" && f.Initial.Kind != 0 {
			return errors.New("S030").WithField(f.Name).
				WithDetail(fmt.Sprintf("Field %q sets both initial and computed.", f.Name))
		}
	}
	return nil
}

func isDriver(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}

// describeValidation turns validator errors into one readable line.
func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// StorageTimeout returns the parsed storage timeout, or zero.
func (c *Config) StorageTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Storage.Timeout)
	return d
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration as YAML to path.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.New("S030").Wrap(err)
	}
	if err := enc.Close(); err != nil {
		return errors.New("S030").Wrap(err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.New("S030").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// StoragePath returns Storage.Path resolved against the config directory.
func (c *Config) StoragePath() string {
	path := c.Storage.Path
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a definition file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range configFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up from startDir to the first directory holding a
// definition file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("S030").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Create " + ConfigFileName + " or pass --config")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the definition nearest to the working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
