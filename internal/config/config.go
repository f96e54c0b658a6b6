package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the settings loaded from quadflow.yml.
type Config struct {
	BatchSize    int           `yaml:"batchSize" validate:"gte=1,lte=100000"`
	FetchTimeout time.Duration `yaml:"fetchTimeout" validate:"gte=0"`
	// MaxDocumentBytes caps a fetched document.
	MaxDocumentBytes int64    `yaml:"maxDocumentBytes" validate:"gte=1"`
	RuleSets         []string `yaml:"ruleSets,omitempty" validate:"dive,required"`
	RuleDirs         []string `yaml:"ruleDirs,omitempty" validate:"dive,required"`
	RuleBaseURL      string   `yaml:"ruleBaseURL,omitempty" validate:"omitempty,url"`
	MaxRounds        int      `yaml:"maxRounds" validate:"gte=1"`
	DBPath           string   `yaml:"dbPath,omitempty"`
	LogLevel         string   `yaml:"logLevel" validate:"oneof=debug info warn error"`
	Development      bool     `yaml:"development,omitempty"`
	MetricsAddr      string   `yaml:"metricsAddr,omitempty"`
	ListenAddr       string   `yaml:"listenAddr" validate:"required"`
	MCPAddr          string   `yaml:"mcpAddr,omitempty"`
	// SchemaClasses extends the types that mark a diagram node as schema.
	SchemaClasses []string `yaml:"schemaClasses,omitempty" validate:"dive,required"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		BatchSize:        1000,
		FetchTimeout:     30 * time.Second,
		MaxDocumentBytes: 64 << 20,
		MaxRounds:        64,
		LogLevel:         "info",
		ListenAddr:       "127.0.0.1:8470",
	}
}

// FileNames are the config files looked up by Load, in order.
var FileNames = []string{"quadflow.yml", "quadflow.yaml"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads quadflow.yml or quadflow.yaml from dir over the defaults.
// A missing file is not an error: the defaults are returned.
func Load(dir string) (*Config, error) {
	cfg := Default()
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		break
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
