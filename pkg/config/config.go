package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	figmaassets "github.com/hellenic-development/figma-assets"
	"github.com/hellenic-development/figma-assets/pkg/figma"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is read from the working directory when no config path is given.
	DefaultConfigFile = ".figma-assets.yaml"
	// DefaultEnvFile is loaded into the environment when present.
	DefaultEnvFile = ".env"
)

// Config holds the settings of one export run.
type Config struct {
	Token      string        `yaml:"token"`
	File       string        `yaml:"file"` // file key or Figma URL
	Page       string        `yaml:"page"`
	Frame      string        `yaml:"frame"`
	NodeIDs    []string      `yaml:"node_ids"`
	AssetsPath string        `yaml:"assets_path"`
	Format     string        `yaml:"format"`
	Scale      float64       `yaml:"scale"`
	Timeout    time.Duration `yaml:"timeout"`
	APIBase    string        `yaml:"api_base"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		AssetsPath: figmaassets.DefaultAssetsPath,
		Format:     figmaassets.DefaultFormat,
		Scale:      figmaassets.DefaultScale,
		Timeout:    figma.DefaultTimeout,
		APIBase:    figma.DefaultBaseURL,
	}
}

// Load builds a Config from, in increasing precedence: defaults, the YAML file at
// configPath, the dotenv file at envPath and the process environment.
//
// An empty configPath falls back to DefaultConfigFile if it exists; an explicit path
// must exist. A missing env file is ignored, and variables already present in the
// environment win over the file.
func Load(configPath, envPath string) (Config, error) {
	cfg := Default()

	path, required := configPath, true
	if path == "" {
		path, required = DefaultConfigFile, false
	}
	if err := cfg.loadYAML(path, required); err != nil {
		return cfg, err
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load env file %s: %w", envPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the values that the exporter would otherwise read as unset. A
// scale of zero coming from a file, the environment or a flag is an error here,
// not a request for the default.
func (c Config) Validate() error {
	if !figmaassets.ValidScale(c.Scale) {
		return fmt.Errorf("%w, got %g", figmaassets.ErrInvalidScale, c.Scale)
	}
	return nil
}

func (c *Config) loadYAML(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() error {
	c.Token = envOr("FIGMA_TOKEN", c.Token)
	c.File = envOr("FIGMA_FILE_KEY", c.File)
	c.Page = envOr("FIGMA_PAGE", c.Page)
	c.Frame = envOr("FIGMA_FRAME", c.Frame)
	c.AssetsPath = envOr("FIGMA_ASSETS_PATH", c.AssetsPath)
	c.Format = envOr("FIGMA_FORMAT", c.Format)
	c.APIBase = envOr("FIGMA_API_BASE", c.APIBase)

	if v := os.Getenv("FIGMA_NODE_IDS"); v != "" {
		c.NodeIDs = SplitList(v)
	}

	var err error
	if c.Scale, err = envFloat("FIGMA_SCALE", c.Scale); err != nil {
		return err
	}
	if c.Timeout, err = envDuration("FIGMA_TIMEOUT", c.Timeout); err != nil {
		return err
	}

	return nil
}

// Options converts the configuration into exporter options.
func (c Config) Options(logger figmaassets.Logger) figmaassets.Options {
	return figmaassets.Options{
		AccessToken: c.Token,
		FileKey:     c.File,
		PageName:    c.Page,
		FrameName:   c.Frame,
		AssetsPath:  c.AssetsPath,
		Format:      c.Format,
		Scale:       c.Scale,
		BaseURL:     c.APIBase,
		Timeout:     c.Timeout,
		Logger:      logger,
	}
}

// SplitList parses a comma-separated list, trimming spaces and dropping empty items.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
