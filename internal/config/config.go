package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	kerrors "git.home.luguber.info/inful/sitekit/internal/errors"
)

// Defaults applied by Load when a field is left empty.
const (
	DefaultContentRoot      = "src/content"
	DefaultGeneratorCommand = "node"
	DefaultGeneratorScript  = "scripts/generate-icon-map.mjs"
	DefaultGeneratorTimeout = 2 * time.Minute
)

// Environment variables that override file values.
const (
	EnvSiteDomain  = "SITE_DOMAIN"
	EnvContentRoot = "SITEKIT_CONTENT_ROOT"
)

// Config is the process-wide configuration. It is constructed once at startup and
// passed explicitly to the components that need it.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Content   ContentConfig   `yaml:"content"`
	Generator GeneratorConfig `yaml:"generator"`
}

// SiteConfig holds site identity used for absolute URL construction.
type SiteConfig struct {
	Domain string `yaml:"domain,omitempty"`
	Title  string `yaml:"title,omitempty"`
}

// ContentConfig locates the content root whose subdirectories are collections.
type ContentConfig struct {
	Root string `yaml:"root"`
}

// GeneratorConfig describes the external icon-map generator run at config setup.
type GeneratorConfig struct {
	Enabled *bool         `yaml:"enabled,omitempty"`
	Command string        `yaml:"command"`
	Script  string        `yaml:"script"`
	Dir     string        `yaml:"dir,omitempty"` // working directory; empty means the current one
	Timeout time.Duration `yaml:"timeout"`
}

// IsEnabled reports whether the generator hook should be registered (default true).
func (g GeneratorConfig) IsEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

// AbsURL joins p onto the configured domain. Without a domain it returns p
// rooted at "/".
func (s SiteConfig) AbsURL(p string) string {
	rel := "/" + strings.TrimLeft(p, "/")
	if s.Domain == "" {
		return rel
	}
	u, err := url.Parse(s.Domain)
	if err != nil {
		return rel
	}
	u.Path = path.Join("/", u.Path, rel)
	if strings.HasSuffix(p, "/") && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// Load reads the YAML configuration at configPath after loading .env files,
// expands ${VAR} references, applies environment overrides and defaults, and
// validates the result.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, kerrors.ConfigNotFound(configPath)
		}
		return nil, kerrors.FileSystemError("read config", err).WithContext("path", configPath)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, kerrors.ConfigInvalid(configPath, err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration built only from defaults and environment.
func Default() *Config {
	loadEnvFiles()
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvSiteDomain)); v != "" {
		cfg.Site.Domain = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvContentRoot)); v != "" {
		cfg.Content.Root = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Content.Root == "" {
		cfg.Content.Root = DefaultContentRoot
	}
	if cfg.Generator.Command == "" {
		cfg.Generator.Command = DefaultGeneratorCommand
	}
	if cfg.Generator.Script == "" {
		cfg.Generator.Script = DefaultGeneratorScript
	}
	if cfg.Generator.Timeout == 0 {
		cfg.Generator.Timeout = DefaultGeneratorTimeout
	}
	cfg.Site.Domain = strings.TrimRight(cfg.Site.Domain, "/")
}

// Validate checks field-level constraints.
func (c *Config) Validate() error {
	if c.Site.Domain != "" {
		u, err := url.Parse(c.Site.Domain)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return kerrors.ValidationFailed("site.domain", fmt.Sprintf("%q is not an absolute http(s) URL", c.Site.Domain))
		}
	}
	if c.Generator.Timeout < 0 {
		return kerrors.ValidationFailed("generator.timeout", "must be positive")
	}
	if c.Generator.IsEnabled() && strings.TrimSpace(c.Generator.Script) == "" {
		return kerrors.ValidationFailed("generator.script", "required when the generator is enabled")
	}
	return nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	enabled := true
	example := Config{
		Site: SiteConfig{
			Domain: "https://example.com",
			Title:  "My Site",
		},
		Content: ContentConfig{Root: DefaultContentRoot},
		Generator: GeneratorConfig{
			Enabled: &enabled,
			Command: DefaultGeneratorCommand,
			Script:  DefaultGeneratorScript,
			Timeout: DefaultGeneratorTimeout,
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
