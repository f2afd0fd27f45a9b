package config

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"

	"github.com/Norgate-AV/vsmeta/internal/compiler"
	"github.com/Norgate-AV/vsmeta/internal/utils"
)

// Default configuration values
const (
	DefaultPlatform      = "Win32"
	DefaultConfiguration = "Debug"
	DefaultFormat        = "json"
	DefaultStyle         = "msvc"
	DefaultVerbose       = false
	DefaultNoCache       = false
)

var validFormats = map[string]bool{"json": true, "text": true}

// Holds the configuration options for vsmeta
type Config struct {
	// Platform to resolve (e.g., Win32, x64)
	Platform string

	// Configuration to resolve (e.g., Debug, Release)
	Configuration string

	// Regular expression matched against solution project declarations
	Exclude string
	// Compiled form of Exclude, nil when Exclude is empty
	ExcludePattern *regexp.Regexp

	// NAME=VALUE overrides for $(NAME) references
	Defines []string
	// Parsed overrides
	Overrides map[string]string

	// Directory of the persistent descriptor cache
	CacheDir string

	// Skip the persistent descriptor cache
	NoCache bool

	// Output format (json or text)
	Format string

	// Compiler flag style (msvc or gnu)
	Style string

	// Enable verbose output
	Verbose bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Platform:      viper.GetString("platform"),
		Configuration: viper.GetString("configuration"),
		Exclude:       viper.GetString("exclude"),
		Defines:       viper.GetStringSlice("define"),
		CacheDir:      viper.GetString("cache_dir"),
		NoCache:       viper.GetBool("no_cache"),
		Format:        viper.GetString("format"),
		Style:         viper.GetString("style"),
		Verbose:       viper.GetBool("verbose"),
	}

	// Apply defaults if not set
	if cfg.Platform == "" {
		cfg.Platform = DefaultPlatform
	}

	if cfg.Configuration == "" {
		cfg.Configuration = DefaultConfiguration
	}

	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}

	if cfg.Style == "" {
		cfg.Style = DefaultStyle
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Platform == "" {
		return fmt.Errorf("platform not specified")
	}

	if c.Configuration == "" {
		return fmt.Errorf("configuration not specified")
	}

	// Resolve cache directory
	if c.CacheDir != "" {
		abs, err := filepath.Abs(c.CacheDir)
		if err != nil {
			return fmt.Errorf("invalid cache directory: %v", err)
		}

		c.CacheDir = abs
	}

	// Compile exclusion pattern
	c.ExcludePattern = nil
	if c.Exclude != "" {
		re, err := regexp.Compile(c.Exclude)
		if err != nil {
			return fmt.Errorf("invalid exclude pattern: %v", err)
		}

		c.ExcludePattern = re
	}

	overrides, err := utils.ParseOverrides(c.Defines)
	if err != nil {
		return err
	}
	c.Overrides = overrides

	if !validFormats[c.Format] {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	style, err := compiler.ParseStyle(c.Style)
	if err != nil {
		return err
	}
	c.Style = string(style)

	return nil
}
