// Package config holds the per-invocation optimizer configuration.
package config

import (
	"fmt"
	"os"

	"github.com/retroforge/peep68k/pattern"
	"gopkg.in/yaml.v3"
)

// DefaultMaxPasses caps the fixpoint loop when nothing else is configured.
const DefaultMaxPasses = 10

// Config selects what the optimizer is allowed to do with one file.
type Config struct {
	// Disable turns the optimizer into a no-op for the file.
	Disable bool `yaml:"disable"`
	// KeepFiles retains the pre- and post-optimization diagnostic copies.
	KeepFiles bool `yaml:"keep-files"`
	// MaxPasses bounds the fixpoint loop.
	MaxPasses int `yaml:"max-passes"`
	// EnabledCategories restricts the pattern set; empty means all.
	EnabledCategories []string `yaml:"enabled-categories"`
}

// Default returns the configuration used when the host supplies nothing:
// optimizer on, all categories, no diagnostic copies.
func Default() Config {
	return Config{MaxPasses: DefaultMaxPasses}
}

// LoadFile reads a YAML configuration. Missing keys keep their defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.MaxPasses < 1 {
		cfg.MaxPasses = DefaultMaxPasses
	}
	return cfg, nil
}

// CategorySet converts the enabled-category names into the set the catalog
// consumes. Nil means every category is enabled. Unknown names are kept;
// they simply select nothing.
func (c Config) CategorySet() map[pattern.Category]bool {
	if len(c.EnabledCategories) == 0 {
		return nil
	}
	set := make(map[pattern.Category]bool, len(c.EnabledCategories))
	for _, name := range c.EnabledCategories {
		set[pattern.Category(name)] = true
	}
	return set
}

// Builder assembles a Config in the usual chained style.
type Builder struct {
	cfg Config
}

// NewBuilder starts from the default configuration.
func NewBuilder() Builder {
	return Builder{cfg: Default()}
}

// WithDisable sets the disable flag.
func (b Builder) WithDisable(disable bool) Builder {
	b.cfg.Disable = disable
	return b
}

// WithKeepFiles sets diagnostic-copy retention.
func (b Builder) WithKeepFiles(keep bool) Builder {
	b.cfg.KeepFiles = keep
	return b
}

// WithMaxPasses sets the fixpoint cap.
func (b Builder) WithMaxPasses(n int) Builder {
	b.cfg.MaxPasses = n
	return b
}

// WithCategories replaces the enabled-category list.
func (b Builder) WithCategories(categories ...pattern.Category) Builder {
	b.cfg.EnabledCategories = nil
	for _, c := range categories {
		b.cfg.EnabledCategories = append(b.cfg.EnabledCategories, string(c))
	}
	return b
}

// Build returns the assembled configuration.
func (b Builder) Build() Config {
	return b.cfg
}
