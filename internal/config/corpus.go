package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/concord/internal/corpus"
)

const (
	EnvCorpusDuplicates   = "CONCORD_CORPUS_DUPLICATES"
	EnvCorpusExportPrefix = "CONCORD_CORPUS_EXPORT_PREFIX"
	EnvCorpusSeed         = "CONCORD_CORPUS_SEED"
)

// CorpusConfig controls corpus building and sample splitting.
type CorpusConfig struct {
	Duplicates   string  `toml:"duplicates"`
	ExportPrefix string  `toml:"export_prefix"`
	Seed         *uint64 `toml:"seed"`
}

// Policy returns Duplicates as a corpus.DuplicatePolicy.
func (c *CorpusConfig) Policy() corpus.DuplicatePolicy {
	return corpus.DuplicatePolicy(c.Duplicates)
}

// SeedValue returns the configured split seed.
func (c *CorpusConfig) SeedValue() uint64 {
	if c.Seed == nil {
		return 42
	}
	return *c.Seed
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *CorpusConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *CorpusConfig) Merge(overlay *CorpusConfig) {
	if overlay.Duplicates != "" {
		c.Duplicates = overlay.Duplicates
	}
	if overlay.ExportPrefix != "" {
		c.ExportPrefix = overlay.ExportPrefix
	}
	if overlay.Seed != nil {
		c.Seed = overlay.Seed
	}
}

func (c *CorpusConfig) loadDefaults() {
	if c.Duplicates == "" {
		c.Duplicates = string(corpus.KeepDuplicates)
	}
	if c.ExportPrefix == "" {
		c.ExportPrefix = "samples/"
	}
	if c.Seed == nil {
		seed := uint64(42)
		c.Seed = &seed
	}
}

func (c *CorpusConfig) loadEnv() {
	if v := os.Getenv(EnvCorpusDuplicates); v != "" {
		c.Duplicates = v
	}
	if v := os.Getenv(EnvCorpusExportPrefix); v != "" {
		c.ExportPrefix = v
	}
	if v := os.Getenv(EnvCorpusSeed); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Seed = &seed
		}
	}
}

func (c *CorpusConfig) validate() error {
	if _, err := corpus.ParsePolicy(c.Duplicates); err != nil {
		return fmt.Errorf("duplicates: %w", err)
	}
	return nil
}
