package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/taxonomy"
	"github.com/JaimeStill/concord/pkg/retry"
)

const (
	EnvLedgerStore       = "CONCORD_LEDGER_STORE"
	EnvLedgerSheetPath   = "CONCORD_LEDGER_SHEET_PATH"
	EnvLedgerSourceMatch = "CONCORD_LEDGER_SOURCE_MATCH"
	EnvLedgerTaxonomy    = "CONCORD_LEDGER_TAXONOMY"
	EnvLedgerAudit       = "CONCORD_LEDGER_AUDIT"
)

// Ledger store backends.
const (
	StoreMemory = "memory"
	StoreSQL    = "sql"
	StoreSheet  = "sheet"
)

var ledgerRetryEnv = &retry.Env{
	MaxAttempts:  "CONCORD_LEDGER_RETRY_MAX_ATTEMPTS",
	InitialDelay: "CONCORD_LEDGER_RETRY_INITIAL_DELAY",
	MaxDelay:     "CONCORD_LEDGER_RETRY_MAX_DELAY",
}

// LedgerConfig selects the label store and the taxonomy labels are checked
// against.
type LedgerConfig struct {
	Store       string       `toml:"store"`
	SheetPath   string       `toml:"sheet_path"`
	SourceMatch string       `toml:"source_match"`
	Taxonomy    string       `toml:"taxonomy"`
	Audit       bool         `toml:"audit"`
	Retry       retry.Config `toml:"retry"`
}

// Match returns SourceMatch as a ledger.MatchMode.
func (c *LedgerConfig) Match() ledger.MatchMode {
	return ledger.MatchMode(c.SourceMatch)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LedgerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Retry.Finalize(ledgerRetryEnv); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *LedgerConfig) Merge(overlay *LedgerConfig) {
	if overlay.Store != "" {
		c.Store = overlay.Store
	}
	if overlay.SheetPath != "" {
		c.SheetPath = overlay.SheetPath
	}
	if overlay.SourceMatch != "" {
		c.SourceMatch = overlay.SourceMatch
	}
	if overlay.Taxonomy != "" {
		c.Taxonomy = overlay.Taxonomy
	}
	if overlay.Audit {
		c.Audit = true
	}
	c.Retry.Merge(&overlay.Retry)
}

func (c *LedgerConfig) loadDefaults() {
	if c.Store == "" {
		c.Store = StoreSQL
	}
	if c.SheetPath == "" {
		c.SheetPath = "ledger.xlsx"
	}
	if c.SourceMatch == "" {
		c.SourceMatch = string(ledger.MatchFold)
	}
	if c.Taxonomy == "" {
		c.Taxonomy = "libera"
	}
}

func (c *LedgerConfig) loadEnv() {
	if v := os.Getenv(EnvLedgerStore); v != "" {
		c.Store = v
	}
	if v := os.Getenv(EnvLedgerSheetPath); v != "" {
		c.SheetPath = v
	}
	if v := os.Getenv(EnvLedgerSourceMatch); v != "" {
		c.SourceMatch = v
	}
	if v := os.Getenv(EnvLedgerTaxonomy); v != "" {
		c.Taxonomy = v
	}
	if v := os.Getenv(EnvLedgerAudit); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Audit = b
		}
	}
}

func (c *LedgerConfig) validate() error {
	switch c.Store {
	case StoreMemory, StoreSQL, StoreSheet:
	default:
		return fmt.Errorf("unsupported store %q", c.Store)
	}
	m, err := ledger.ParseMatchMode(c.SourceMatch)
	if err != nil {
		return err
	}
	c.SourceMatch = string(m)
	if _, err := taxonomy.Load(c.Taxonomy); err != nil {
		return err
	}
	return nil
}
