// Command concord is the operator CLI: it builds corpora, draws samples,
// manages the label ledger, runs model classification and reports agreement.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/internal/infrastructure"
)

type app struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "concord",
		Short: "Annotate and compare classifications of concordance sentences",
		Long: `concord turns concordance exports into sentence corpora, draws
reproducible samples, records human and model labels in a shared ledger, and
measures how far the sources agree.

Commands that touch the ledger open the store configured in config.toml
(or --config) with CONCORD_* environment overrides.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./config.toml when present)")

	root.AddCommand(
		a.corpusCmd(),
		a.splitCmd(),
		a.ledgerCmd(),
		a.classifyCmd(),
		a.agreementCmd(),
		a.confusionCmd(),
		a.discrepanciesCmd(),
	)
	return root
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// open loads config and the ledger it names. The caller closes the result.
func (a *app) open(ctx context.Context) (*config.Config, *infrastructure.Infrastructure, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	infra, err := infrastructure.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, infra, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
