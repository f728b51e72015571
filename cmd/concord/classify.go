package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/concord/internal/classifier"
	"github.com/JaimeStill/concord/internal/workflow"
)

func (a *app) classifyCmd() *cobra.Command {
	var (
		models        []string
		promptVersion string
		mode          string
		ids           []int
		requireHuman  bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Ask models to classify ledger sentences",
		Long: `Registers one source per model (<prompt-version>_<model>) and asks each
model about the selected sentences. --mode missing picks sentences the model
never attempted, failed retries recorded failures, all re-asks everything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, infra, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer infra.Close()

			factory, err := classifier.NewFactory(cfg.Classifier.Settings(), infra.Taxonomy)
			if err != nil {
				return err
			}

			if len(models) == 0 {
				models = cfg.Classifier.Models
			}
			req := workflow.Request{
				Models:       models,
				Mode:         workflow.Mode(mode),
				IDs:          ids,
				RequireHuman: requireHuman,
			}
			if cmd.Flags().Changed("prompt-version") {
				req.PromptVersion = &promptVersion
			}

			rt := &workflow.Runtime{
				Ledger:        infra.Ledger,
				Classifiers:   factory,
				PromptVersion: cfg.Classifier.PromptVersion,
				Workers:       cfg.Classifier.Workers,
				Observer:      infra.Metrics,
				Logger:        infra.Logger,
			}

			result, err := workflow.Execute(cmd.Context(), rt, req)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tATTEMPTED\tCLASSIFIED\tFAILED\tERRORS")
			for _, m := range result.Models {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n",
					m.Source, m.Attempted, m.Classified, m.Failed, len(m.Errors))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			for _, m := range result.Models {
				for _, e := range m.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: sentence %d: %s\n", m.Source, e.SentenceID, e.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&models, "model", nil, "model name, repeatable (default from config)")
	cmd.Flags().StringVar(&promptVersion, "prompt-version", "", "source name prefix (default from config)")
	cmd.Flags().StringVar(&mode, "mode", string(workflow.ModeMissing), "missing, failed or all")
	cmd.Flags().IntSliceVar(&ids, "ids", nil, "restrict to these sentence ids")
	cmd.Flags().BoolVar(&requireHuman, "require-human", false, "only sentences some human has labeled")
	return cmd
}
