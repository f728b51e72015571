package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/concord/internal/agreement"
	"github.com/JaimeStill/concord/internal/discrepancy"
	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/taxonomy"
)

type agreementFlags struct {
	ids           []int
	confidence    float64
	oneSided      bool
	countFailures bool
}

func (f *agreementFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntSliceVar(&f.ids, "ids", nil, "restrict to these sentence ids")
	fs.Float64Var(&f.confidence, "confidence", agreement.DefaultConfidence, "interval confidence level")
	fs.BoolVar(&f.oneSided, "one-sided", false, "one-sided interval")
	fs.BoolVar(&f.countFailures, "count-failures", false, "count failed attempts as mismatches")
}

func (f *agreementFlags) options(tax *taxonomy.Taxonomy) (agreement.Options, error) {
	z, err := agreement.ZScore(f.confidence, f.oneSided)
	if err != nil {
		return agreement.Options{}, err
	}
	opts := agreement.Options{
		Restrict:      f.ids,
		CountFailures: f.countFailures,
		Z:             z,
	}
	for _, c := range tax.Codes() {
		opts.Classes = append(opts.Classes, ledger.Value(c))
	}
	return opts, nil
}

func (a *app) agreementCmd() *cobra.Command {
	var (
		ref   string
		preds []string
		flags agreementFlags
	)

	cmd := &cobra.Command{
		Use:   "agreement",
		Short: "Report how often predictions match a reference source",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, infra, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer infra.Close()

			opts, err := flags.options(infra.Taxonomy)
			if err != nil {
				return err
			}
			snap, err := infra.Ledger.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			for _, pred := range preds {
				res, err := agreement.CompareSources(snap, ref, pred, opts)
				if err != nil {
					return fmt.Errorf("%s vs %s: %w", ref, pred, err)
				}
				writeResult(cmd.OutOrStdout(), res)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "reference source")
	cmd.Flags().StringArrayVar(&preds, "pred", nil, "prediction source, repeatable")
	flags.register(cmd)
	cmd.MarkFlagRequired("ref")
	cmd.MarkFlagRequired("pred")
	return cmd
}

func writeResult(w io.Writer, res *agreement.Result) {
	fmt.Fprintf(w, "%s vs %s: %d/%d = %.3f [%.3f, %.3f]\n",
		res.Prediction, res.Reference, res.Matches, res.N, res.Rate,
		res.Interval.Lower, res.Interval.Upper,
	)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  CLASS\tSUPPORT\tMATCHES\tRATE")
	for _, c := range res.PerClass {
		rate := "-"
		if c.Rate != nil {
			rate = strconv.FormatFloat(*c.Rate, 'f', 3, 64)
		}
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%s\n", c.Class, c.Support, c.Matches, rate)
	}
	tw.Flush()
}

func (a *app) confusionCmd() *cobra.Command {
	var (
		ref, pred  string
		normalized bool
		flags      agreementFlags
	)

	cmd := &cobra.Command{
		Use:   "confusion",
		Short: "Print the confusion matrix of a prediction against a reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, infra, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer infra.Close()

			opts, err := flags.options(infra.Taxonomy)
			if err != nil {
				return err
			}
			snap, err := infra.Ledger.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			m, err := agreement.ConfusionSources(snap, ref, pred, opts)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprint(tw, "ref\\pred\t")
			for _, c := range m.Classes {
				fmt.Fprintf(tw, "%s\t", c)
			}
			fmt.Fprintln(tw)

			rows := m.Normalized()
			for i, c := range m.Classes {
				fmt.Fprintf(tw, "%s\t", c)
				for j := range m.Classes {
					if normalized {
						fmt.Fprintf(tw, "%.1f\t", rows[i][j])
					} else {
						fmt.Fprintf(tw, "%d\t", m.Counts[i][j])
					}
				}
				fmt.Fprintln(tw)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "reference source")
	cmd.Flags().StringVar(&pred, "pred", "", "prediction source")
	cmd.Flags().BoolVar(&normalized, "normalized", false, "print row percentages instead of counts")
	flags.register(cmd)
	cmd.MarkFlagRequired("ref")
	cmd.MarkFlagRequired("pred")
	return cmd
}

func (a *app) discrepanciesCmd() *cobra.Command {
	var (
		sources []string
		ids     []int
		out     string
	)

	cmd := &cobra.Command{
		Use:   "discrepancies",
		Short: "List sentences the given sources classify differently",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(sources) < 2 {
				return discrepancy.ErrTooFewSources
			}

			_, infra, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer infra.Close()

			snap, err := infra.Ledger.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			names, err := discrepancy.Resolve(snap, sources)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			n, err := discrepancy.Write(w, discrepancy.Find(snap, names, ids))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d discrepancies\n", n)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sources, "source", nil, "source to compare, repeatable")
	cmd.Flags().IntSliceVar(&ids, "ids", nil, "restrict to these sentence ids")
	cmd.Flags().StringVar(&out, "out", "", "write the report to a file")
	return cmd
}
