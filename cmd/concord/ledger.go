package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/concord/internal/ledger"
)

func (a *app) ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Load sentences and manage label sources",
	}
	cmd.AddCommand(
		a.ledgerLoadCmd(),
		a.ledgerSourcesCmd(),
		a.ledgerRegisterCmd(),
		a.ledgerWriteCmd(),
		a.ledgerExportCmd(),
	)
	return cmd
}

func (a *app) ledgerLoadCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Add the sentences of a sample CSV to the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(in)
			if err != nil {
				return err
			}

			_, infra, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer infra.Close()

			added, err := infra.Ledger.Load(cmd.Context(), records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d of %d sentences\n", added, len(records))
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "sample CSV")
	cmd.MarkFlagRequired("in")
	return cmd
}

func (a *app) ledgerSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List registered sources with their label counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, infra, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer infra.Close()

			snap, err := infra.Ledger.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tKIND\tLABELED\tFAILED")
			for _, src := range snap.Sources {
				labeled, failed := 0, 0
				for _, v := range snap.Labels[src.Name] {
					if v.IsFailure() {
						failed++
					} else {
						labeled++
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", src.Name, src.Kind, labeled, failed)
			}
			return tw.Flush()
		},
	}
}

func (a *app) ledgerRegisterCmd() *cobra.Command {
	var name, kind string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a label source, or show the existing match",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := ledger.ParseKind(kind)
			if err != nil {
				return err
			}

			_, infra, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer infra.Close()

			src, err := infra.Ledger.RegisterSource(cmd.Context(), name, k)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", src.Name, src.Kind)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "source name")
	cmd.Flags().StringVar(&kind, "kind", string(ledger.Human), "human or model")
	cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) ledgerWriteCmd() *cobra.Command {
	var (
		source, value string
		id            int
	)

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Record one label, overwriting any previous value",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok, err := ledger.ParseValue(value)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: empty", ledger.ErrInvalidValue)
			}

			_, infra, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer infra.Close()

			if err := infra.Ledger.Write(cmd.Context(), id, source, v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s[%d] = %s\n", source, id, v)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "registered source")
	cmd.Flags().IntVar(&id, "id", 0, "sentence id")
	cmd.Flags().StringVar(&value, "value", "", `class code, or "none" for a failed attempt`)
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("value")
	return cmd
}

func (a *app) ledgerExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger grid to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, infra, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer infra.Close()

			snap, err := infra.Ledger.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := ledger.WriteWorkbook(f, snap); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&out, "out", "ledger.xlsx", "output workbook")
	return cmd
}
