package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/concord/internal/corpus"
	"github.com/JaimeStill/concord/internal/sampling"
)

func (a *app) corpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Build and inspect sentence corpora",
	}
	cmd.AddCommand(a.corpusBuildCmd(), a.corpusDuplicatesCmd())
	return cmd
}

func (a *app) corpusBuildCmd() *cobra.Command {
	var in, out, duplicates string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Parse a concordance export into a sample CSV",
		Long: `Reads "DATE | TEXT" lines, strips markup, assigns 1-based ids in
source order and writes id,date,sentence rows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			policy := cfg.Corpus.Policy()
			if duplicates != "" {
				if policy, err = corpus.ParsePolicy(duplicates); err != nil {
					return err
				}
			}

			f, err := os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()

			c, stats, err := corpus.Read(f, corpus.Options{Duplicates: policy})
			if err != nil {
				return err
			}
			if c.Len() == 0 {
				return corpus.ErrEmpty
			}

			if err := writeRecords(out, c.Records()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"lines %d, records %d, skipped %d, empty %d, dropped %d, invalid dates %d\n",
				stats.Lines, stats.Records, stats.Skipped, stats.Empty, stats.Dropped, stats.InvalidDates,
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "concordance export")
	cmd.Flags().StringVar(&out, "out", "", "output CSV")
	cmd.Flags().StringVar(&duplicates, "duplicates", "", "keep or drop repeated sentences (default from config)")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) corpusDuplicatesCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List groups of ids sharing the same normalized sentence",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(in)
			if err != nil {
				return err
			}
			c, err := corpus.FromRecords(records)
			if err != nil {
				return err
			}

			for _, group := range c.Duplicates() {
				ids := make([]string, len(group))
				for i, id := range group {
					ids[i] = strconv.Itoa(id)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(ids, " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "sample CSV")
	cmd.MarkFlagRequired("in")
	return cmd
}

func (a *app) splitCmd() *cobra.Command {
	var (
		in, outDir string
		subsets    []string
		seed       uint64
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Draw disjoint named samples from a sample CSV",
		Long: `Draws each --subset name=size in order from the records not yet
drawn and writes <name>.csv plus residual.csv to --out-dir. The same input,
sizes and seed always give the same samples.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Corpus.SeedValue()
			}

			reqs, err := parseSubsets(subsets)
			if err != nil {
				return err
			}
			records, err := readRecords(in)
			if err != nil {
				return err
			}

			p, err := sampling.Split(records, reqs, seed)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			summary := p.Summary()
			for _, name := range append(p.Names(), sampling.ResidualName) {
				recs, _ := p.Subset(name)
				if err := writeRecords(filepath.Join(outDir, name+".csv"), recs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", name, summary[name])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "sample CSV")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for subset CSVs")
	cmd.Flags().StringArrayVar(&subsets, "subset", nil, "name=size, repeatable")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "random seed (default from config)")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("subset")
	return cmd
}

func parseSubsets(args []string) ([]sampling.Request, error) {
	reqs := make([]sampling.Request, 0, len(args))
	for _, arg := range args {
		name, size, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("subset %q: want name=size", arg)
		}
		n, err := strconv.Atoi(size)
		if err != nil {
			return nil, fmt.Errorf("subset %q: %w", arg, err)
		}
		reqs = append(reqs, sampling.Request{Name: strings.TrimSpace(name), Count: n})
	}
	return reqs, nil
}

func readRecords(path string) ([]corpus.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return corpus.ReadCSV(f)
}

func writeRecords(path string, records []corpus.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := corpus.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
