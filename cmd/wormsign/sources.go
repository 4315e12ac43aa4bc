package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"wormsign/internal/compromise"
	"wormsign/internal/feed"
	"wormsign/internal/logging"
	"wormsign/internal/model"
)

func newSourcesCmd(stdout, stderr io.Writer) *cobra.Command {
	var dataDir string
	var debug bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the local compromise lists",
	}
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding sources/ (defaults to $"+envDataRoot+")")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the built-in feed sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range feed.BuiltinNames() {
				s := feed.Builtin[name]
				fmt.Fprintf(stdout, "%-8s %-4s %s\n", s.Name, s.Format, s.URL)
			}
			return nil
		},
	}

	consolidateCmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge sources/*.csv into sources/" + compromise.ConsolidatedList,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Join(dataRoot(dataDir), compromise.SourcesDir)
			out := filepath.Join(dir, compromise.ConsolidatedList)
			n, err := compromise.Consolidate(dir, out)
			if err != nil {
				return fmt.Errorf("consolidating %s: %w", dir, err)
			}
			fmt.Fprintf(stdout, "Consolidated %d unique packages into %s\n", n, out)
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <file|url>",
		Short: "Add a CSV file or HTTPS feed to sources/" + compromise.ConsolidatedList,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewWithWriter(stderr, debug)
			from := args[0]

			var records []model.CompromiseRecord
			if strings.HasPrefix(from, "http://") || strings.HasPrefix(from, "https://") {
				format := feed.FormatCSV
				if strings.HasSuffix(strings.ToLower(from), ".json") {
					format = feed.FormatJSON
				}
				src, err := feed.Custom(from, format)
				if err != nil {
					return err
				}
				records, err = feed.New(feed.Options{Logger: &log}).FetchOne(cmd.Context(), src)
				if err != nil {
					return fmt.Errorf("fetching %s: %w", from, err)
				}
			} else {
				var err error
				records, err = compromise.File(from).Load()
				if err != nil {
					return err
				}
			}
			log.Info().Int("packages", len(records)).Str("from", from).Msg("Loaded new packages")

			dir := filepath.Join(dataRoot(dataDir), compromise.SourcesDir)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
			out := filepath.Join(dir, compromise.ConsolidatedList)
			added, total, err := compromise.Merge(out, records)
			if err != nil {
				return fmt.Errorf("updating %s: %w", out, err)
			}
			fmt.Fprintf(stdout, "Added %d new unique packages (%d total) to %s\n", added, total, out)
			return nil
		},
	}

	cmd.AddCommand(listCmd, consolidateCmd, addCmd)
	return cmd
}
