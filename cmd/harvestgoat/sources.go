package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/harvestgoat/internal/source"
)

// sourcesCmd creates the "sources" subcommand.
func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the built-in and catalog sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			// Listing never fetches, so no fetcher is needed.
			registry, err := source.Load(cfg, nil, logger)
			if err != nil {
				return fmt.Errorf("load sources: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tCATEGORY\tCONTENT\tFETCHER\tENABLED\tURL")
			for _, a := range registry.All() {
				d := a.Descriptor()
				fetcherType := d.Fetcher
				if fetcherType == "" {
					fetcherType = "http"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\t%s\n",
					d.Name, d.Kind, d.Category, d.ContentType, fetcherType, !d.Disabled, d.URL)
			}
			return w.Flush()
		},
	}
}
