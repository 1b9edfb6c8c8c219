// Command ingest runs one dataset ingestion against the Catalog and Tracker
// registries.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/als-computing/ingest-core/internal/config"
	"github.com/als-computing/ingest-core/internal/ingest"
	// Import extractors to register all extraction strategies
	_ "github.com/als-computing/ingest-core/pkg/extractors"
)

func main() {
	cfg := &config.Run{}

	cmd := &cobra.Command{
		Use:   "ingest [flags] DATASET_PATH [FILE...]",
		Short: "Ingest a beamline dataset into the Catalog and Tracker registries",
		Long: "Ingest builds a file manifest for DATASET_PATH (or the FILE arguments,\n" +
			"relative to it), runs the named extraction strategy against the Catalog,\n" +
			"and reconciles the dataset's records in the Tracker.\n" +
			"Unset flags fall back to the INGEST_*, CATALOG_* and TRACKER_* environment.",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.DatasetPath = args[0]
			cfg.Files = args[1:]

			result := (&ingest.Runner{}).Run(cmd.Context(), cfg)
			if !result.Succeeded() {
				return fmt.Errorf("ingestion failed: %s", result.Failure)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ingested catalog dataset %s (run %s)\n",
				result.Descriptor.Catalog.DatasetID, result.RunID)
			if id := result.Descriptor.Tracker.TrackerDatasetID; id != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "tracker dataset %s instance %s\n",
					id, result.Descriptor.Tracker.InstanceRecordID)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Spec, "spec", "", "extraction strategy to ingest with")
	flags.StringVar(&cfg.OwnerUsername, "owner-username", "", "user doing the ingesting, may differ from the catalog username")
	flags.StringVar(&cfg.CatalogURL, "catalog-url", "", "catalog server base URL")
	flags.StringVar(&cfg.CatalogUsername, "catalog-username", "", "catalog server username")
	flags.StringVar(&cfg.CatalogPassword, "catalog-password", "", "catalog server password")
	flags.StringVar(&cfg.TrackerURL, "tracker-url", "", "tracker server base URL (optional)")
	flags.StringVar(&cfg.TrackerUsername, "tracker-username", "", "tracker server username")
	flags.StringVar(&cfg.TrackerPassword, "tracker-password", "", "tracker server password")
	flags.StringVar(&cfg.TrackerShare, "tracker-share", "", "slug of the storage share this instance has direct access to")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
