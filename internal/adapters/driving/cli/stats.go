package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector index statistics",
	RunE:  runStats,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the vector index if it does not exist",
	Long: `Creates the configured index with the embedding model's dimension and the
configured metric. An existing index is left unchanged; a dimension or metric
mismatch is reported as an error.`,
	Args: cobra.NoArgs,
	RunE: runIndexCreate,
}

func init() {
	indexCmd.AddCommand(indexCreateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(indexCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errNotConfigured("index")
	}

	stats, err := indexService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to describe index: %w", err)
	}

	cmd.Printf("Index: %s\n", stats.Name)
	cmd.Printf("  Total vectors: %d\n", stats.TotalRecordCount)
	cmd.Printf("  Dimension: %d\n", stats.Dimension)
	if stats.Metric != "" {
		cmd.Printf("  Metric: %s\n", stats.Metric)
	}
	cmd.Printf("  Index fullness: %.2f%%\n", stats.IndexFullness*100)

	if len(stats.Namespaces) > 0 {
		cmd.Println("  Namespaces:")
		names := make([]string, 0, len(stats.Namespaces))
		for name := range stats.Namespaces {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			cmd.Printf("    %s: %d\n", name, stats.Namespaces[name])
		}
	}
	return nil
}

func runIndexCreate(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errNotConfigured("index")
	}

	spec, err := indexService.EnsureIndex(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	cmd.Printf("Index %s ready (dimension %d, metric %s)\n", spec.Name, spec.Dimension, spec.Metric)
	return nil
}
