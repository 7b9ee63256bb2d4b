package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/logger"
)

var (
	ingestRecursive bool
	ingestBatchSize int
	ingestChunkSize int
	ingestOverlap   int
	ingestWatch     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index the documents in a directory",
	Long: `Loads every PDF (and plain text or markdown file) in the directory, splits
it into overlapping chunks, embeds them and upserts them into the vector index.
The index is created on first use.

The directory defaults to the configured ingest directory (data/).
With --watch, files created or modified afterwards are indexed as they change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestRecursive, "recursive", "r", false, "descend into subdirectories")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", domain.DefaultUpsertBatchSize, "records per upsert call")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", domain.DefaultChunkSize, "chunk size in characters")
	ingestCmd.Flags().IntVar(&ingestOverlap, "overlap", domain.DefaultChunkOverlap, "characters shared by neighbouring chunks")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep running and index changed files")
	settingsOverlays[ingestCmd] = ingestOverlay
	rootCmd.AddCommand(ingestCmd)
}

// ingestOverlay applies explicitly set ingest flags to the settings.
func ingestOverlay(cmd *cobra.Command, s *domain.AppSettings) {
	flags := cmd.Flags()
	if flags.Changed("recursive") {
		s.Ingest.Recursive = ingestRecursive
	}
	if flags.Changed("batch-size") {
		s.Ingest.BatchSize = ingestBatchSize
	}
	if flags.Changed("chunk-size") {
		s.Chunker.ChunkSize = ingestChunkSize
	}
	if flags.Changed("overlap") {
		s.Chunker.Overlap = ingestOverlap
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errNotConfigured("ingestion")
	}

	dir := ingestDirectory(args)
	ctx := cmd.Context()

	report, err := ingestionService.IngestDirectory(ctx, dir)
	printIngestReport(cmd, report)
	if err != nil {
		var ingestErr *domain.IngestionError
		if errors.As(err, &ingestErr) {
			cmd.Printf("%d chunks were committed before the failure.\n", ingestErr.Committed)
		}
		return fmt.Errorf("ingest failed: %w", err)
	}

	if !ingestWatch {
		return nil
	}
	return watchDirectory(ctx, cmd, dir)
}

func ingestDirectory(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil && settings.Ingest.Directory != "" {
			return settings.Ingest.Directory
		}
	}
	return domain.DefaultIngestDirectory
}

func printIngestReport(cmd *cobra.Command, report domain.IngestReport) {
	for _, f := range report.Failed {
		cmd.Printf("Skipped %s: %v\n", f.Path, f.Err)
	}
	if report.ChunksSkipped > 0 {
		cmd.Printf("Skipped %d empty or oversized chunks\n", report.ChunksSkipped)
	}
	cmd.Printf("Uploaded %d chunks from %d documents\n", report.ChunksAdded, report.DocumentsProcessed)
}

// watchDirectory indexes created and modified files until ctx is cancelled.
// Deleted files keep their vectors; run a fresh index to drop them.
func watchDirectory(ctx context.Context, cmd *cobra.Command, dir string) error {
	if directoryWatcher == nil {
		return errNotConfigured("watch")
	}

	changes, err := directoryWatcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", dir)

	for change := range changes {
		if change.Type == domain.ChangeDeleted {
			logger.Info("Ignoring deleted file %s", change.Path)
			continue
		}

		report, err := ingestionService.IngestFiles(ctx, []string{change.Path})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			cmd.Printf("Failed to index %s: %v\n", change.Path, err)
			continue
		}
		for _, f := range report.Failed {
			cmd.Printf("Skipped %s: %v\n", f.Path, f.Err)
		}
		if report.ChunksAdded > 0 {
			cmd.Printf("Uploaded %d chunks from %s (%s)\n", report.ChunksAdded, change.Path, change.Type)
		}
	}
	return nil
}
