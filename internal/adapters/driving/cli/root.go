// Package cli is the command-line interface for pdfqa.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driving"
	"github.com/custodia-labs/pdfqa/internal/logger"
)

var version = "dev"

// Global flags.
var (
	verbose    bool
	configPath string
	storeFlag  string
)

// Driving ports used by the commands. Set by the bootstrap, or directly by tests.
var (
	settingsService  driving.SettingsService
	ingestionService driving.IngestionService
	retrievalService driving.RetrievalService
	answerService    driving.AnswerService
	indexService     driving.IndexService
	directoryWatcher Watcher
)

// Watcher reports files changed in a directory until ctx is cancelled.
type Watcher interface {
	Watch(ctx context.Context, dir string) (<-chan domain.FileChange, error)
}

// Ports are the driving ports a Bootstrap builds.
type Ports struct {
	Settings  driving.SettingsService
	Ingestion driving.IngestionService
	Retrieval driving.RetrievalService

	// Answer is nil when no generation backend could be initialised.
	Answer driving.AnswerService

	Index   driving.IndexService
	Watcher Watcher

	// Close releases the adapters behind the ports.
	Close func() error
}

// Options carry the global flags into a Bootstrap.
type Options struct {
	// ConfigPath overrides ~/.pdfqa/config.toml.
	ConfigPath string

	// Store overrides the configured vector store backend.
	Store domain.StoreBackend

	// SettingsOnly skips building the pipeline.
	SettingsOnly bool

	// Overlay applies command flags to the loaded settings.
	Overlay func(*domain.AppSettings)
}

// Bootstrap wires the driving ports for a command.
type Bootstrap func(ctx context.Context, opts Options) (*Ports, error)

// Command annotations controlling the bootstrap.
const (
	annotationBootstrap = "pdfqa/bootstrap"
	bootstrapNone       = "none"
	bootstrapSettings   = "settings"
)

var (
	bootstrap  Bootstrap
	closePorts func() error

	// settingsOverlays map a command to the settings its flags override.
	settingsOverlays = map[*cobra.Command]func(*cobra.Command, *domain.AppSettings){}
)

var rootCmd = &cobra.Command{
	Use:   "pdfqa",
	Short: "Ask questions about a folder of PDFs",
	Long: `pdfqa indexes PDF documents into a vector store and answers questions
grounded in the most relevant passages.

Index a directory, then ask:
  pdfqa ingest ./data
  pdfqa ask "What is the refund policy?"`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.pdfqa/config.toml)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "vector store backend: sqlite, memory, milvus or qdrant")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the function that wires the driving ports.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if closeErr := shutdown(); closeErr != nil {
		logger.Warn("Closing adapters: %v", closeErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	mode := cmd.Annotations[annotationBootstrap]
	if bootstrap == nil || mode == bootstrapNone {
		return nil
	}

	store := domain.StoreBackend(storeFlag)
	if store != "" && !store.IsValid() {
		return fmt.Errorf("unknown store %q: %w", storeFlag, domain.ErrInvalidInput)
	}

	opts := Options{
		ConfigPath:   configPath,
		Store:        store,
		SettingsOnly: mode == bootstrapSettings,
	}
	if overlay, ok := settingsOverlays[cmd]; ok {
		opts.Overlay = func(s *domain.AppSettings) {
			overlay(cmd, s)
		}
	}

	ports, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return err
	}
	usePorts(ports)
	return nil
}

func usePorts(p *Ports) {
	settingsService = p.Settings
	ingestionService = p.Ingestion
	retrievalService = p.Retrieval
	answerService = p.Answer
	indexService = p.Index
	directoryWatcher = p.Watcher
	closePorts = p.Close
}

func shutdown() error {
	if closePorts == nil {
		return nil
	}
	err := closePorts()
	closePorts = nil
	return err
}

// errNotConfigured reports a port the bootstrap did not provide.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
