// Package cmd provides the CLI commands for SampleVault.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"samplevault/internal/config"
	"samplevault/internal/logging"
	"samplevault/pkg/version"
)

var (
	configPath string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the samplevault CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "samplevault",
		Short: "Resumable batch jobs over an audio sample library",
		Long: `SampleVault maintains a cosine-similarity vector index over audio
sample embeddings and drives checkpointed batch jobs against it:
index building, similarity tagging, name translation and rename
application.

Every job records a checkpoint after each committed batch. Ctrl-C
pauses a running job; 'samplevault jobs resume' picks it up where it
stopped.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("samplevault version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.samplevault/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newTagCmd())
	cmd.AddCommand(newTranslateCmd())
	cmd.AddCommand(newApplyCmd())
	cmd.AddCommand(newJobsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		// Logging must never block the actual work.
		fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		return nil
	}
	loggingCleanup = cleanup
	return nil
}

// Execute runs the CLI with signal-driven cooperative cancellation.
// SIGINT and SIGTERM cancel the command context; a running job observes
// that between batches and pauses.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
