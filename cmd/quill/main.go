// Package main provides the quill CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quill/internal/config"
	"quill/internal/logging"
)

const version = "0.3.0"

var (
	// Global flags
	cfgPath   string
	sessionID string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command. Running quill with no arguments
// starts the interactive chat.
var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "quill - guided content-writing assistant",
	Long: `quill walks you through writing a piece of content in four phases:
context gathering, structure development, content development and refinement.

Every exchange is stored in a Neo4j graph so sessions can be resumed and
exported. Question generation uses the Anthropic API when enabled, with a
deterministic fallback when it is not.

Run without arguments to start an interactive session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger = logging.New(cfg.Logging)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runChat,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the quill version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quill %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "quill.yaml", "path to the configuration file")
	rootCmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session by id")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
