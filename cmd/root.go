package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/aichat/internal"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	archivePath string
	apiKey      string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aichat",
	Short: "Chat with completion APIs from your terminal",
	Long: `A CLI for conversational completion APIs with persistent sessions.

Sessions keep their own history, system prompt and generation parameters,
and can be archived locally and exported in various formats
(JSONL, Markdown, YAML, JSON).

Quick Start:
  aichat ask "What is the capital of France?"   # One-shot question
  aichat chat                                   # Interactive conversation
  aichat chat --character "GLaDOS"              # Chat with a persona
  aichat sessions                               # List archived sessions
  aichat export <session-id> --format md        # Export as Markdown

The API key is read from --api-key or the OPENAI_API_KEY environment
variable.

For detailed usage, see: https://github.com/iksnae/aichat`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&archivePath, "archive", "", "Custom session archive location (path to database file)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (defaults to OPENAI_API_KEY)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// openArchive opens the session archive, creating it on first use.
func openArchive() (*internal.SQLiteStore, error) {
	path := archivePath
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".aichat", "sessions.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return internal.OpenStore(path)
}
