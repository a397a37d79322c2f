// Package commands provides CLI commands for shopchat.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/diogo/shopchat/internal/api"
	"github.com/diogo/shopchat/internal/config"
)

var (
	// Global flags
	sessionFlag string
	outputFlag  string
	rawFlag     bool
	verboseFlag bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shopchat [message]",
	Short: "CLI for the storefront shopping agent",
	Long: `shopchat is a command-line client for the storefront's conversational
shopping agent. It streams agent replies token by token, manages chat
sessions, and mirrors the cart the agent builds for you.

Examples:
  shopchat chat                         Start the interactive chat TUI
  shopchat "Show me red shoes"          Send a single message
  shopchat sessions list                List your conversations
  shopchat history show <session-id>    Print a conversation log
  cat question.txt | shopchat           Read the message from stdin`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("shopchat %s (built %s)\n", Version, BuildTime)
			return nil
		}

		// Check for stdin input
		stat, _ := os.Stdin.Stat()
		hasStdin := (stat.Mode() & os.ModeCharDevice) == 0

		if hasStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			return runQuery(string(data))
		}

		if len(args) > 0 {
			return runQuery(args[0])
		}

		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(setupLogging)

	rootCmd.PersistentFlags().StringVarP(&sessionFlag, "session", "s", "", "Session id to continue (default: a one-off turn)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "V", false, "Enable debug logging")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save the final reply to a file")
	rootCmd.Flags().BoolVar(&rawFlag, "raw", false, "Print the raw reply without decoration")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging configures the global zerolog logger. Warnings only by
// default so swallowed persistence errors stay visible without noise.
func setupLogging() {
	level := zerolog.WarnLevel

	cfg, err := config.LoadConfig()
	if err == nil && cfg.Verbose {
		level = zerolog.DebugLevel
	}
	if verboseFlag {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// newStoreClient builds a client from saved config and credentials
func newStoreClient() (*api.StoreClient, error) {
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, err
	}

	cfg, _ := config.LoadConfig()

	opts := []api.ClientOption{
		api.WithLogger(log.Logger),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, api.WithBaseURL(cfg.BaseURL))
	}

	client, err := api.NewClient(creds, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}
