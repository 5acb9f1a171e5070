package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calreminder application
var rootCmd = &cobra.Command{
	Use:   "calreminder",
	Short: "Calendar reminders with email notifications for AI assistants",
	Long: `calreminder keeps reminders for upcoming calendar events and emails
notifications at configurable times before each event.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (default)
  - A standalone notification scheduler`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calreminder version %s\n" .Version}}`)

	// If no subcommand is provided, run the MCP server over stdio
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSchedulerCmd())
	rootCmd.AddCommand(newPendingCmd())
	rootCmd.AddCommand(newTickCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
