package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the invoicefetch application
var rootCmd = &cobra.Command{
	Use:   "invoicefetch",
	Short: "Downloads Gmail PDF attachments that mention your search terms",
	Long: `invoicefetch scans the Gmail messages received within a date window for PDF
attachments, extracts the text of each PDF and saves the ones containing at least
one of the configured search strings into a local folder.

Settings are read from the environment (optionally from a .env file) and can be
overridden by flags. Run 'invoicefetch auth' once to authorize Gmail access.`,
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
	rootCmd.SetVersionTemplate(`{{printf "invoicefetch version %s\n" .Version}}`)

	// If no subcommand is provided, run the fetch command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "fetch")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
