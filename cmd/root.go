package cmd

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	logger "keyfort/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	verbose bool
	debug   bool
	Logger  logger.Logger
)

var RootCmd = &cobra.Command{
	Use:   "keyfort",
	Short: "Keyfort - encrypt files and directories for at-rest storage",
	Long: `Keyfort encrypts files or directories with hybrid RSA+AES cryptography
and manages the key pairs behind it.

Features:
  - Generate and password-protect RSA key pairs
  - Encrypt files or whole directories into a single archive
  - Import and export key pairs in PEM format
  - Back up and restore the entire keyring, encrypted

Run 'keyfort help <command>' for more details on a specific command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		Logger = logger.Logger{
			Verbose: verbose,
			Debug:   debug,
		}
		Logger.Debugf("Initializing keyfort with verbose=%t, debug=%t", verbose, debug)
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Welcome to Keyfort! Run 'keyfort --help' to see available commands.")
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the Keyfort version",
	Run: func(cmd *cobra.Command, args []string) {
		figure.NewFigure("keyfort", "", true).Print()
		fmt.Printf("version %s\n", Version)
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(keysCmd)
	RootCmd.AddCommand(encryptCmd)
	RootCmd.AddCommand(decryptCmd)
	RootCmd.AddCommand(backupCmd)
	RootCmd.AddCommand(restoreCmd)
	RootCmd.AddCommand(historyCmd)
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
