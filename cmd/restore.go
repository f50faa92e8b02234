package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	kferrors "keyfort/internal/errors"
	"keyfort/internal/history"
	"keyfort/internal/vault"
)

var (
	restorePassword string
	restoreForce    bool
)

func init() {
	restoreCmd.Flags().StringVarP(&restorePassword, "password", "p", "", "key pair password (prompted if omitted)")
	restoreCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "restore without confirmation")
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup archive>",
	Short: "Restore the keyring from an encrypted backup",
	Long: `Replaces the live keyring with the snapshot inside a backup archive.

A plaintext safety copy of the current keyring is written next to it before
the backup is even opened, so the pre-restore state can always be recovered.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]

		store, closeStore, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open keyring: %v", err)
		}
		defer closeStore()

		if !restoreForce {
			fmt.Printf("Replace the current keyring with the contents of %s? [y/N]: ", color.CyanString(source))
			reader := bufio.NewReader(os.Stdin)
			answer, err := reader.ReadString('\n')
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read confirmation: %v", err)
			}
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		pw, err := resolvePassword(restorePassword, "Key pair password: ")
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read password: %v", err)
		}

		spinner, cleanup := startSpinner("Restoring keyring...")
		defer cleanup()

		result, err := vault.Restore(store, source, pw, vault.DecryptOptions{
			Verbose: verbose,
			Debug:   debug,
		})
		if err != nil {
			suffix := ""
			if result.SafetyCopyPath != "" {
				suffix = "\n" + color.YellowString("!") + " The keyring is unchanged; a safety copy was kept at " + color.CyanString(result.SafetyCopyPath)
			}
			switch {
			case errors.Is(err, kferrors.ErrInvalidPassword):
				spinner.FinalMSG = color.RedString("✗") + " Incorrect password for the backup's key pair" + suffix
				return nil
			case errors.Is(err, kferrors.ErrAuthentication):
				spinner.FinalMSG = color.RedString("✗") + " Backup failed authentication - it may have been tampered with" + suffix
				return nil
			case errors.Is(err, kferrors.ErrMalformedArchive):
				spinner.FinalMSG = color.RedString("✗") + " Not a valid keyring backup: " + err.Error() + suffix
				return nil
			case errors.Is(err, kferrors.ErrKeyNotFound):
				spinner.FinalMSG = color.RedString("✗") + " The backup's key pair is not in the current keyring" + suffix
				return nil
			}
			return Logger.ErrorfAndReturn("failed to restore keyring: %v", err)
		}

		recordHistory(history.Entry{
			Operation:  "restore",
			Source:     source,
			FilesCount: result.Restored,
			SafetyCopy: result.SafetyCopyPath,
		})

		spinner.FinalMSG = color.GreenString("✓") + fmt.Sprintf(" Restored %d key pair(s)", result.Restored) +
			"\n" + color.YellowString("!") + " Previous keyring saved to " + color.CyanString(result.SafetyCopyPath)
		return nil
	},
}
