package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	kferrors "keyfort/internal/errors"
	"keyfort/internal/history"
	"keyfort/internal/vault"
)

var (
	backupKeyName     string
	backupDestination string
	backupPassword    string
)

func init() {
	backupCmd.Flags().StringVarP(&backupKeyName, "key", "k", "", "name of the password-protected key pair to back up under (falls back to the default key)")
	backupCmd.Flags().StringVarP(&backupDestination, "out", "o", ".", "directory to write the backup archive into")
	backupCmd.Flags().StringVarP(&backupPassword, "password", "p", "", "key pair password (prompted if omitted)")
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the entire keyring into an encrypted archive",
	Long: `Snapshots the whole keyring, private keys included, into a single
encrypted archive.

The signing key pair must be password protected, and the password is verified
before the backup is written: a backup you cannot open is worse than none.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open keyring: %v", err)
		}
		defer closeStore()

		keyName, err := resolveKeyName(backupKeyName)
		if err != nil {
			return Logger.ErrorfAndReturn("%v", err)
		}

		pw, err := resolvePassword(backupPassword, "Key pair password: ")
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read password: %v", err)
		}

		spinner, cleanup := startSpinner("Backing up keyring...")
		defer cleanup()

		result, err := vault.Backup(store, keyName, pw, backupDestination, vault.EncryptOptions{
			Verbose: verbose,
			Debug:   debug,
		})
		if err != nil {
			switch {
			case errors.Is(err, kferrors.ErrUnprotectedKey):
				spinner.FinalMSG = color.RedString("✗") + " Key pair " + color.CyanString(keyName) + " has no password - backups require a protected key pair"
				return nil
			case errors.Is(err, kferrors.ErrInvalidPassword):
				spinner.FinalMSG = color.RedString("✗") + " Incorrect password for this key pair"
				return nil
			case errors.Is(err, kferrors.ErrKeyNotFound):
				spinner.FinalMSG = color.RedString("✗") + " No key pair named " + color.CyanString(keyName)
				return nil
			}
			return Logger.ErrorfAndReturn("failed to back up keyring: %v", err)
		}

		recordHistory(history.Entry{
			Operation:   "backup",
			KeyName:     keyName,
			Destination: backupDestination,
			ArchivePath: result.ArchivePath,
		})

		finalMessage := color.GreenString("✓") + " Keyring backed up to " + color.CyanString(result.ArchivePath)
		if result.Warning != "" {
			finalMessage += "\n" + color.YellowString("!") + " " + result.Warning
		}
		spinner.FinalMSG = finalMessage
		return nil
	},
}
