package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	kferrors "keyfort/internal/errors"
	"keyfort/internal/history"
	"keyfort/internal/vault"
)

var (
	decryptDestination string
	decryptPassword    string
	decryptWorkers     int
)

func init() {
	decryptCmd.Flags().StringVarP(&decryptDestination, "out", "o", ".", "directory to write decrypted files into")
	decryptCmd.Flags().StringVarP(&decryptPassword, "password", "p", "", "key pair password (prompted if omitted)")
	decryptCmd.Flags().IntVar(&decryptWorkers, "workers", 0, "number of entries to decrypt concurrently (0 = all CPUs)")
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <archive>",
	Short: "Decrypt an archive back into files",
	Long: `Decrypts an archive into the output directory, restoring the original
relative paths.

The key pair referenced by the archive must exist in the keyring with its
private key present. For a protected key pair the password is checked before
any file content is decrypted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]

		store, closeStore, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open keyring: %v", err)
		}
		defer closeStore()

		pw, err := resolvePassword(decryptPassword, "Key pair password: ")
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read password: %v", err)
		}

		spinner, cleanup := startSpinner("Decrypting " + source + "...")
		defer cleanup()

		paths, err := vault.Decrypt(store, source, decryptDestination, pw, vault.DecryptOptions{
			Workers: decryptWorkers,
			Verbose: verbose,
			Debug:   debug,
		})
		if err != nil {
			switch {
			case errors.Is(err, kferrors.ErrInvalidPassword):
				spinner.FinalMSG = color.RedString("✗") + " Incorrect password for this key pair"
				return nil
			case errors.Is(err, kferrors.ErrAuthentication):
				spinner.FinalMSG = color.RedString("✗") + " Archive failed authentication - it may have been tampered with"
				return nil
			case errors.Is(err, kferrors.ErrMalformedArchive):
				spinner.FinalMSG = color.RedString("✗") + " Not a valid archive: " + err.Error()
				return nil
			case errors.Is(err, kferrors.ErrKeyNotFound):
				spinner.FinalMSG = color.RedString("✗") + " The key pair this archive was encrypted under is not in the keyring"
				return nil
			}
			return Logger.ErrorfAndReturn("failed to decrypt: %v", err)
		}

		recordHistory(history.Entry{
			Operation:   "decrypt",
			Source:      source,
			Destination: decryptDestination,
			FilesCount:  len(paths),
		})

		spinner.FinalMSG = color.GreenString("✓") + fmt.Sprintf(" Decrypted %d file(s) to ", len(paths)) + color.CyanString(decryptDestination)
		return nil
	},
}
