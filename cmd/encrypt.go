package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	kferrors "keyfort/internal/errors"
	"keyfort/internal/history"
	"keyfort/internal/utils"
	"keyfort/internal/vault"
)

var (
	encryptKeyName     string
	encryptDestination string
	encryptOutput      string
	encryptWorkers     int
)

func init() {
	encryptCmd.Flags().StringVarP(&encryptKeyName, "key", "k", "", "name of the key pair to encrypt under (falls back to the default key)")
	encryptCmd.Flags().StringVarP(&encryptDestination, "out", "o", ".", "directory to write the archive into")
	encryptCmd.Flags().StringVar(&encryptOutput, "name", "", "archive file name (defaults to the first source's name)")
	encryptCmd.Flags().IntVar(&encryptWorkers, "workers", 0, "number of files to encrypt concurrently (0 = all CPUs)")
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt <file|dir|glob>...",
	Short: "Encrypt files or directories into an archive",
	Long: `Encrypts the given files, directories, and glob patterns into a single
archive under the named key pair's public key.

Directories are walked recursively and their relative structure preserved.
Only the public key is used, so no password is needed to encrypt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open keyring: %v", err)
		}
		defer closeStore()

		keyName, err := resolveKeyName(encryptKeyName)
		if err != nil {
			return Logger.ErrorfAndReturn("%v", err)
		}

		spinner, cleanup := startSpinner("Encrypting " + utils.FormatPaths(args) + "...")
		defer cleanup()

		archivePath, err := vault.Encrypt(store, keyName, args, encryptDestination, vault.EncryptOptions{
			Output:  encryptOutput,
			Workers: encryptWorkers,
			Verbose: verbose,
			Debug:   debug,
		})
		if err != nil {
			switch {
			case errors.Is(err, kferrors.ErrKeyNotFound):
				spinner.FinalMSG = color.RedString("✗") + " No key pair named " + color.CyanString(keyName)
				return nil
			case errors.Is(err, kferrors.ErrNoFilesFound):
				spinner.FinalMSG = color.RedString("✗") + " No files matched " + utils.FormatPaths(args)
				return nil
			}
			return Logger.ErrorfAndReturn("failed to encrypt: %v", err)
		}

		recordHistory(history.Entry{
			Operation:   "encrypt",
			KeyName:     keyName,
			Sources:     args,
			Destination: encryptDestination,
			ArchivePath: archivePath,
		})

		spinner.FinalMSG = color.GreenString("✓") + " Encrypted to " + color.CyanString(archivePath)
		return nil
	},
}
