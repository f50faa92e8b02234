package cmd

import (
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	kferrors "keyfort/internal/errors"
	"keyfort/internal/keys"
	"keyfort/internal/utils"
)

var (
	importPublicPath  string
	importPrivatePath string
	importPassword    string
	importHint        string
	importProfile     = newKDFProfileValue()
)

func init() {
	keysImportCmd.Flags().StringVar(&importPublicPath, "public", "", "path to the public key PEM file (required)")
	keysImportCmd.Flags().StringVar(&importPrivatePath, "private", "", "path to the private key PEM file (plaintext or encrypted export)")
	keysImportCmd.Flags().StringVarP(&importPassword, "password", "p", "", "password for the private key (prompted if omitted)")
	keysImportCmd.Flags().StringVar(&importHint, "hint", "", "hint stored alongside a protected private key")
	keysImportCmd.Flags().Var(importProfile, "kdf-profile", "Argon2id cost profile when protecting a plaintext key")
	if err := keysImportCmd.MarkFlagRequired("public"); err != nil {
		Logger.Warnf("Failed to mark flag required: %v", err)
	}
}

var keysImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import an existing key pair from PEM files",
	Long: `Imports a key pair from PEM files and stores it under the given name.

The public key is required. A private key is optional; when both are given
they must be a matching pair. Encrypted private key exports are decrypted
with the password and stored re-protected under it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		if !utils.IsValidKeyName(name) {
			return Logger.ErrorfAndReturn("invalid key pair name %q", name)
		}

		publicPEM, err := os.ReadFile(importPublicPath)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read public key: %v", err)
		}

		var privatePEM []byte
		if importPrivatePath != "" {
			privatePEM, err = os.ReadFile(importPrivatePath)
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read private key: %v", err)
			}
		}

		pw := importPassword
		if pw == "" && privatePEM != nil {
			pw, err = resolvePassword("", "Password for private key (empty for none): ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read password: %v", err)
			}
		}

		store, closeStore, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open keyring: %v", err)
		}
		defer closeStore()

		spinner, cleanup := startSpinner("Importing key pair...")
		defer cleanup()

		_, err = keys.Import(store, name, publicPEM, keys.ImportOptions{
			PrivatePEM: privatePEM,
			Password:   pw,
			Hint:       importHint,
			KDFParams:  importProfile.params,
		})
		if err != nil {
			switch {
			case errors.Is(err, kferrors.ErrKeyMismatch):
				spinner.FinalMSG = color.RedString("✗") + " The public and private keys are not a matching pair"
				return nil
			case errors.Is(err, kferrors.ErrDuplicateName):
				spinner.FinalMSG = color.RedString("✗") + " A key pair named " + color.CyanString(name) + " already exists"
				return nil
			case errors.Is(err, kferrors.ErrInvalidPassword):
				spinner.FinalMSG = color.RedString("✗") + " The password does not decrypt this private key"
				return nil
			}
			return Logger.ErrorfAndReturn("failed to import key pair: %v", err)
		}

		spinner.FinalMSG = color.GreenString("✓") + " Imported key pair " + color.CyanString(name)
		return nil
	},
}
