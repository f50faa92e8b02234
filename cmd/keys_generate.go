package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	kferrors "keyfort/internal/errors"
	"keyfort/internal/keys"
	"keyfort/internal/utils"
)

var (
	generatePassword string
	generateHint     string
	generateNoPass   bool
	generateProfile  = newKDFProfileValue()
)

func init() {
	keysGenerateCmd.Flags().StringVarP(&generatePassword, "password", "p", "", "password protecting the private key (prompted if omitted)")
	keysGenerateCmd.Flags().StringVar(&generateHint, "hint", "", "hint to help recall the password")
	keysGenerateCmd.Flags().BoolVar(&generateNoPass, "no-password", false, "store the private key unprotected (not recommended)")
	keysGenerateCmd.Flags().Var(generateProfile, "kdf-profile", "Argon2id cost profile (default, paranoid)")
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new RSA key pair",
	Long: `Generates a new RSA-4096 key pair stored under the given name.

A password is highly recommended: without one, anyone holding the keyring
file can decrypt data encrypted under this key pair.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		if !utils.IsValidKeyName(name) {
			return Logger.ErrorfAndReturn("invalid key pair name %q", name)
		}

		store, closeStore, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open keyring: %v", err)
		}
		defer closeStore()

		pw := generatePassword
		if pw == "" && !generateNoPass {
			pw, err = resolvePassword("", "Password for new key pair (empty for none): ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read password: %v", err)
			}
		}
		if generateNoPass {
			pw = ""
		}

		if pw == "" {
			Logger.Warnf("Generating an unprotected key pair - anyone with the keyring file can use it")
		}

		spinner, cleanup := startSpinner("Generating key pair...")
		defer cleanup()

		result, err := keys.Generate(store, name, keys.GenerateOptions{
			Password:  pw,
			Hint:      generateHint,
			KDFParams: generateProfile.params,
		})
		if err != nil {
			switch {
			case errors.Is(err, kferrors.ErrDuplicateName):
				spinner.FinalMSG = color.RedString("✗") + " A key pair named " + color.CyanString(name) + " already exists"
				return nil
			case errors.Is(err, kferrors.ErrWeakPassword):
				spinner.FinalMSG = color.RedString("✗") + " " + err.Error()
				return nil
			}
			return Logger.ErrorfAndReturn("failed to generate key pair: %v", err)
		}

		finalMessage := color.GreenString("✓") + " Generated key pair " + color.CyanString(name)
		if result.PasswordWarning != "" {
			finalMessage += "\n" + color.YellowString("!") + " " + result.PasswordWarning
		}
		spinner.FinalMSG = finalMessage
		return nil
	},
}
