package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	kferrors "keyfort/internal/errors"
	"keyfort/internal/keys"
)

var (
	protectCurrentPassword string
	protectNewPassword     string
	protectHint            string
	protectProfile         = newKDFProfileValue()
)

func init() {
	keysProtectCmd.Flags().StringVar(&protectCurrentPassword, "current-password", "", "current password (prompted if omitted and the key is protected)")
	keysProtectCmd.Flags().StringVarP(&protectNewPassword, "password", "p", "", "new password (prompted if omitted)")
	keysProtectCmd.Flags().StringVar(&protectHint, "hint", "", "hint to help recall the new password")
	keysProtectCmd.Flags().Var(protectProfile, "kdf-profile", "Argon2id cost profile (default, paranoid)")
}

var keysProtectCmd = &cobra.Command{
	Use:   "protect <name>",
	Short: "Set or change a key pair's password",
	Long: `Re-encrypts a key pair's private key under a new password.

For an already protected key pair the current password is required. A fresh
salt and key derivation run are used, so changing to the same password still
produces a new encrypted blob.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		store, closeStore, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open keyring: %v", err)
		}
		defer closeStore()

		record, err := store.GetByName(name)
		if err != nil {
			if errors.Is(err, kferrors.ErrKeyNotFound) {
				Logger.Errorf("No key pair named %s", name)
				return nil
			}
			return Logger.ErrorfAndReturn("failed to look up key pair: %v", err)
		}

		current := protectCurrentPassword
		if current == "" && record.Protected {
			current, err = resolvePassword("", "Current password: ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read password: %v", err)
			}
		}

		next, err := resolvePassword(protectNewPassword, "New password: ")
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read password: %v", err)
		}

		spinner, cleanup := startSpinner("Re-encrypting private key...")
		defer cleanup()

		if _, err := keys.Reprotect(store, record, current, next, protectHint, protectProfile.params); err != nil {
			switch {
			case errors.Is(err, kferrors.ErrInvalidPassword):
				spinner.FinalMSG = color.RedString("✗") + " The current password is incorrect"
				return nil
			case errors.Is(err, kferrors.ErrWeakPassword):
				spinner.FinalMSG = color.RedString("✗") + " " + err.Error()
				return nil
			}
			return Logger.ErrorfAndReturn("failed to protect key pair: %v", err)
		}

		spinner.FinalMSG = color.GreenString("✓") + " Key pair " + color.CyanString(name) + " is now protected with the new password"
		return nil
	},
}
