package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"keyfort/internal/configs"
	kferrors "keyfort/internal/errors"
)

var keysDefaultCmd = &cobra.Command{
	Use:   "default [name]",
	Short: "Show or set the default key pair",
	Long: `Shows the default key pair when called without arguments, sets it when a
name is given. Commands that take --key fall back to the default when the
flag is omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open keyring: %v", err)
		}
		defer closeStore()

		config, err := configs.LoadUserConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load config: %v", err)
		}

		if len(args) == 0 {
			if config.DefaultKey == "" {
				fmt.Println("No default key pair configured.")
				return nil
			}
			fmt.Println("Default key pair: " + color.CyanString(config.DefaultKey))
			return nil
		}

		name := args[0]
		if _, err := store.GetByName(name); err != nil {
			if errors.Is(err, kferrors.ErrKeyNotFound) {
				fmt.Println(color.RedString("✗") + " No key pair named " + color.CyanString(name))
				return nil
			}
			return Logger.ErrorfAndReturn("failed to look up key pair: %v", err)
		}

		config.DefaultKey = name
		if err := configs.SaveUserConfig(config); err != nil {
			return Logger.ErrorfAndReturn("failed to save config: %v", err)
		}

		fmt.Println(color.GreenString("✓") + " Default key pair set to " + color.CyanString(name))
		return nil
	},
}
