package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	kferrors "keyfort/internal/errors"
)

var hintClear bool

func init() {
	keysHintCmd.Flags().BoolVar(&hintClear, "clear", false, "remove the stored hint")
}

var keysHintCmd = &cobra.Command{
	Use:   "hint <name> [hint text]",
	Short: "Show or set a key pair's password hint",
	Long: `Shows the stored password hint when called with just a name, sets it when
hint text is given, and removes it with --clear.`,
	Args: cobra.MinimumNArgs(1),
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
				fmt.Println(color.RedString("✗") + " No key pair named " + color.CyanString(name))
				return nil
			}
			return Logger.ErrorfAndReturn("failed to look up key pair: %v", err)
		}

		switch {
		case hintClear:
			if err := store.SetHint(record.ID, ""); err != nil {
				return Logger.ErrorfAndReturn("failed to clear hint: %v", err)
			}
			fmt.Println(color.GreenString("✓") + " Cleared hint for " + color.CyanString(name))
		case len(args) > 1:
			hint := args[1]
			if err := store.SetHint(record.ID, hint); err != nil {
				return Logger.ErrorfAndReturn("failed to set hint: %v", err)
			}
			fmt.Println(color.GreenString("✓") + " Set hint for " + color.CyanString(name))
		case record.Hint == "":
			fmt.Println("No hint stored for " + color.CyanString(name))
		default:
			fmt.Printf("Hint for %s: %s\n", color.CyanString(name), record.Hint)
		}
		return nil
	},
}
