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
)

var removeForce bool

func init() {
	keysRemoveCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "remove without confirmation")
}

var keysRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a key pair from the keyring",
	Long: `Removes a key pair from the keyring permanently.

Archives encrypted under the removed key pair become undecryptable unless
the private key was exported first.`,
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
				fmt.Println(color.RedString("✗") + " No key pair named " + color.CyanString(name))
				return nil
			}
			return Logger.ErrorfAndReturn("failed to look up key pair: %v", err)
		}

		if !removeForce {
			fmt.Printf("Remove key pair %s? Archives encrypted under it become undecryptable. [y/N]: ", color.CyanString(name))
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

		if err := store.Delete(record.ID); err != nil {
			return Logger.ErrorfAndReturn("failed to remove key pair: %v", err)
		}

		fmt.Println(color.GreenString("✓") + " Removed key pair " + color.CyanString(name))
		return nil
	},
}
