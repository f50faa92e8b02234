package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List key pairs in the keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open keyring: %v", err)
		}
		defer closeStore()

		records := store.List()
		if len(records) == 0 {
			fmt.Println("No key pairs in the keyring. Run " + color.YellowString("keyfort keys generate <name>") + " to create one.")
			return nil
		}

		for _, record := range records {
			protection := color.YellowString("unprotected")
			if record.Protected {
				protection = color.GreenString("protected")
			}

			fmt.Printf("%s  %s  created %s\n",
				color.CyanString("%-20s", record.Name),
				protection,
				record.CreatedAt.Local().Format("2006-01-02 15:04"),
			)
			if record.Hint != "" {
				fmt.Printf("    hint: %s\n", record.Hint)
			}
		}
		return nil
	},
}
