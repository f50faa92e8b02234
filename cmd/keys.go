package cmd

import (
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage key pairs in the keyring",
	Long:  `Provides generation, import, export, listing, removal, and hint editing of key pairs.`,
}

func init() {
	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysImportCmd)
	keysCmd.AddCommand(keysExportCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysRemoveCmd)
	keysCmd.AddCommand(keysHintCmd)
	keysCmd.AddCommand(keysProtectCmd)
	keysCmd.AddCommand(keysDefaultCmd)
}
