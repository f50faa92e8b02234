package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	kferrors "keyfort/internal/errors"
	"keyfort/internal/keys"
)

var (
	exportDestination string
	exportAll         bool
)

func init() {
	keysExportCmd.Flags().StringVarP(&exportDestination, "out", "o", ".", "directory to write the PEM files into")
	keysExportCmd.Flags().BoolVar(&exportAll, "all", false, "export every key pair, one subdirectory per name")
}

var keysExportCmd = &cobra.Command{
	Use:   "export [name]",
	Short: "Export a key pair as PEM files",
	Long: `Exports a key pair's public key, and its private key when present, as PEM
files in the output directory.

Protected private keys are exported still encrypted, with the key derivation
parameters carried in PEM headers, so the export can be re-imported later
with the same password. Existing files are never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !exportAll && len(args) == 0 {
			return Logger.ErrorfAndReturn("a key pair name is required unless --all is given")
		}
		if exportAll && len(args) > 0 {
			return Logger.ErrorfAndReturn("--all cannot be combined with a key pair name")
		}

		store, closeStore, err := openStore()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open keyring: %v", err)
		}
		defer closeStore()

		spinner, cleanup := startSpinner("Exporting key pair...")
		defer cleanup()

		if exportAll {
			if err := keys.ExportAll(store, exportDestination); err != nil {
				return Logger.ErrorfAndReturn("failed to export key pairs: %v", err)
			}
			spinner.FinalMSG = color.GreenString("✓") + " Exported all key pairs to " + color.CyanString(exportDestination)
			return nil
		}

		name := args[0]
		record, err := store.GetByName(name)
		if err != nil {
			if errors.Is(err, kferrors.ErrKeyNotFound) {
				spinner.FinalMSG = color.RedString("✗") + " No key pair named " + color.CyanString(name)
				return nil
			}
			return Logger.ErrorfAndReturn("failed to look up key pair: %v", err)
		}

		if err := keys.ExportToDir(record, exportDestination); err != nil {
			return Logger.ErrorfAndReturn("failed to export key pair: %v", err)
		}

		spinner.FinalMSG = color.GreenString("✓") + " Exported key pair " + color.CyanString(name) + " to " + color.CyanString(exportDestination)
		return nil
	},
}
