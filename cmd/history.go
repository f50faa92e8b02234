package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"keyfort/internal/configs"
	"keyfort/internal/history"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "show at most this many entries (0 = all)")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past encrypt, decrypt, backup, and restore operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := configs.InitUserSettings(); err != nil {
			return Logger.ErrorfAndReturn("failed to init user settings: %v", err)
		}

		entries, err := history.Read(configs.UserSettings.HistoryPath)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read history: %v", err)
		}
		if len(entries) == 0 {
			fmt.Println("No operations recorded yet.")
			return nil
		}

		if historyLimit > 0 && len(entries) > historyLimit {
			entries = entries[len(entries)-historyLimit:]
		}

		for _, entry := range entries {
			detail := ""
			switch entry.Operation {
			case "encrypt":
				detail = strings.Join(entry.Sources, ", ") + " -> " + entry.ArchivePath
			case "decrypt":
				detail = fmt.Sprintf("%s -> %s (%d file(s))", entry.Source, entry.Destination, entry.FilesCount)
			case "backup":
				detail = entry.ArchivePath
			case "restore":
				detail = fmt.Sprintf("%s (%d key pair(s), safety copy %s)", entry.Source, entry.FilesCount, entry.SafetyCopy)
			}

			line := fmt.Sprintf("%s  %s", entry.Timestamp, color.CyanString("%-8s", entry.Operation))
			if entry.KeyName != "" {
				line += "key=" + entry.KeyName + "  "
			}
			fmt.Println(line + detail)
		}
		return nil
	},
}
