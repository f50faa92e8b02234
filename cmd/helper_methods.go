package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/briandowns/spinner"

	"keyfort/internal/configs"
	"keyfort/internal/history"
	"keyfort/internal/keyring"
	"keyfort/internal/ui"
	"keyfort/internal/utils"
)

// startSpinner creates and starts a spinner with the given message when not
// in verbose or debug mode. Returns the spinner and a function that should
// be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The
// cleanup function calls ui.EnsureNewline() on the final message before
// printing it.
func startSpinner(message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if !verbose && !debug {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if !verbose && !debug {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// openStore initializes user settings and opens the keyring. The returned
// close function flushes the store and logs any failure.
func openStore() (*keyring.Store, func(), error) {
	if err := configs.InitUserSettings(); err != nil {
		return nil, nil, fmt.Errorf("failed to init user settings: %w", err)
	}

	store, err := keyring.Open(configs.UserSettings.KeyringPath)
	if err != nil {
		return nil, nil, err
	}

	closeStore := func() {
		if err := store.Close(); err != nil {
			Logger.Warnf("Failed to close keyring: %v", err)
		}
	}
	return store, closeStore, nil
}

// resolvePassword returns the --password flag value if set, otherwise prompts
// on the terminal without echo.
func resolvePassword(flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if !utils.IsTerminal() {
		return "", nil
	}
	pw, err := utils.ReadPassphrase(prompt)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// resolveKeyName returns the --key flag value if set, otherwise the
// configured default key. Callers must have initialized user settings first
// (openStore does).
func resolveKeyName(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	config, err := configs.LoadUserConfig()
	if err != nil {
		return "", err
	}
	if config.DefaultKey == "" {
		return "", fmt.Errorf("no key pair given; pass --key or set a default with 'keyfort keys default <name>'")
	}
	return config.DefaultKey, nil
}

// recordHistory appends an operation to the history log, warning on failure.
func recordHistory(entry history.Entry) {
	if configs.UserSettings == nil {
		return
	}
	if err := history.Append(configs.UserSettings.HistoryPath, entry); err != nil {
		Logger.Warnf("Failed to record history entry: %v", err)
	}
}
