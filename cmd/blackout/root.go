package main

import (
	"github.com/spf13/cobra"

	"github.com/mhoffmann/blackout/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "blackout",
	Short: "PDF anonymization with LLM-detected sensitive data",
	Long: `Blackout removes sensitive data from PDF documents.

Each page is analyzed by a language model for personal data (names,
addresses, emails, phone numbers, dates, identification numbers),
detections are validated against the page text, located on the page,
and permanently redacted. Pages without a usable text layer go through
OCR first.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.blackout/config.yaml)",
	)

	rootCmd.AddCommand(versionCmd)
}
