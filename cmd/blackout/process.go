package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mhoffmann/blackout/internal/config"
	"github.com/mhoffmann/blackout/internal/findings"
	"github.com/mhoffmann/blackout/internal/server"
)

var (
	processOutput     string
	processCategories []string
)

var processCmd = &cobra.Command{
	Use:   "process <input.pdf>",
	Short: "Anonymize a single PDF file",
	Long: `Anonymize one PDF and write the redacted document next to it.

By default every detection category is enabled. Use --categories to
restrict detection, e.g. --categories names,emails.

Examples:
  blackout process letter.pdf
  blackout process letter.pdf -o letter-clean.pdf
  blackout process letter.pdf --categories names,addresses`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		inputPath := args[0]

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()

		input, err := os.ReadFile(inputPath)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		prefs := findings.ParsePreferences(cfg.Detection.Categories, findings.DefaultPreferences(), logger)
		if len(processCategories) > 0 {
			selected := make(map[string]bool, len(processCategories))
			for _, c := range findings.Categories() {
				selected[string(c)] = false
			}
			for _, c := range processCategories {
				selected[c] = true
			}
			prefs = findings.ParsePreferences(selected, prefs, logger)
		}

		stack, err := server.BuildServices(cfg, logger)
		if err != nil {
			return err
		}

		res, err := stack.Orchestrator.Run(ctx, input, prefs, func(completed, total int) {
			fmt.Fprintf(os.Stderr, "\rpage %d/%d", completed, total)
		})
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		outPath := processOutput
		if outPath == "" {
			outPath = defaultOutputPath(inputPath)
		}
		if err := os.WriteFile(outPath, res.Output, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}

		logger.Info("document anonymized", "output", outPath,
			"pages", res.TotalPages, "redactions", res.Redactions,
			"failed_pages", len(res.FailedPages))
		return nil
	},
}

func defaultOutputPath(input string) string {
	ext := ".pdf"
	base := input
	if len(input) > len(ext) && input[len(input)-len(ext):] == ext {
		base = input[:len(input)-len(ext)]
	}
	return base + "-anonymized.pdf"
}

func init() {
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "output file (default: <input>-anonymized.pdf)")
	processCmd.Flags().StringSliceVar(&processCategories, "categories", nil, "restrict detection to these categories")

	rootCmd.AddCommand(processCmd)
}
