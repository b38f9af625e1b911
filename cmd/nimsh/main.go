package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nimsh/internal/config"
	"nimsh/internal/repl"
	"nimsh/internal/version"
)

var rootCmd = &cobra.Command{
	Use:          "nimsh [flags] [file]",
	Short:        "Interactive Nim shell",
	Long:         `nimsh is an interactive read-eval-print shell for the Nim compiler`,
	Args:         cobra.MaximumNArgs(1),
	RunE:         runShell,
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.Flags().String("nim", "nim", "path to the Nim compiler executable")
	rootCmd.Flags().StringP("source", "s", "", "source file to preload into the session")
	rootCmd.Flags().String("flags", "", "extra flags passed to the compiler")
	rootCmd.Flags().Bool("no-header", false, "suppress the welcome header")
	rootCmd.Flags().Bool("create-rc", false, "recreate the config file with defaults")
	rootCmd.Flags().String("rc-path", "", "config file path override")
	rootCmd.Flags().Bool("show-types", false, "always show types of printed values")
	rootCmd.Flags().Bool("show-color", false, "always colorize output")
	rootCmd.Flags().Bool("no-auto-indent", false, "do not render indentation automatically")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runShell(cmd *cobra.Command, args []string) error {
	nimPath, err := cmd.Flags().GetString("nim")
	if err != nil {
		return fmt.Errorf("failed to get nim flag: %w", err)
	}
	source, err := cmd.Flags().GetString("source")
	if err != nil {
		return fmt.Errorf("failed to get source flag: %w", err)
	}
	extraFlags, err := cmd.Flags().GetString("flags")
	if err != nil {
		return fmt.Errorf("failed to get flags flag: %w", err)
	}
	noHeader, err := cmd.Flags().GetBool("no-header")
	if err != nil {
		return fmt.Errorf("failed to get no-header flag: %w", err)
	}
	createRC, err := cmd.Flags().GetBool("create-rc")
	if err != nil {
		return fmt.Errorf("failed to get create-rc flag: %w", err)
	}
	rcPath, err := cmd.Flags().GetString("rc-path")
	if err != nil {
		return fmt.Errorf("failed to get rc-path flag: %w", err)
	}
	showTypes, err := cmd.Flags().GetBool("show-types")
	if err != nil {
		return fmt.Errorf("failed to get show-types flag: %w", err)
	}
	showColor, err := cmd.Flags().GetBool("show-color")
	if err != nil {
		return fmt.Errorf("failed to get show-color flag: %w", err)
	}
	noAutoIndent, err := cmd.Flags().GetBool("no-auto-indent")
	if err != nil {
		return fmt.Errorf("failed to get no-auto-indent flag: %w", err)
	}

	if rcPath == "" {
		rcPath, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}
	cfg, err := config.Load(rcPath, createRC)
	if err != nil {
		return err
	}
	// Flags only force features on; the config file is the baseline.
	if showTypes {
		cfg.Style.ShowTypes = true
	}
	if showColor {
		cfg.Style.ShowColor = true
	}

	preload := source
	if preload == "" && len(args) == 1 {
		preload = args[0]
	}

	opts := repl.Options{
		NimPath:    nimPath,
		ExtraFlags: strings.Fields(extraFlags),
		Preload:    preload,
		ShowHeader: !noHeader,
		AutoIndent: !noAutoIndent,
		Config:     cfg,
	}
	return repl.Run(cmd.Context(), opts)
}
