package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/bardcheck/bardscan/internal/config"
	"github.com/bardcheck/bardscan/internal/models"
	"github.com/bardcheck/bardscan/internal/selfupdate"
)

var (
	verbose    bool
	noColor    bool
	configPath string
)

// updateNotice is populated asynchronously by PersistentPreRun.
var (
	updateNotice string
	updateDone   = make(chan struct{})
)

var rootCmd = &cobra.Command{
	Use:          "bardscan",
	Short:        "npm dependency vulnerability scanner",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Launch async update check — never blocks
		go func() {
			defer close(updateDone)
			dir, err := config.Dir()
			if err != nil {
				return
			}
			updateNotice = selfupdate.CheckForUpdate(Version, dir)
		}()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Wait for the check to finish (≤2s due to HTTP timeout)
		<-updateDone
		if updateNotice != "" {
			updateStyle := lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#E65100", Dark: "#FFB74D"}).
				Bold(true)
			fmt.Println()
			fmt.Println(updateStyle.Render("⬆ Update available") + "\n" + updateNotice)
			fmt.Println()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		dim := lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9E9E9E"})
		accent := lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#5E35B1", Dark: "#B388FF"}).
			Bold(true)

		fmt.Println(dim.Render("  Usage:"))
		fmt.Println(accent.Render("    bardscan scan <path>") + dim.Render("   Scan an npm project's lockfile"))
		fmt.Println(accent.Render("    bardscan db update") + dim.Render("     Pre-warm the advisory cache"))
		fmt.Println(accent.Render("    bardscan version") + dim.Render("       Print version info"))
		fmt.Println(accent.Render("    bardscan --help") + dim.Render("        Show all commands"))
		fmt.Println()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// thresholdError signals that findings met the fail-on (or fail-on-unknown)
// threshold; it maps to exit code 1 rather than the tool-error code 2.
type thresholdError struct {
	msg string
}

func (e *thresholdError) Error() string { return e.msg }

// ExitCodeFor maps a command error to the process exit code: 1 for a
// tripped severity threshold, 2 for configuration and I/O failures.
func ExitCodeFor(err error) int {
	var te *thresholdError
	if errors.As(err, &te) {
		return 1
	}
	return 2
}

func configConflict(detail string) error {
	return models.NewScanError(models.ConfigConflict, detail)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/bardcheck/config.yaml)")
}
