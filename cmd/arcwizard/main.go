// cmd/arcwizard/main.go
//
// This is the entry point for the Arc DAO wizard.
// Without arguments it launches the TUI in the current directory; the
// subcommands cover the same steps for scripts and CI.

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/arc-wizard/internal/config"
	"github.com/kingrea/arc-wizard/internal/logging"
	"github.com/kingrea/arc-wizard/internal/tui"
)

func main() {
	if handlePresetsCommand() || handleExportCommand() || handleValidateCommand() || handleDeployCommand() {
		return
	}
	if len(os.Args) > 1 {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	// Get the current working directory - this is the "project" we're working in
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitWizardDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing %s directory: %v\n", config.WizardDir, err)
		os.Exit(1)
	}

	diag, err := logging.New(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening diagnostic log: %v\n", err)
		os.Exit(1)
	}
	defer diag.Close()

	app, err := tui.NewApp(cwd)
	if err != nil {
		diag.Printf("start: %v", err)
		fmt.Fprintf(os.Stderr, "Error starting wizard: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		diag.Printf("tui: %v", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

const usage = `Usage:
  arcwizard                                  launch the interactive wizard
  arcwizard presets [--speed S] [--json]     show voting presets per scheme
  arcwizard export --org NAME --founder ADDR:REP[:TOKENS] [flags]
                                             write a migration parameter file
  arcwizard validate FILE                    check a migration parameter file
  arcwizard deploy FILE [--network N] [--yes]
                                             run the configured migration command
`
