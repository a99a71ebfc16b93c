// Package cli implements the schemaevo command-line interface.
//
// Every command takes a scenario file (see package scenario) describing an
// initial project and a list of evolution steps.
//
// # Commands
//
//   - branch: build the initial project and branch it once
//   - order: print PSM trees in creation order
//   - diff: run a scenario and print the changes of its diff steps
//   - versions: run a scenario and print or export the version tree
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// travels in the command context; library packages receive it through
// their options.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/schemaevo/pkg/buildinfo"
	"github.com/matzehuels/schemaevo/pkg/errors"
	"github.com/matzehuels/schemaevo/pkg/observability"
	"github.com/matzehuels/schemaevo/pkg/scenario"
)

// appName is the application name used for display.
const appName = "schemaevo"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	stats *evolutionStats
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), stats: &evolutionStats{}}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// It also routes branch and detection events to the CLI logger.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "schemaevo branches XML schema models and reports their evolution",
		Long: `schemaevo versions conceptual (PIM) and XML-schema (PSM) models.

It builds a project from a scenario file, branches it into new versions,
applies edits, and classifies the differences between versions so that
generated schemas can be regenerated selectively.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	observability.SetBranchHooks(&branchLog{logger: c.Logger})
	observability.SetEvolutionHooks(c.stats)

	root.AddCommand(c.branchCommand())
	root.AddCommand(c.orderCommand())
	root.AddCommand(c.diffCommand())
	root.AddCommand(c.versionsCommand())

	return root
}

// loadScenario reads the scenario file at path.
func loadScenario(ctx context.Context, path string) (*scenario.Scenario, error) {
	s, err := scenario.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	loggerFromContext(ctx).Debug("scenario loaded", "path", path, "steps", len(s.Steps))
	return s, nil
}

// ErrorMessage renders err for the terminal. Codes are dropped except for
// programming errors, which keep them for bug reports.
func ErrorMessage(err error) string {
	if errors.IsProgrammingError(err) {
		return err.Error()
	}
	return errors.UserMessage(err)
}
