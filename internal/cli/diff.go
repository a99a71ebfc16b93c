package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/schemaevo/pkg/errors"
	"github.com/matzehuels/schemaevo/pkg/evolution"
	"github.com/matzehuels/schemaevo/pkg/scenario"
)

// diffCommand creates the diff command.
func (c *CLI) diffCommand() *cobra.Command {
	var detectors []string

	cmd := &cobra.Command{
		Use:   "diff [scenario.toml]",
		Short: "Run a scenario and print the changes of its diff steps",
		Long: `Run every step of a scenario and print the changes found by each diff
step, with the models each change invalidates.

Detectors: ` + detectorNames() + `

Set verify = true in the scenario's [settings] to self-check every change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := parseDetectors(detectors)
			if err != nil {
				return err
			}
			return c.runDiff(cmd.Context(), args[0], ds)
		},
	}

	cmd.Flags().StringSliceVar(&detectors, "detector", nil, "run only these detectors (repeatable)")

	return cmd
}

func detectorNames() string {
	names := make([]string, len(evolution.AllDetectors))
	for i, d := range evolution.AllDetectors {
		names[i] = d.String()
	}
	return strings.Join(names, ", ")
}

func parseDetectors(names []string) ([]evolution.Detector, error) {
	var out []evolution.Detector
	for _, n := range names {
		d, ok := evolution.ParseDetector(n)
		if !ok {
			return nil, fmt.Errorf("unknown detector %q (want one of %s)", n, detectorNames())
		}
		out = append(out, d)
	}
	return out, nil
}

func (c *CLI) runDiff(ctx context.Context, path string, detectors []evolution.Detector) error {
	logger := loggerFromContext(ctx)
	s, err := loadScenario(ctx, path)
	if err != nil {
		return err
	}

	*c.stats = evolutionStats{}
	prog := newProgress(logger)
	res, runErr := s.Run(ctx, scenario.Options{Logger: logger, Detectors: detectors})
	if res == nil {
		return fmt.Errorf("run scenario: %w", runErr)
	}
	prog.done(fmt.Sprintf("Ran %d steps", len(s.Steps)))

	if len(res.Diffs) == 0 {
		printWarning("Scenario has no diff steps")
	}
	for _, d := range res.Diffs {
		fmt.Println(StyleTitle.Render(fmt.Sprintf("%s %s %s", d.From, iconArrow, d.To)) + " " +
			StyleDim.Render(fmt.Sprintf("(%d changes)", len(d.Changes))))
		for _, ch := range d.Changes {
			printChange(ch)
		}
		printNewline()
	}
	printDetail("%d detector runs, %d raw detections", c.stats.runs, c.stats.changes)

	if runErr != nil {
		if errors.Is(runErr, errors.ErrCodeVerifyFailed) {
			printError("%d change(s) failed verification", c.stats.failures)
		}
		return fmt.Errorf("run scenario: %w", runErr)
	}
	return nil
}
