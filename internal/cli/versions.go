package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/schemaevo/pkg/scenario"
	"github.com/matzehuels/schemaevo/pkg/version"
)

type versionsOpts struct {
	dot      string
	svg      string
	detailed bool
}

// versionsCommand creates the versions command.
func (c *CLI) versionsCommand() *cobra.Command {
	var opts versionsOpts

	cmd := &cobra.Command{
		Use:   "versions [scenario.toml]",
		Short: "Run a scenario and show the resulting version tree",
		Long: `Run every step of a scenario and print the version tree it leaves behind.

The tree can also be exported as Graphviz DOT (--dot) or rendered to SVG
(--svg).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runVersions(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.dot, "dot", "", "write the version tree as DOT to this file")
	cmd.Flags().StringVar(&opts.svg, "svg", "", "render the version tree as SVG to this file")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include version numbers and creation counts in exports")

	return cmd
}

func (c *CLI) runVersions(ctx context.Context, path string, opts versionsOpts) error {
	logger := loggerFromContext(ctx)
	s, err := loadScenario(ctx, path)
	if err != nil {
		return err
	}
	res, err := s.Run(ctx, scenario.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("run scenario: %w", err)
	}

	m := res.Space.Manager()
	printInfo("%d version(s), current %s", len(m.Versions()), StyleValue.Render(res.Current.Version().String()))
	printNewline()
	printVersionTree(m)

	if opts.dot == "" && opts.svg == "" {
		return nil
	}
	dot := version.ToDOT(m, version.DOTOptions{Detailed: opts.detailed})
	printNewline()
	if opts.dot != "" {
		if err := os.WriteFile(opts.dot, []byte(dot), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.dot, err)
		}
		printFile(opts.dot)
	}
	if opts.svg != "" {
		prog := newProgress(logger)
		svg, err := version.RenderSVG(ctx, dot)
		if err != nil {
			return fmt.Errorf("render svg: %w", err)
		}
		if err := os.WriteFile(opts.svg, svg, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.svg, err)
		}
		prog.done("Rendered SVG")
		printFile(opts.svg)
	}
	return nil
}
