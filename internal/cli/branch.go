package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/schemaevo/pkg/branch"
	"github.com/matzehuels/schemaevo/pkg/model"
	"github.com/matzehuels/schemaevo/pkg/version"
)

type branchOpts struct {
	label   string
	initial bool
	times   int
}

// branchCommand creates the branch command.
func (c *CLI) branchCommand() *cobra.Command {
	opts := branchOpts{times: 1}

	cmd := &cobra.Command{
		Use:   "branch [scenario.toml]",
		Short: "Build a scenario's initial project and branch it",
		Long: `Build the initial project described by a scenario and branch it into new
versions, ignoring the scenario's steps.

Each branch deep-copies the latest project and links every copy to its
source in the version table. The version table is validated afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.times < 1 {
				return fmt.Errorf("--times must be at least 1, got %d", opts.times)
			}
			return c.runBranch(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.label, "label", "l", "", "label of the last new version (default: v<n>)")
	cmd.Flags().BoolVar(&opts.initial, "initial", false, "promote every source element to its own first version")
	cmd.Flags().IntVarP(&opts.times, "times", "n", opts.times, "number of successive branches")

	return cmd
}

func (c *CLI) runBranch(ctx context.Context, path string, opts branchOpts) error {
	logger := loggerFromContext(ctx)
	s, err := loadScenario(ctx, path)
	if err != nil {
		return err
	}
	priority, err := s.Priority()
	if err != nil {
		return err
	}

	space := model.NewSpace()
	space.SetLogger(logger)
	p, err := s.Build(space)
	if err != nil {
		return fmt.Errorf("build project: %w", err)
	}

	created := 0
	stop := space.Watch(func(version.Element) { created++ })
	defer stop()

	prog := newProgress(logger)
	cur := p
	for i := range opts.times {
		bo := branch.Options{Priority: priority, Initial: opts.initial, Logger: logger}
		if i == opts.times-1 {
			bo.Label = opts.label
		}
		next, err := branch.Project(ctx, space, cur, bo)
		if err != nil {
			if next != nil {
				space.DiscardProject(next)
			}
			printError("Branch %d of %d failed", i+1, opts.times)
			return fmt.Errorf("branch: %w", err)
		}
		cur = next
	}
	prog.done(fmt.Sprintf("Branched %d time(s)", opts.times))

	if err := space.Manager().Validate(); err != nil {
		return fmt.Errorf("validate version table: %w", err)
	}

	printSuccess("Branched %s", StyleValue.Render(p.Name))
	printKeyValue("guid", p.GUID.String())
	printKeyValue("elements", fmt.Sprintf("%d per version", len(p.Elements())))
	printKeyValue("created", fmt.Sprintf("%d", created))
	printKeyValue("links", fmt.Sprintf("%d", space.Manager().Len()))
	printKeyValue("latest", cur.Version().String())
	printNewline()
	printVersionTree(space.Manager())
	return nil
}
