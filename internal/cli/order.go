package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/schemaevo/pkg/model"
	"github.com/matzehuels/schemaevo/pkg/ordering"
	"github.com/matzehuels/schemaevo/pkg/scenario"
)

type orderOpts struct {
	diagram string
	steps   bool
}

// orderCommand creates the order command.
func (c *CLI) orderCommand() *cobra.Command {
	var opts orderOpts

	cmd := &cobra.Command{
		Use:   "order [scenario.toml]",
		Short: "Print PSM trees in creation order",
		Long: `Print the nodes of every PSM diagram in an order where each node follows
the nodes it depends on. This is the order in which branching recreates
the trees.

By default the initial project is ordered; with --steps the scenario is run
first and the latest project is ordered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOrder(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.diagram, "diagram", "d", "", "only order the named PSM diagram")
	cmd.Flags().BoolVar(&opts.steps, "steps", false, "run the scenario steps first")

	return cmd
}

func (c *CLI) runOrder(ctx context.Context, path string, opts orderOpts) error {
	logger := loggerFromContext(ctx)
	s, err := loadScenario(ctx, path)
	if err != nil {
		return err
	}

	var p *model.Project
	if opts.steps {
		res, err := s.Run(ctx, scenario.Options{Logger: logger})
		if err != nil {
			return fmt.Errorf("run scenario: %w", err)
		}
		p = res.Current
	} else {
		space := model.NewSpace()
		space.SetLogger(logger)
		if p, err = s.Build(space); err != nil {
			return fmt.Errorf("build project: %w", err)
		}
	}

	found := false
	for _, d := range p.ElementsOfKind(model.KindPSMDiagram) {
		if opts.diagram != "" && d.Name != opts.diagram {
			continue
		}
		found = true
		order, ok := ordering.InPSMOrder(p, d.Roots, true)
		if !ok {
			printError("Diagram %s: dependency cycle", d.Name)
			return fmt.Errorf("order diagram %q: dependency cycle", d.Name)
		}
		fmt.Println(StyleTitle.Render(d.Name) + " " + StyleDim.Render(fmt.Sprintf("(%d nodes)", len(order))))
		for i, id := range order {
			e := p.Element(id)
			printTreeNode(i, e, depth(e))
		}
		printNewline()
	}
	if !found {
		if opts.diagram != "" {
			return fmt.Errorf("no PSM diagram %q", opts.diagram)
		}
		printWarning("No PSM diagrams in %s", path)
	}
	return nil
}

// depth counts the tree nodes above e.
func depth(e *model.Element) int {
	n := 0
	seen := map[model.ID]bool{e.ID(): true}
	for up := e.Project().Element(model.TreeParent(e)); up != nil; up = e.Project().Element(model.TreeParent(up)) {
		if seen[up.ID()] {
			break
		}
		seen[up.ID()] = true
		n++
	}
	return n
}
