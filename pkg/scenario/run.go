package scenario

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemaevo/pkg/branch"
	"github.com/matzehuels/schemaevo/pkg/errors"
	"github.com/matzehuels/schemaevo/pkg/evolution"
	"github.com/matzehuels/schemaevo/pkg/model"
	"github.com/matzehuels/schemaevo/pkg/version"
)

// treeKinds are the kinds step targets and parents resolve to.
var treeKinds = []model.Kind{
	model.KindPSMClass, model.KindContentContainer, model.KindContentChoice,
	model.KindAttributeContainer, model.KindClassUnion,
}

// Options configures Run.
type Options struct {
	Logger *log.Logger

	// Detectors restricts diff steps to the named detectors. Empty runs all.
	Detectors []evolution.Detector
}

// Diff is the outcome of one diff step.
type Diff struct {
	From, To *version.Version
	Changes  []evolution.Change
}

// Result is the state a scenario leaves behind.
type Result struct {
	Space   *model.Space
	Initial *model.Project

	// Current is the project edit steps apply to: the latest branch.
	Current *model.Project

	Diffs []Diff
}

type runner struct {
	s      *Scenario
	opts   Options
	logger *log.Logger
	res    *Result
}

// Run builds the scenario in a fresh space and executes its steps in order.
// On failure the result reflects every step completed before the error.
func (s *Scenario) Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	space := model.NewSpace()
	space.SetLogger(logger)

	p, err := s.Build(space)
	if err != nil {
		return nil, err
	}
	logger.Debug("built initial project", "project", p.Name, "elements", len(p.Elements()))

	r := &runner{s: s, opts: opts, logger: logger, res: &Result{Space: space, Initial: p, Current: p}}
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return r.res, err
		}
		start := time.Now()
		if err := r.step(ctx, st); err != nil {
			return r.res, wrap(err, "step %d (%s)", i+1, st.Action)
		}
		logger.Debug("step done", "step", i+1, "action", st.Action, "took", time.Since(start).Round(time.Microsecond))
	}
	return r.res, nil
}

func wrap(err error, format string, args ...any) error {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return errors.Wrap(code, err, format, args...)
}

func (r *runner) step(ctx context.Context, st Step) error {
	switch st.Action {
	case ActionBranch:
		return r.branch(ctx, st)
	case ActionAdd:
		return r.add(st)
	case ActionRemove:
		return r.remove(st)
	case ActionMove:
		return r.move(st)
	case ActionBounds:
		return r.bounds(st)
	case ActionDeleteVersion:
		return r.deleteVersion(st)
	case ActionDiff:
		return r.diff(ctx, st)
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown action %q", st.Action)
}

// =============================================================================
// Version Steps
// =============================================================================

func (r *runner) branch(ctx context.Context, st Step) error {
	priority, err := r.s.Priority()
	if err != nil {
		return err
	}
	src, err := r.project(st.Version)
	if err != nil {
		return err
	}
	p, err := branch.Project(ctx, r.res.Space, src, branch.Options{
		Priority: priority,
		Initial:  st.Initial,
		Label:    st.Label,
		Logger:   r.logger,
	})
	if err != nil {
		if p != nil {
			r.res.Space.DiscardProject(p)
		}
		return err
	}
	r.res.Current = p
	return nil
}

func (r *runner) deleteVersion(st Step) error {
	v, err := r.version(st.Version)
	if err != nil {
		return err
	}
	if err := branch.DeleteVersion(r.res.Space, v); err != nil {
		return err
	}
	if r.res.Current.Version() == v {
		r.res.Current = r.latest()
	}
	return nil
}

// latest returns the project of the highest remaining version.
func (r *runner) latest() *model.Project {
	vs := r.res.Space.Manager().Versions()
	for i := len(vs) - 1; i >= 0; i-- {
		if p := r.res.Space.ProjectIn(vs[i]); p != nil {
			return p
		}
	}
	return r.res.Initial
}

func (r *runner) version(n int) (*version.Version, error) {
	v, ok := r.res.Space.Manager().Version(n)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "version %d", n)
	}
	return v, nil
}

// project returns the project of version n, or the current project for 0.
func (r *runner) project(n int) (*model.Project, error) {
	if n == 0 {
		return r.res.Current, nil
	}
	v, err := r.version(n)
	if err != nil {
		return nil, err
	}
	p := r.res.Space.ProjectIn(v)
	if p == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no project in %v", v)
	}
	return p, nil
}

// =============================================================================
// Edit Steps
// =============================================================================

func (r *runner) node(p *model.Project, name string) (*model.Element, error) {
	e := find(p, name, treeKinds...)
	if e == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no tree node %q in %s", name, p.Name)
	}
	return e, nil
}

func (r *runner) add(st Step) error {
	p, err := r.project(st.Version)
	if err != nil {
		return err
	}
	parent, err := r.node(p, st.Parent)
	if err != nil {
		return err
	}
	if parent.Kind() == model.KindClassUnion {
		return unionMember(p, parent.Owner, parent, st.Node)
	}
	_, err = addNode(p, parent.Owner, parent.ID(), st.Node)
	return err
}

// remove deletes a tree node. A class or union hanging off an association
// takes the association with it.
func (r *runner) remove(st Step) error {
	p, err := r.project(st.Version)
	if err != nil {
		return err
	}
	e, err := r.node(p, st.Target)
	if err != nil {
		return err
	}
	var assoc *model.Removal
	if e.ParentAssociation != model.None {
		if assoc, err = p.Remove(e.ParentAssociation); err != nil {
			return err
		}
	}
	if _, err := p.Remove(e.ID()); err != nil {
		if assoc != nil {
			if rerr := p.Restore(assoc); rerr != nil {
				r.logger.Error("restore association", "err", rerr)
			}
		}
		return err
	}
	return nil
}

// component returns what moves when target is moved: the node itself, or
// the association above a class or union.
func component(e *model.Element) (model.ID, error) {
	switch e.Kind() {
	case model.KindPSMClass, model.KindClassUnion:
		if e.ParentAssociation == model.None {
			return model.None, errors.New(errors.ErrCodeInvalidInput, "%v is not attached through an association", e)
		}
		return e.ParentAssociation, nil
	}
	return e.ID(), nil
}

func (r *runner) move(st Step) error {
	p, err := r.project(st.Version)
	if err != nil {
		return err
	}
	e, err := r.node(p, st.Target)
	if err != nil {
		return err
	}
	parent, err := r.node(p, st.Parent)
	if err != nil {
		return err
	}
	id, err := component(e)
	if err != nil {
		return err
	}
	return p.MoveComponent(id, parent.ID(), st.Index)
}

func (r *runner) bounds(st Step) error {
	p, err := r.project(st.Version)
	if err != nil {
		return err
	}
	e, err := r.node(p, st.Target)
	if err != nil {
		return err
	}
	if e.ParentAssociation == model.None {
		return errors.New(errors.ErrCodeInvalidInput, "%v is not attached through an association", e)
	}
	return p.SetBounds(e.ParentAssociation, st.Lower, st.Upper)
}

// =============================================================================
// Diff Steps
// =============================================================================

func (r *runner) diff(ctx context.Context, st Step) error {
	from, err := r.version(st.From)
	if err != nil {
		return err
	}
	to, err := r.version(st.To)
	if err != nil {
		return err
	}
	roots, err := r.diffRoots(from, to, st.Root)
	if err != nil {
		return err
	}

	opts := evolution.Options{Detectors: r.opts.Detectors, Verify: r.s.Settings.Verify, Logger: r.logger}
	d := Diff{From: from, To: to}
	var verifyErr error
	for _, root := range roots {
		changes, err := evolution.DetectTree(ctx, from, to, root, opts)
		d.Changes = append(d.Changes, changes...)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			verifyErr = err
		}
	}
	r.res.Diffs = append(r.res.Diffs, d)
	r.logger.Debug("diff", "from", from, "to", to, "changes", len(d.Changes))
	return verifyErr
}

// diffRoots returns the tree roots to compare: the named node, or every
// root of every PSM diagram in either version.
func (r *runner) diffRoots(from, to *version.Version, name string) ([]*model.Element, error) {
	pf, pt := r.res.Space.ProjectIn(from), r.res.Space.ProjectIn(to)
	if pf == nil || pt == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no project for %v or %v", from, to)
	}
	if name != "" {
		e, err := r.node(pf, name)
		if err != nil {
			return nil, err
		}
		return []*model.Element{e}, nil
	}

	var out []*model.Element
	for _, d := range pf.ElementsOfKind(model.KindPSMDiagram) {
		for _, id := range d.Roots {
			if e := pf.Element(id); e != nil {
				out = append(out, e)
			}
		}
	}
	// roots that are new in the target version
	for _, d := range pt.ElementsOfKind(model.KindPSMDiagram) {
		for _, id := range d.Roots {
			if e := pt.Element(id); e != nil && e.InVersion(from) == nil {
				out = append(out, e)
			}
		}
	}
	return out, nil
}
