// Package branch deep-clones a project into a new version.
//
// [Project] copies every element of a project in dependency order and then
// registers each (source, copy) pair with the space's version manager
// against a freshly allocated version. The clone runs in stages:
//
//  1. packages, breadth-first over nesting
//  2. primitive types and profiles
//  3. PIM classes
//  4. comments whose annotated element already has a copy
//  5. association classes, repeated until no more can be cloned
//  6. PIM generalizations and associations
//  7. PIM diagrams, members inserted by kind priority
//  8. PSM diagrams, tree nodes in [ordering.InPSMOrder] order
//  9. diagram references, then the remaining comments
//
// Branching is not transactional. When a stage fails, the partially built
// project is returned together with the error; it is not registered with
// the version manager and must be dropped with [model.Space.DiscardProject].
package branch

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemaevo/pkg/errors"
	"github.com/matzehuels/schemaevo/pkg/model"
	"github.com/matzehuels/schemaevo/pkg/observability"
	"github.com/matzehuels/schemaevo/pkg/ordering"
	"github.com/matzehuels/schemaevo/pkg/version"
)

// DefaultPriority is the order in which PIM diagram members are inserted
// when Options.Priority is empty.
var DefaultPriority = []model.Kind{
	model.KindPackage,
	model.KindPrimitiveType,
	model.KindClass,
	model.KindAssociationClass,
	model.KindGeneralization,
	model.KindAssociation,
	model.KindComment,
}

// Options configures a branch.
type Options struct {
	// Priority orders PIM diagram members by kind. Kinds not listed are
	// inserted last, in their original order.
	Priority []model.Kind

	// Initial forces initial-branch semantics: every source element is
	// promoted to its own first version before the copies are linked. A
	// project that was never versioned is always branched initially.
	Initial bool

	// Label names the new version. Empty means the default "v<n>".
	Label string

	Logger *log.Logger
}

type pair struct {
	src, copy version.Element
}

type cloner struct {
	logger   *log.Logger
	src, dst *model.Project
	priority []model.Kind

	copies map[model.ID]model.ID
	pairs  []pair
	late   [][2]model.ID // diagram, member waiting for a copy
}

// Project branches src into a new project registered under a new version.
// The returned project's Version() is that version.
func Project(ctx context.Context, space *model.Space, src *model.Project, opts Options) (*model.Project, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	priority := opts.Priority
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	initial := opts.Initial || src.Version() == nil
	hooks := observability.Branch()
	hooks.OnBranchStart(ctx, src.Name, initial)

	dst := space.NewProject(src.Name)
	dst.GUID = src.GUID
	c := &cloner{
		logger:   logger,
		src:      src,
		dst:      dst,
		priority: priority,
		copies:   map[model.ID]model.ID{src.ID(): dst.ID()},
		pairs:    []pair{{src, dst}},
	}

	fail := func(err error) (*model.Project, error) {
		hooks.OnBranchComplete(ctx, src.Name, 0, len(c.pairs), time.Since(start), err)
		logger.Error("branch failed", "project", src.Name, "copied", len(c.pairs), "err", err)
		return dst, err
	}

	stages := []struct {
		name string
		run  func() error
	}{
		{"packages", c.packages},
		{"primitive-types", func() error { return c.cloneAll(c.attached(src.PrimitiveTypes)) }},
		{"profiles", func() error { return c.cloneAll(c.attached(src.Profiles)) }},
		{"classes", func() error { return c.cloneAll(src.ElementsOfKind(model.KindClass)) }},
		{"comments", c.annotatingComments},
		{"association-classes", c.associationClasses},
		{"generalizations", func() error { return c.cloneAll(src.ElementsOfKind(model.KindGeneralization)) }},
		{"associations", func() error { return c.cloneAll(src.ElementsOfKind(model.KindAssociation)) }},
		{"pim-diagrams", c.pimDiagrams},
		{"psm-diagrams", c.psmDiagrams},
		{"diagram-references", func() error { return c.cloneAll(c.attached(src.DiagramReferences)) }},
		{"stray-comments", c.strayComments},
		{"late-members", c.lateMembers},
	}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		before := len(c.pairs)
		if err := st.run(); err != nil {
			return fail(errors.Wrap(errors.GetCode(err), err, "branch %q: %s", src.Name, st.name))
		}
		hooks.OnBranchStage(ctx, st.name, len(c.pairs)-before)
		logger.Debug("stage complete", "stage", st.name, "copies", len(c.pairs)-before)
	}

	for _, e := range src.Elements() {
		if _, ok := c.copies[e.ID()]; !ok {
			return fail(errors.New(errors.ErrCodeInternal, "branch %q: %s was not cloned", src.Name, e))
		}
	}
	if err := dst.CopyLists(src, c.translate); err != nil {
		return fail(err)
	}

	v, err := c.register(space.Manager(), initial, opts.Label)
	if err != nil {
		return fail(err)
	}
	hooks.OnBranchComplete(ctx, src.Name, v.Number, len(c.pairs), time.Since(start), nil)
	logger.Info("project branched", "project", src.Name, "from", src.Version(), "version", v, "elements", len(c.pairs)-1)
	return dst, nil
}

func (c *cloner) translate(id model.ID) (model.ID, bool) {
	t, ok := c.copies[id]
	return t, ok
}

func (c *cloner) has(id model.ID) bool {
	_, ok := c.copies[id]
	return ok
}

// ready reports whether every dependency of e already has a copy.
func (c *cloner) ready(e *model.Element) bool {
	for _, dep := range model.Dependencies(e) {
		if !c.has(dep) {
			return false
		}
	}
	return true
}

func (c *cloner) attached(ids []model.ID) []*model.Element {
	out := make([]*model.Element, 0, len(ids))
	for _, id := range ids {
		if e := c.src.Element(id); e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (c *cloner) clone(e *model.Element) (*model.Element, error) {
	if t, ok := c.copies[e.ID()]; ok {
		return c.dst.Element(t), nil
	}
	cp, err := c.dst.CloneElement(e, c.translate)
	if err != nil {
		return nil, err
	}
	c.copies[e.ID()] = cp.ID()
	c.pairs = append(c.pairs, pair{e, cp})
	return cp, nil
}

func (c *cloner) cloneAll(es []*model.Element) error {
	for _, e := range es {
		if _, err := c.clone(e); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// PIM Stages
// =============================================================================

func (c *cloner) packages() error {
	queue := c.attached(c.src.Packages)
	for len(queue) > 0 {
		pkg := queue[0]
		queue = queue[1:]
		if _, err := c.clone(pkg); err != nil {
			return err
		}
		for _, sub := range c.attached(pkg.Components) {
			if sub.Kind() == model.KindPackage {
				queue = append(queue, sub)
			}
		}
	}
	return nil
}

func (c *cloner) annotatingComments() error {
	for _, e := range c.attached(c.src.Comments) {
		if e.Annotated == model.None || c.has(e.Annotated) {
			if _, err := c.clone(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// associationClasses clones association classes in passes until every one
// is done. A pass without progress means the ends depend on each other.
func (c *cloner) associationClasses() error {
	pending := c.src.ElementsOfKind(model.KindAssociationClass)
	for len(pending) > 0 {
		var rest []*model.Element
		for _, e := range pending {
			if !c.ready(e) {
				rest = append(rest, e)
				continue
			}
			if _, err := c.clone(e); err != nil {
				return err
			}
		}
		if len(rest) == len(pending) {
			return errors.New(errors.ErrCodeUnresolvedDependency,
				"%d association classes have ends that can never be cloned, first is %s", len(rest), rest[0])
		}
		pending = rest
	}
	return nil
}

func (c *cloner) pimDiagrams() error {
	rank := func(k model.Kind) int {
		if i := slices.Index(c.priority, k); i >= 0 {
			return i
		}
		return len(c.priority)
	}
	for _, d := range c.attached(c.src.Diagrams) {
		if d.Kind() != model.KindPIMDiagram {
			continue
		}
		cd, err := c.clone(d)
		if err != nil {
			return err
		}
		members := c.attached(d.Members)
		slices.SortStableFunc(members, func(a, b *model.Element) int { return rank(a.Kind()) - rank(b.Kind()) })
		if err := c.addMembers(cd.ID(), members); err != nil {
			return err
		}
	}
	return nil
}

// addMembers shows the copies of members in diagram. Members without a copy
// yet (comments on later elements) are queued for the final stage.
func (c *cloner) addMembers(diagram model.ID, members []*model.Element) error {
	for _, m := range members {
		t, ok := c.copies[m.ID()]
		if !ok {
			c.late = append(c.late, [2]model.ID{diagram, m.ID()})
			continue
		}
		if err := c.dst.AddMember(diagram, t); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// PSM Stages
// =============================================================================

func (c *cloner) psmDiagrams() error {
	for _, d := range c.attached(c.src.Diagrams) {
		if d.Kind() != model.KindPSMDiagram {
			continue
		}
		cd, err := c.clone(d)
		if err != nil {
			return err
		}

		// Roots first; any tree node not reachable from a root follows.
		seeds := slices.Clone(d.Roots)
		var others []*model.Element
		for _, m := range c.attached(d.Members) {
			switch {
			case m.Kind().IsTreeNode():
				if !slices.Contains(seeds, m.ID()) {
					seeds = append(seeds, m.ID())
				}
			default:
				others = append(others, m)
			}
		}
		order, ok := ordering.InPSMOrder(c.src, seeds, true)
		if !ok {
			return errors.New(errors.ErrCodeUnresolvedDependency, "%s contains a dependency cycle", d)
		}
		for _, id := range order {
			if _, err := c.clone(c.src.Element(id)); err != nil {
				return err
			}
		}
		c.logger.Debug("psm diagram cloned", "diagram", d.Name, "nodes", len(order))
		if err := c.addMembers(cd.ID(), others); err != nil {
			return err
		}
	}
	return nil
}

func (c *cloner) strayComments() error {
	for _, e := range c.attached(c.src.Comments) {
		if _, err := c.clone(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *cloner) lateMembers() error {
	for _, l := range c.late {
		t, ok := c.copies[l[1]]
		if !ok {
			return errors.New(errors.ErrCodeUnresolvedDependency, "diagram member %d has no copy", l[1])
		}
		if err := c.dst.AddMember(l[0], t); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Registration
// =============================================================================

// register links every pair under a new version. On an initial branch a
// never-versioned source first receives a root version of its own.
func (c *cloner) register(m *version.Manager, initial bool, label string) (*version.Version, error) {
	if c.src.Version() == nil {
		root, err := m.NewVersion(nil, "")
		if err != nil {
			return nil, err
		}
		c.src.AssignVersion(root)
		m.SetProject(root, c.src.ID())
		c.logger.Debug("root version created", "version", root, "elements", len(root.CreatedIn))
	}
	v, err := m.NewVersion(c.src.Version(), label)
	if err != nil {
		return nil, err
	}
	for _, p := range c.pairs {
		if err := m.RegisterBranch(p.src, p.copy, v, initial, nil); err != nil {
			if derr := m.DeleteVersion(v); derr != nil {
				c.logger.Warn("could not roll back version", "version", v, "err", derr)
			}
			return nil, err
		}
	}
	m.SetProject(v, c.dst.ID())
	return v, nil
}

// DeleteVersion removes v from the space's version tree (see
// [version.Manager.DeleteVersion]) and discards the project registered
// for it.
func DeleteVersion(space *model.Space, v *version.Version) error {
	p := space.ProjectIn(v)
	if err := space.Manager().DeleteVersion(v); err != nil {
		return err
	}
	if p != nil {
		space.DiscardProject(p)
	}
	return nil
}
