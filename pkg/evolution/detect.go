package evolution

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemaevo/pkg/model"
	"github.com/matzehuels/schemaevo/pkg/observability"
	"github.com/matzehuels/schemaevo/pkg/version"
)

// Detector names one change detector.
type Detector int

const (
	SuperordinateComponentAdded Detector = iota
	SuperordinateComponentRemoved
	SuperordinateComponentReordered
	AssociationCardinalityChanged
)

// AllDetectors lists every detector in reporting order.
var AllDetectors = []Detector{
	SuperordinateComponentAdded,
	SuperordinateComponentRemoved,
	SuperordinateComponentReordered,
	AssociationCardinalityChanged,
}

func (d Detector) String() string {
	switch d {
	case SuperordinateComponentAdded:
		return "superordinate-component-added"
	case SuperordinateComponentRemoved:
		return "superordinate-component-removed"
	case SuperordinateComponentReordered:
		return "superordinate-component-reordered"
	case AssociationCardinalityChanged:
		return "association-cardinality-changed"
	}
	return fmt.Sprintf("detector(%d)", int(d))
}

// ParseDetector converts a detector name back to a Detector.
func ParseDetector(s string) (Detector, bool) {
	for _, d := range AllDetectors {
		if d.String() == s {
			return d, true
		}
	}
	return 0, false
}

// DetectFunc compares subject between from and to. subject may be any
// incarnation of the node; detectors resolve it in the versions they need.
type DetectFunc func(from, to *version.Version, subject *model.Element) []Change

// Detectors is the dispatch table from detector to implementation.
var Detectors = map[Detector]DetectFunc{
	SuperordinateComponentAdded:     detectAdded,
	SuperordinateComponentRemoved:   detectRemoved,
	SuperordinateComponentReordered: detectReordered,
	AssociationCardinalityChanged:   detectCardinality,
}

// Detect runs a single detector.
func Detect(d Detector, from, to *version.Version, subject *model.Element) []Change {
	fn, ok := Detectors[d]
	if !ok || subject == nil {
		return nil
	}
	return fn(from, to, subject)
}

func detectAdded(from, to *version.Version, subject *model.Element) []Change {
	parent := subject.InVersion(to)
	if parent == nil || !hasComponents(parent) {
		return nil
	}
	var out []Change
	for _, c := range components(parent) {
		if c.InVersion(from) == nil {
			out = append(out, &ComponentAdded{
				base:      base{ScopeSuperordinateComponents, Addition, parent, from, to},
				Component: c,
			})
		}
	}
	return out
}

func detectRemoved(from, to *version.Version, subject *model.Element) []Change {
	parent := subject.InVersion(from)
	if parent == nil || !hasComponents(parent) {
		return nil
	}
	var out []Change
	for _, c := range components(parent) {
		if c.InVersion(to) == nil {
			out = append(out, &ComponentRemoved{
				base:      base{ScopeSuperordinateComponents, Removal, parent, from, to},
				Component: c,
			})
		}
	}
	return out
}

// detectReordered compares the relative order of the components kept under
// the same parent in both versions.
func detectReordered(from, to *version.Version, subject *model.Element) []Change {
	np, op := subject.InVersion(to), subject.InVersion(from)
	if np == nil || op == nil || !hasComponents(np) {
		return nil
	}

	var kept []*model.Element
	for _, c := range components(np) {
		if oc := c.InVersion(from); oc != nil && oc.Parent == op.ID() {
			kept = append(kept, c)
		}
	}
	var oldOrder []model.ID
	for _, oc := range components(op) {
		if c := oc.InVersion(to); c != nil && slices.Contains(kept, c) {
			oldOrder = append(oldOrder, c.ID())
		}
	}

	var out []Change
	for i, c := range kept {
		j := slices.Index(oldOrder, c.ID())
		if j >= 0 && j != i {
			out = append(out, &ComponentReordered{
				base:      base{ScopeSuperordinateComponents, Sedentary, np, from, to},
				Component: c,
				OldIndex:  j,
				NewIndex:  i,
			})
		}
	}
	return out
}

// detectCardinality checks subject when it is an association, otherwise
// every association among its components.
func detectCardinality(from, to *version.Version, subject *model.Element) []Change {
	np := subject.InVersion(to)
	if np == nil {
		return nil
	}
	candidates := []*model.Element{np}
	if np.Kind() != model.KindPSMAssociation {
		candidates = nil
		for _, c := range components(np) {
			if c.Kind() == model.KindPSMAssociation {
				candidates = append(candidates, c)
			}
		}
	}

	var out []Change
	for _, a := range candidates {
		old := a.InVersion(from)
		if old == nil || (old.Lower == a.Lower && old.Upper == a.Upper) {
			continue
		}
		out = append(out, &CardinalityChanged{
			base:     base{ScopeAssociationCardinality, Sedentary, a, from, to},
			OldLower: old.Lower, OldUpper: old.Upper,
			NewLower: a.Lower, NewUpper: a.Upper,
		})
	}
	return out
}

// hasComponents reports whether e holds subordinate components. Class
// unions list alternative classes, not components.
func hasComponents(e *model.Element) bool {
	return e.Kind().IsSuperordinate()
}

func components(e *model.Element) []*model.Element {
	p := e.Project()
	out := make([]*model.Element, 0, len(e.Components))
	for _, id := range e.Components {
		if c := p.Element(id); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// Running Detectors
// =============================================================================

// Options configures DetectAll and DetectTree.
type Options struct {
	// Detectors to run. Empty means AllDetectors.
	Detectors []Detector

	// Verify self-checks every change. Failures are collected and returned
	// joined; the changes are still returned.
	Verify bool

	Logger *log.Logger
}

func (o Options) detectors() []Detector {
	if len(o.Detectors) == 0 {
		return AllDetectors
	}
	return o.Detectors
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard)
	}
	return o.Logger
}

// DetectAll runs the configured detectors on subject.
func DetectAll(ctx context.Context, from, to *version.Version, subject *model.Element, opts Options) ([]Change, error) {
	var (
		out    []Change
		errs   []error
		hooks  = observability.Evolution()
		logger = opts.logger()
	)
	for _, d := range opts.detectors() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		changes := Detect(d, from, to, subject)
		hooks.OnDetect(ctx, d.String(), subject.String(), len(changes))
		if len(changes) > 0 {
			logger.Debug("changes detected", "detector", d, "subject", subject, "count", len(changes))
		}
		if opts.Verify {
			for _, c := range changes {
				if err := c.Verify(); err != nil {
					hooks.OnVerifyFailed(ctx, c.String(), err)
					logger.Error("change failed verification", "change", c, "err", err)
					errs = append(errs, err)
				}
			}
		}
		out = append(out, changes...)
	}
	return out, stderrors.Join(errs...)
}

// DetectTree runs DetectAll on root and on every node below it, walking
// the tree as it exists in the new version.
func DetectTree(ctx context.Context, from, to *version.Version, root *model.Element, opts Options) ([]Change, error) {
	start := root.InVersion(to)
	if start == nil {
		return DetectAll(ctx, from, to, root, opts)
	}
	p := start.Project()
	var (
		out      []Change
		errs     []error
		seen     = map[model.ID]bool{}
		reported = map[string]bool{}
	)
	queue := []*model.Element{start}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if seen[e.ID()] {
			continue
		}
		seen[e.ID()] = true

		// an association's bounds are seen from its parent and from itself
		changes, err := DetectAll(ctx, from, to, e, opts)
		for _, c := range changes {
			if !reported[c.String()] {
				reported[c.String()] = true
				out = append(out, c)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return out, err
			}
			errs = append(errs, err)
		}

		next := slices.Clone(e.Components)
		if e.Kind() == model.KindPSMAssociation {
			next = append(next, e.Child)
		}
		for _, id := range next {
			if c := p.Element(id); c != nil {
				queue = append(queue, c)
			}
		}
	}
	return out, stderrors.Join(errs...)
}
