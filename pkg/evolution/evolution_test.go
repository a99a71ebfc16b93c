package evolution

import (
	"context"
	"testing"

	"github.com/matzehuels/schemaevo/pkg/branch"
	"github.com/matzehuels/schemaevo/pkg/errors"
	"github.com/matzehuels/schemaevo/pkg/model"
	"github.com/matzehuels/schemaevo/pkg/version"
)

func check(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// history holds a PSM tree R { A, C, assoc 1..1 -> K } in v1 and its
// branch in v2.
type history struct {
	s          *model.Space
	p1, p2     *model.Project
	v1, v2     *version.Version
	r, a, c, k *model.Element
	assoc      *model.Element
}

func newHistory(t *testing.T) *history {
	t.Helper()
	h := &history{s: model.NewSpace()}
	h.p1 = h.s.NewProject("doc")
	d := h.p1.NewPSMDiagram("tree")
	var err error
	h.r, err = h.p1.NewPSMClass(d.ID(), "R", model.None)
	check(t, err)
	h.r.ElementLabel = "r"
	h.a, err = h.p1.NewContentContainer(h.r.ID(), "A")
	check(t, err)
	h.c, err = h.p1.NewContentContainer(h.r.ID(), "C")
	check(t, err)
	h.assoc, h.k, err = h.p1.AddChildClass(h.r.ID(), "K", model.None, 1, 1)
	check(t, err)

	h.p2, err = branch.Project(context.Background(), h.s, h.p1, branch.Options{})
	check(t, err)
	h.v1, h.v2 = h.p1.Version(), h.p2.Version()
	return h
}

// in returns e's incarnation in v2.
func (h *history) in(e *model.Element) *model.Element { return e.InVersion(h.v2) }

func TestDetect_AddedScenario(t *testing.T) {
	h := newHistory(t)
	b, err := h.p2.NewContentContainer(h.in(h.r).ID(), "B")
	check(t, err)

	added := Detect(SuperordinateComponentAdded, h.v1, h.v2, h.r)
	if len(added) != 1 {
		t.Fatalf("added = %v, want one change", added)
	}
	c := added[0].(*ComponentAdded)
	if c.Component != b {
		t.Errorf("added component = %v, want B", c.Component)
	}
	if c.Scope() != ScopeSuperordinateComponents || c.EditType() != Addition {
		t.Errorf("classified as %s %s", c.Scope(), c.EditType())
	}
	if c.Subject() != h.in(h.r) || c.OldVersion() != h.v1 || c.NewVersion() != h.v2 {
		t.Error("change does not reference the new parent and both versions")
	}
	if err := c.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	if removed := Detect(SuperordinateComponentRemoved, h.v1, h.v2, h.r); len(removed) != 0 {
		t.Errorf("removed = %v, want none", removed)
	}
}

func TestDetect_MoveIsNotAddition(t *testing.T) {
	h := newHistory(t)
	// A moves under C; it exists in v1, so it is not an addition to C.
	check(t, h.p2.MoveComponent(h.in(h.a).ID(), h.in(h.c).ID(), 0))

	if got := Detect(SuperordinateComponentAdded, h.v1, h.v2, h.c); len(got) != 0 {
		t.Errorf("added under C = %v, want none", got)
	}
	if got := Detect(SuperordinateComponentRemoved, h.v1, h.v2, h.r); len(got) != 0 {
		t.Errorf("removed from R = %v, want none", got)
	}
}

func TestDetect_Removed(t *testing.T) {
	h := newHistory(t)
	_, err := h.p2.Remove(h.in(h.a).ID())
	check(t, err)

	removed := Detect(SuperordinateComponentRemoved, h.v1, h.v2, h.in(h.r))
	if len(removed) != 1 {
		t.Fatalf("removed = %v, want one change", removed)
	}
	c := removed[0].(*ComponentRemoved)
	if c.Component != h.a || c.Subject() != h.r || c.EditType() != Removal {
		t.Errorf("change = %v", c)
	}
	if err := c.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestDetect_AddedMatchesLookup(t *testing.T) {
	h := newHistory(t)
	r2 := h.in(h.r)
	_, err := h.p2.NewAttributeContainer(r2.ID())
	check(t, err)
	_, err = h.p2.NewContentChoice(r2.ID())
	check(t, err)

	want := map[model.ID]bool{}
	for _, id := range r2.Components {
		if h.s.Element(id).InVersion(h.v1) == nil {
			want[id] = true
		}
	}
	got := Detect(SuperordinateComponentAdded, h.v1, h.v2, h.r)
	if len(got) != len(want) {
		t.Fatalf("got %d changes, want %d", len(got), len(want))
	}
	for _, c := range got {
		if !want[c.(*ComponentAdded).Component.ID()] {
			t.Errorf("unexpected change %v", c)
		}
	}
}

func TestInvalidationFlags(t *testing.T) {
	tests := []struct {
		name           string
		build          func(t *testing.T, p *model.Project, r, choice *model.Element) *model.Element
		attrs, content bool
	}{
		{
			name: "attribute container",
			build: func(t *testing.T, p *model.Project, r, _ *model.Element) *model.Element {
				e, err := p.NewAttributeContainer(r.ID(), model.Attribute{Name: "id"})
				check(t, err)
				return e
			},
			attrs: true,
		},
		{
			name: "content container",
			build: func(t *testing.T, p *model.Project, r, _ *model.Element) *model.Element {
				e, err := p.NewContentContainer(r.ID(), "extra")
				check(t, err)
				return e
			},
			content: true,
		},
		{
			name: "optional association",
			build: func(t *testing.T, p *model.Project, r, _ *model.Element) *model.Element {
				a, c, err := p.AddChildClass(r.ID(), "Opt", model.None, 0, 1)
				check(t, err)
				c.ElementLabel = "opt"
				return a
			},
		},
		{
			name: "mandatory association to labelled class",
			build: func(t *testing.T, p *model.Project, r, _ *model.Element) *model.Element {
				a, c, err := p.AddChildClass(r.ID(), "Req", model.None, 1, 1)
				check(t, err)
				c.ElementLabel = "req"
				return a
			},
			content: true,
		},
		{
			name: "inside content choice",
			build: func(t *testing.T, p *model.Project, _, choice *model.Element) *model.Element {
				e, err := p.NewContentContainer(choice.ID(), "alt")
				check(t, err)
				return e
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHistory(t)
			choice, err := h.p1.NewContentChoice(h.a.ID())
			check(t, err)
			// rebranch so the choice exists in both versions
			p2, err := branch.Project(context.Background(), h.s, h.p1, branch.Options{})
			check(t, err)
			v2 := p2.Version()
			r2, choice2 := h.r.InVersion(v2), choice.InVersion(v2)

			added := tt.build(t, p2, r2, choice2)
			parent := h.s.Element(added.Parent)
			changes := Detect(SuperordinateComponentAdded, h.v1, v2, parent)
			if len(changes) != 1 {
				t.Fatalf("changes = %v, want one", changes)
			}
			c := changes[0]
			if got := c.InvalidatesAttributes(); got != tt.attrs {
				t.Errorf("InvalidatesAttributes() = %v, want %v", got, tt.attrs)
			}
			if got := c.InvalidatesContent(); got != tt.content {
				t.Errorf("InvalidatesContent() = %v, want %v", got, tt.content)
			}
		})
	}
}

func TestDetect_Reordered(t *testing.T) {
	h := newHistory(t)
	check(t, h.p2.MoveComponent(h.in(h.c).ID(), h.in(h.r).ID(), 0))

	got := Detect(SuperordinateComponentReordered, h.v1, h.v2, h.r)
	if len(got) != 2 {
		t.Fatalf("reordered = %v, want A and C", got)
	}
	for _, c := range got {
		ro := c.(*ComponentReordered)
		if ro.EditType() != Sedentary || ro.InvalidatesAttributes() {
			t.Errorf("unexpected classification %v", ro)
		}
		if !ro.InvalidatesContent() {
			t.Errorf("reordering content containers should invalidate content: %v", ro)
		}
		if err := ro.Verify(); err != nil {
			t.Errorf("Verify() error = %v", err)
		}
	}
}

func TestDetect_Cardinality(t *testing.T) {
	h := newHistory(t)
	check(t, h.p2.SetBounds(h.in(h.assoc).ID(), 0, -1))

	for _, subject := range []*model.Element{h.r, h.assoc} {
		got := Detect(AssociationCardinalityChanged, h.v1, h.v2, subject)
		if len(got) != 1 {
			t.Fatalf("Detect(%v) = %v, want one change", subject, got)
		}
		cc := got[0].(*CardinalityChanged)
		if cc.OldLower != 1 || cc.OldUpper != 1 || cc.NewLower != 0 || cc.NewUpper != -1 {
			t.Errorf("bounds = %d..%d -> %d..%d", cc.OldLower, cc.OldUpper, cc.NewLower, cc.NewUpper)
		}
		if err := cc.Verify(); err != nil {
			t.Errorf("Verify() error = %v", err)
		}
	}
}

func TestDetectAll_Verify(t *testing.T) {
	h := newHistory(t)
	_, err := h.p2.NewContentContainer(h.in(h.r).ID(), "B")
	check(t, err)
	_, err = h.p2.Remove(h.in(h.a).ID())
	check(t, err)

	changes, err := DetectAll(context.Background(), h.v1, h.v2, h.r, Options{Verify: true})
	if err != nil {
		t.Fatalf("DetectAll() error = %v", err)
	}
	var adds, removes int
	for _, c := range changes {
		switch c.EditType() {
		case Addition:
			adds++
		case Removal:
			removes++
		case Sedentary:
		}
	}
	if adds != 1 || removes != 1 {
		t.Errorf("adds = %d, removes = %d, want 1 and 1", adds, removes)
	}
}

func TestVerify_Failure(t *testing.T) {
	h := newHistory(t)
	// A exists in v1, so claiming it was added is inconsistent.
	bogus := &ComponentAdded{
		base:      base{ScopeSuperordinateComponents, Addition, h.in(h.r), h.v1, h.v2},
		Component: h.in(h.a),
	}
	if err := bogus.Verify(); !errors.Is(err, errors.ErrCodeVerifyFailed) {
		t.Errorf("Verify() = %v, want VERIFY_FAILED", err)
	}
	if !errors.IsProgrammingError(bogus.Verify()) {
		t.Error("verify failures are programming errors")
	}
}

func TestDetectTree(t *testing.T) {
	h := newHistory(t)
	k2 := h.in(h.k)
	_, err := h.p2.NewContentContainer(k2.ID(), "deep")
	check(t, err)
	check(t, h.p2.SetBounds(h.in(h.assoc).ID(), 1, 3))

	changes, err := DetectTree(context.Background(), h.v1, h.v2, h.r, Options{Verify: true})
	check(t, err)
	if len(changes) != 2 {
		t.Fatalf("changes = %v, want the nested addition and one cardinality change", changes)
	}
}

func TestParseDetector(t *testing.T) {
	for _, d := range AllDetectors {
		got, ok := ParseDetector(d.String())
		if !ok || got != d {
			t.Errorf("ParseDetector(%q) = %v, %v", d.String(), got, ok)
		}
		if Detectors[d] == nil {
			t.Errorf("no implementation for %s", d)
		}
	}
}

func TestDetect_UnionMembersAreNotComponents(t *testing.T) {
	s := model.NewSpace()
	p1 := s.NewProject("doc")
	d := p1.NewPSMDiagram("tree")
	r, err := p1.NewPSMClass(d.ID(), "R", model.None)
	check(t, err)
	u, err := p1.NewClassUnion(d.ID())
	check(t, err)
	_, err = p1.NewPSMAssociation(r.ID(), u.ID(), 0, -1)
	check(t, err)
	m1, err := p1.NewPSMClass(d.ID(), "M1", model.None)
	check(t, err)
	check(t, p1.AddToUnion(u.ID(), m1.ID()))

	p2, err := branch.Project(context.Background(), s, p1, branch.Options{})
	check(t, err)
	v1, v2 := p1.Version(), p2.Version()
	m2, err := p2.NewPSMClass(d.InVersion(v2).ID(), "M2", model.None)
	check(t, err)
	check(t, p2.AddToUnion(u.InVersion(v2).ID(), m2.ID()))

	for _, det := range AllDetectors {
		if got := Detect(det, v1, v2, u); len(got) != 0 {
			t.Errorf("%s on a union = %v, want none", det, got)
		}
	}
	changes, err := DetectTree(context.Background(), v1, v2, r, Options{Verify: true})
	check(t, err)
	if len(changes) != 0 {
		t.Errorf("DetectTree() = %v, want none", changes)
	}
}
