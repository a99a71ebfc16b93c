package version

import (
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/schemaevo/pkg/errors"
)

type fakeElement struct {
	id    ID
	kind  string
	ver   *Version
	first ID
}

func (f *fakeElement) ElementID() ID         { return f.id }
func (f *fakeElement) ElementKind() string   { return f.kind }
func (f *fakeElement) Version() *Version     { return f.ver }
func (f *fakeElement) SetVersion(v *Version) { f.ver = v }
func (f *fakeElement) FirstVersion() ID      { return f.first }
func (f *fakeElement) SetFirstVersion(id ID) { f.first = id }

type arena struct {
	elems map[ID]*fakeElement
	next  ID
}

func newArena() *arena { return &arena{elems: map[ID]*fakeElement{}, next: 1} }

func (a *arena) Resolve(id ID) (Element, bool) {
	e, ok := a.elems[id]
	if !ok {
		return nil, false
	}
	return e, true
}

func (a *arena) add(kind string, v *Version) *fakeElement {
	e := &fakeElement{id: a.next, kind: kind, ver: v}
	a.next++
	a.elems[e.id] = e
	return e
}

// original creates a first incarnation in v.
func (a *arena) original(kind string, v *Version) *fakeElement {
	e := a.add(kind, v)
	e.first = e.id
	v.CreatedIn = append(v.CreatedIn, e.id)
	return e
}

func mustVersion(t *testing.T, m *Manager, from *Version) *Version {
	t.Helper()
	v, err := m.NewVersion(from, "")
	if err != nil {
		t.Fatalf("NewVersion() error = %v", err)
	}
	return v
}

func mustBranch(t *testing.T, m *Manager, a *arena, src *fakeElement, v *Version) *fakeElement {
	t.Helper()
	cp := a.add(src.kind, nil)
	if err := m.RegisterBranch(src, cp, v, false, nil); err != nil {
		t.Fatalf("RegisterBranch() error = %v", err)
	}
	return cp
}

func TestNewVersion(t *testing.T) {
	m := NewManager(newArena())
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)

	if v1.Number != 1 || v2.Number != 2 {
		t.Errorf("numbers = %d, %d, want 1, 2", v1.Number, v2.Number)
	}
	if v1.Label != "v1" {
		t.Errorf("Label = %q, want %q", v1.Label, "v1")
	}
	if v2.CreatedFrom != v1 || len(v1.Branched) != 1 || v1.Branched[0] != v2 {
		t.Error("v2 should be branched from v1")
	}
	if roots := m.Roots(); len(roots) != 1 || roots[0] != v1 {
		t.Errorf("Roots() = %v, want [v1]", roots)
	}
	if _, err := m.NewVersion(&Version{Number: 99}, ""); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("NewVersion(unmanaged) error = %v, want NOT_FOUND", err)
	}
	if _, err := m.NewVersion(nil, "bad\tlabel"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("NewVersion(bad label) error = %v, want INVALID_INPUT", err)
	}
}

func TestRegisterBranch_Initial(t *testing.T) {
	a := newArena()
	m := NewManager(a)
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)

	src := a.add("class", v1)
	cp := a.add("class", nil)
	if err := m.RegisterBranch(src, cp, v2, true, nil); err != nil {
		t.Fatalf("RegisterBranch() error = %v", err)
	}

	if !IsFirstVersion(src) {
		t.Error("source should be promoted to its own first version")
	}
	if cp.first != src.id || cp.ver != v2 {
		t.Errorf("copy first=%d version=%v, want %d %v", cp.first, cp.ver, src.id, v2)
	}
	if id, ok := m.Lookup(src.id, v2); !ok || id != cp.id {
		t.Errorf("Lookup() = %d, %v, want %d, true", id, ok, cp.id)
	}
}

func TestRegisterBranch_Errors(t *testing.T) {
	a := newArena()
	m := NewManager(a)
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)
	src := a.original("class", v1)
	mustBranch(t, m, a, src, v2)

	tests := []struct {
		name string
		run  func() error
		code errors.Code
	}{
		{"kind mismatch", func() error {
			return m.RegisterBranch(src, a.add("package", nil), v2, false, nil)
		}, errors.ErrCodeKindMismatch},
		{"already linked", func() error {
			return m.RegisterBranch(src, a.add("class", nil), v2, false, nil)
		}, errors.ErrCodeAlreadyLinked},
		{"own first version", func() error {
			return m.RegisterBranch(src, a.add("class", nil), v1, false, nil)
		}, errors.ErrCodeInvariantViolation},
		{"unversioned source", func() error {
			return m.RegisterBranch(a.add("class", nil), a.add("class", nil), v2, false, nil)
		}, errors.ErrCodeInvariantViolation},
		{"missing version", func() error {
			return m.RegisterBranch(src, a.add("class", nil), nil, false, nil)
		}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
			if !errors.IsProgrammingError(err) && tt.code != errors.ErrCodeInvalidInput {
				t.Errorf("error %v should be a programming error", err)
			}
		})
	}
}

func TestRegisterBranch_InitialDerivedSource(t *testing.T) {
	a := newArena()
	m := NewManager(a)
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)
	v3 := mustVersion(t, m, v2)
	x := a.original("class", v1)
	y := mustBranch(t, m, a, x, v2)

	z := a.add("class", nil)
	if err := m.RegisterBranch(y, z, v3, true, nil); err != nil {
		t.Fatalf("RegisterBranch() error = %v", err)
	}

	if !IsFirstVersion(y) {
		t.Fatal("derived source should be promoted")
	}
	if _, ok := m.Lookup(x.id, v2); ok {
		t.Error("old lineage still resolves to the promoted source")
	}
	if got, ok := m.InVersion(y, v1); ok {
		t.Errorf("promoted source resolves back to %v", got)
	}
	if !slices.Contains(v2.CreatedIn, y.id) {
		t.Error("promoted source not listed as created in its version")
	}
	if id, ok := m.Lookup(y.id, v3); !ok || id != z.id || z.first != y.id {
		t.Errorf("Lookup(y, v3) = %d, %v; copy first = %d", id, ok, z.first)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if err := m.DeleteVersion(v2); err != nil {
		t.Fatalf("DeleteVersion() error = %v", err)
	}
	delete(a.elems, y.id)
	if !IsFirstVersion(z) || !slices.Contains(v3.CreatedIn, z.id) {
		t.Error("copy in v3 was not promoted when its first version was deleted")
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() after delete error = %v", err)
	}
}

func TestRegisterBranch_RejectedLeavesSourceUntouched(t *testing.T) {
	a := newArena()
	m := NewManager(a)
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)
	v3 := mustVersion(t, m, v2)
	x := a.original("class", v1)
	y := mustBranch(t, m, a, x, v2)
	mustBranch(t, m, a, y, v3)

	tests := []struct {
		name string
		copy *fakeElement
		code errors.Code
	}{
		{"already linked", a.add("class", nil), errors.ErrCodeAlreadyLinked},
		{"kind mismatch", a.add("package", nil), errors.ErrCodeKindMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.RegisterBranch(y, tt.copy, v3, true, nil)
			if !errors.Is(err, tt.code) {
				t.Fatalf("error = %v, want %s", err, tt.code)
			}
			if y.first != x.id {
				t.Error("rejected registration promoted the source")
			}
			if id, ok := m.Lookup(x.id, v2); !ok || id != y.id {
				t.Error("rejected registration changed the table")
			}
			if slices.Contains(v2.CreatedIn, y.id) {
				t.Error("rejected registration changed CreatedIn")
			}
		})
	}
}

func TestInVersion(t *testing.T) {
	a := newArena()
	m := NewManager(a)
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)
	v3 := mustVersion(t, m, v1)

	e := a.original("class", v1)
	c2 := mustBranch(t, m, a, e, v2)

	tests := []struct {
		name string
		el   Element
		v    *Version
		want Element
	}{
		{"own version", c2, v2, c2},
		{"first version", c2, v1, e},
		{"table entry", e, v2, c2},
		{"absent", e, v3, nil},
		{"nil version", e, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.InVersion(tt.el, tt.v)
			if tt.want == nil {
				if ok {
					t.Errorf("InVersion() = %v, want absent", got)
				}
				return
			}
			if !ok || got != tt.want {
				t.Errorf("InVersion() = %v, %v, want %v", got, ok, tt.want)
			}
		})
	}
}

func TestUnregisterBranch_RoundTrip(t *testing.T) {
	a := newArena()
	m := NewManager(a)
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)
	v3 := mustVersion(t, m, v2)

	e := a.original("class", v1)
	c2 := mustBranch(t, m, a, e, v2)
	c3 := mustBranch(t, m, a, c2, v3)

	d := m.UnregisterBranch(e)

	if got := d.Promoted(); len(got) != 1 || got[0] != c2.id {
		t.Fatalf("Promoted() = %v, want [%d]", got, c2.id)
	}
	if !IsFirstVersion(c2) {
		t.Error("c2 should be its own first version")
	}
	if c3.first != c2.id {
		t.Errorf("c3.first = %d, want %d", c3.first, c2.id)
	}
	if _, ok := m.Lookup(e.id, v2); ok {
		t.Error("lineage of e should no longer reach v2")
	}
	if id, ok := m.Lookup(c2.id, v3); !ok || id != c3.id {
		t.Errorf("Lookup(c2, v3) = %d, %v, want %d", id, ok, c3.id)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	if err := m.ReRegisterBranch(e, d); err != nil {
		t.Fatalf("ReRegisterBranch() error = %v", err)
	}
	if c2.first != e.id || c3.first != e.id {
		t.Errorf("firsts = %d, %d, want %d", c2.first, c3.first, e.id)
	}
	if id, ok := m.Lookup(e.id, v3); !ok || id != c3.id {
		t.Errorf("Lookup(e, v3) = %d, %v, want %d", id, ok, c3.id)
	}
	if len(v2.CreatedIn) != 0 {
		t.Errorf("v2.CreatedIn = %v, want empty after reattach", v2.CreatedIn)
	}
}

func TestUnregisterBranch_DerivedElement(t *testing.T) {
	a := newArena()
	m := NewManager(a)
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)
	v3 := mustVersion(t, m, v2)

	e := a.original("class", v1)
	c2 := mustBranch(t, m, a, e, v2)
	c3 := mustBranch(t, m, a, c2, v3)

	d := m.UnregisterBranch(c2)

	if _, ok := m.Lookup(e.id, v2); ok {
		t.Error("c2 entry should be removed")
	}
	if !IsFirstVersion(c3) {
		t.Error("c3 should be promoted")
	}
	if c2.first != e.id {
		t.Error("detached element keeps its lineage for undo")
	}

	if err := m.ReRegisterBranch(c2, d); err != nil {
		t.Fatalf("ReRegisterBranch() error = %v", err)
	}
	if id, ok := m.Lookup(e.id, v2); !ok || id != c2.id {
		t.Errorf("Lookup(e, v2) = %d, %v, want %d", id, ok, c2.id)
	}
	if id, ok := m.Lookup(e.id, v3); !ok || id != c3.id {
		t.Errorf("Lookup(e, v3) = %d, %v, want %d", id, ok, c3.id)
	}
}

func TestReRegisterBranch_NotIndependent(t *testing.T) {
	a := newArena()
	m := NewManager(a)
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)

	e := a.original("class", v1)
	c2 := mustBranch(t, m, a, e, v2)

	d := m.UnregisterBranch(e)
	c2.first = 999

	if err := m.ReRegisterBranch(e, d); !errors.Is(err, errors.ErrCodeInvariantViolation) {
		t.Errorf("ReRegisterBranch() error = %v, want INVARIANT_VIOLATION", err)
	}
	if err := m.ReRegisterBranch(c2, d); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ReRegisterBranch(wrong element) error = %v, want INVALID_INPUT", err)
	}
}

func TestMakeIndependentOfOlderVersions(t *testing.T) {
	a := newArena()
	m := NewManager(a)
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)
	v3 := mustVersion(t, m, v2)
	v4 := mustVersion(t, m, v1)

	e := a.original("class", v1)
	c2 := mustBranch(t, m, a, e, v2)
	c3 := mustBranch(t, m, a, c2, v3)
	c4 := mustBranch(t, m, a, e, v4)

	m.MakeIndependentOfOlderVersions(c2)

	if !IsFirstVersion(c2) {
		t.Error("c2 should be its own first version")
	}
	if c3.first != c2.id {
		t.Errorf("c3.first = %d, want %d", c3.first, c2.id)
	}
	if c4.first != e.id {
		t.Error("sibling branch v4 must keep the old lineage")
	}
	if got, ok := m.InVersion(c3, v1); ok {
		t.Errorf("c3 should no longer reach v1, got %v", got)
	}
	if got, ok := m.InVersion(c3, v2); !ok || got != c2 {
		t.Errorf("InVersion(c3, v2) = %v, want c2", got)
	}

	// Idempotent on originals.
	m.MakeIndependentOfOlderVersions(e)
	if !IsFirstVersion(e) {
		t.Error("original stays first version")
	}
}

func TestDeleteVersion(t *testing.T) {
	a := newArena()
	m := NewManager(a)
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)
	v3 := mustVersion(t, m, v2)

	x := a.original("class", v1)
	x2 := mustBranch(t, m, a, x, v2)
	x3 := mustBranch(t, m, a, x2, v3)

	y := a.original("class", v2)
	y3 := mustBranch(t, m, a, y, v3)

	m.SetProject(v2, 42)

	if err := m.DeleteVersion(v2); err != nil {
		t.Fatalf("DeleteVersion() error = %v", err)
	}

	if v3.CreatedFrom != v1 {
		t.Errorf("v3.CreatedFrom = %v, want v1", v3.CreatedFrom)
	}
	if len(v1.Branched) != 1 || v1.Branched[0] != v3 {
		t.Errorf("v1.Branched = %v, want [v3]", v1.Branched)
	}
	if !IsFirstVersion(y3) {
		t.Error("y3 should be promoted to first version")
	}
	if x3.first != x.id {
		t.Error("x3 keeps the lineage rooted in v1")
	}
	if _, ok := m.Lookup(x.id, v2); ok {
		t.Error("entries targeting v2 should be purged")
	}
	if _, ok := m.Version(2); ok {
		t.Error("v2 should be unmanaged")
	}
	if _, ok := m.Project(v2); ok {
		t.Error("v2 project should be dropped")
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := m.DeleteVersion(v2); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("second DeleteVersion() error = %v, want NOT_FOUND", err)
	}
	_ = x2
}

func TestDeleteVersion_Root(t *testing.T) {
	a := newArena()
	m := NewManager(a)
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)
	v3 := mustVersion(t, m, v1)

	x := a.original("class", v1)
	x2 := mustBranch(t, m, a, x, v2)
	x3 := mustBranch(t, m, a, x, v3)

	if err := m.DeleteVersion(v1); err != nil {
		t.Fatalf("DeleteVersion() error = %v", err)
	}

	roots := m.Roots()
	if len(roots) != 2 {
		t.Fatalf("Roots() = %v, want 2 roots", roots)
	}
	if !IsFirstVersion(x2) || !IsFirstVersion(x3) {
		t.Error("copies in both branches should be promoted independently")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestValidate_Cycle(t *testing.T) {
	m := NewManager(newArena())
	v1 := mustVersion(t, m, nil)
	v2 := mustVersion(t, m, v1)
	v1.CreatedFrom = v2
	v2.Branched = append(v2.Branched, v1)

	if err := m.Validate(); !errors.Is(err, errors.ErrCodeInvariantViolation) {
		t.Errorf("Validate() error = %v, want INVARIANT_VIOLATION", err)
	}
}

func TestToDOT(t *testing.T) {
	m := NewManager(newArena())
	v1 := mustVersion(t, m, nil)
	mustVersion(t, m, v1)

	dot := ToDOT(m, DOTOptions{Detailed: true})

	for _, want := range []string{"digraph versions", `"v1" -> "v2"`, "created: 0"} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, dot)
		}
	}
}
