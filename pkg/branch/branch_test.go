package branch

import (
	"context"
	"slices"
	"testing"

	"github.com/matzehuels/schemaevo/pkg/errors"
	"github.com/matzehuels/schemaevo/pkg/model"
)

func check(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// shop builds a project touching every clone stage.
func shop(t *testing.T) (*model.Space, *model.Project) {
	t.Helper()
	s := model.NewSpace()
	p := s.NewProject("shop")

	sales, err := p.NewPackage(model.None, "sales")
	check(t, err)
	billing, err := p.NewPackage(sales.ID(), "billing")
	check(t, err)
	p.NewPrimitiveType("string")
	p.NewProfile("xsd", "element", "attribute")

	customer, err := p.NewClass(sales.ID(), "Customer", model.Attribute{Name: "name", Type: "string", Lower: 1, Upper: 1})
	check(t, err)
	order, err := p.NewClass(sales.ID(), "Order")
	check(t, err)
	invoice, err := p.NewClass(billing.ID(), "Invoice")
	check(t, err)
	line, err := p.NewAssociationClass(billing.ID(), "Line", order.ID(), invoice.ID())
	check(t, err)
	_, err = p.NewGeneralization(order.ID(), invoice.ID())
	check(t, err)
	places, err := p.NewAssociation("places", customer.ID(), order.ID())
	check(t, err)
	_, err = p.NewComment(customer.ID(), "a buyer")
	check(t, err)

	pim := p.NewPIMDiagram("overview")
	for _, id := range []model.ID{customer.ID(), order.ID(), invoice.ID(), line.ID(), places.ID()} {
		check(t, p.AddMember(pim.ID(), id))
	}

	psm := p.NewPSMDiagram("orders")
	root, err := p.NewPSMClass(psm.ID(), "Customer", customer.ID())
	check(t, err)
	root.ElementLabel = "customer"
	_, err = p.NewAttributeContainer(root.ID(), model.Attribute{Name: "id", Type: "int"})
	check(t, err)
	info, err := p.NewContentContainer(root.ID(), "info")
	check(t, err)
	union, err := p.NewClassUnion(psm.ID())
	check(t, err)
	a, err := p.NewPSMClass(psm.ID(), "A", order.ID())
	check(t, err)
	b, err := p.NewPSMClass(psm.ID(), "B", invoice.ID())
	check(t, err)
	check(t, p.AddToUnion(union.ID(), a.ID()))
	check(t, p.AddToUnion(union.ID(), b.ID()))
	_, err = p.NewPSMAssociation(info.ID(), union.ID(), 0, -1)
	check(t, err)
	_, _, err = p.AddChildClass(root.ID(), "Order", order.ID(), 1, 1)
	check(t, err)
	_, err = p.NewPSMGeneralization(a.ID(), b.ID())
	check(t, err)

	note, err := p.NewComment(info.ID(), "grouping")
	check(t, err)
	check(t, p.AddMember(psm.ID(), note.ID()))
	_, err = p.NewDiagramReference(pim.ID(), psm.ID())
	check(t, err)
	return s, p
}

func TestProject_Completeness(t *testing.T) {
	s, p := shop(t)

	p2, err := Project(context.Background(), s, p, Options{})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	v := p2.Version()
	if v == nil || v.Number != 2 || p.Version().Number != 1 {
		t.Fatalf("versions = %v -> %v, want v1 -> v2", p.Version(), v)
	}
	if v.CreatedFrom != p.Version() {
		t.Error("new version not branched from source version")
	}
	if p.InVersion(v) != p2 || p2.InVersion(p.Version()) != p {
		t.Error("project pair not linked")
	}
	if s.ProjectIn(v) != p2 {
		t.Error("project not registered for new version")
	}

	for _, x := range p.Elements() {
		cp := x.InVersion(v)
		if cp == nil {
			t.Errorf("%v has no incarnation in %v", x, v)
			continue
		}
		if cp == x || cp.Kind() != x.Kind() || cp.Name != x.Name || cp.Project() != p2 {
			t.Errorf("%v cloned as %v", x, cp)
		}
		if cp.InVersion(p.Version()) != x {
			t.Errorf("%v does not resolve back to %v", cp, x)
		}
	}
	if len(p2.Elements()) != len(p.Elements()) {
		t.Errorf("copy has %d elements, source %d", len(p2.Elements()), len(p.Elements()))
	}
	if err := s.Manager().Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestProject_StructureTranslated(t *testing.T) {
	s, p := shop(t)
	p2, err := Project(context.Background(), s, p, Options{})
	check(t, err)
	v := p2.Version()

	for _, x := range p.Elements() {
		cp := x.InVersion(v)
		for _, l := range []struct {
			name     string
			src, dst []model.ID
		}{
			{"components", x.Components, cp.Components},
			{"roots", x.Roots, cp.Roots},
			{"specializations", x.Specializations, cp.Specializations},
			{"ends", x.Ends, cp.Ends},
		} {
			if len(l.src) != len(l.dst) {
				t.Errorf("%v %s: %d entries, want %d", cp, l.name, len(l.dst), len(l.src))
				continue
			}
			for i, id := range l.src {
				if s.Element(id).InVersion(v).ID() != l.dst[i] {
					t.Errorf("%v %s[%d] not translated", cp, l.name, i)
				}
			}
		}

		// members are rebuilt in dependency order, not copied
		if len(x.Members) != len(cp.Members) {
			t.Errorf("%v has %d members, want %d", cp, len(cp.Members), len(x.Members))
		}
		for _, id := range x.Members {
			if !slices.Contains(cp.Members, s.Element(id).InVersion(v).ID()) {
				t.Errorf("%v lost member %v", cp, s.Element(id))
			}
		}
		for i, id := range cp.Members {
			for _, dep := range model.Dependencies(s.Element(id)) {
				if j := slices.Index(cp.Members, dep); j < 0 || j > i {
					t.Errorf("member %v precedes dependency %d", s.Element(id), dep)
				}
			}
		}
	}
}

func TestProject_SubsequentBranch(t *testing.T) {
	s, p1 := shop(t)
	p2, err := Project(context.Background(), s, p1, Options{})
	check(t, err)

	extra, err := p2.NewPackage(model.None, "extra")
	check(t, err)
	if !extra.IsFirstVersion() || extra.Version() != p2.Version() {
		t.Fatal("element created in v2 is not an original of v2")
	}

	p3, err := Project(context.Background(), s, p2, Options{Label: "release"})
	check(t, err)
	v1, v3 := p1.Version(), p3.Version()
	if v3.Label != "release" || v3.CreatedFrom != p2.Version() {
		t.Errorf("v3 = %v from %v", v3, v3.CreatedFrom)
	}

	// lineage of v1 elements reaches v3 directly
	for _, x := range p1.Elements() {
		cp := x.InVersion(v3)
		if cp == nil || cp.FirstVersion() != x.ID() {
			t.Errorf("%v: incarnation in v3 = %v", x, cp)
		}
	}
	if got := extra.InVersion(v3); got == nil || got.FirstVersion() != extra.ID() {
		t.Errorf("extra in v3 = %v", got)
	}
	if extra.InVersion(v1) != nil {
		t.Error("extra should not exist in v1")
	}
}

func TestProject_ForcedInitial(t *testing.T) {
	s, p1 := shop(t)
	p2, err := Project(context.Background(), s, p1, Options{})
	check(t, err)
	p3, err := Project(context.Background(), s, p2, Options{Initial: true})
	check(t, err)

	v1, v2, v3 := p1.Version(), p2.Version(), p3.Version()
	for _, x := range p2.Elements() {
		if !x.IsFirstVersion() {
			t.Errorf("%v was not promoted by the initial branch", x)
		}
		if !slices.Contains(v2.CreatedIn, x.ID()) {
			t.Errorf("%v not listed as created in %v", x, v2)
		}
		if cp := x.InVersion(v3); cp == nil || cp.FirstVersion() != x.ID() {
			t.Errorf("%v: copy %v not linked to it", x, cp)
		}
	}
	// the promoted lineages are cut from v1 in both directions
	for _, x := range p1.Elements() {
		if cp := x.InVersion(v2); cp != nil {
			t.Errorf("%v still resolves to %v in %v (back: %v)", x, cp, v2, cp.InVersion(v1))
		}
	}
	for _, y := range p2.Elements() {
		if back := y.InVersion(v1); back != nil {
			t.Errorf("%v resolves back to %v", y, back)
		}
	}
	check(t, s.Manager().Validate())

	check(t, DeleteVersion(s, v2))
	for _, z := range p3.Elements() {
		if s.Element(z.FirstVersion()) == nil || !z.IsFirstVersion() {
			t.Errorf("%v points at a discarded first version %d", z, z.FirstVersion())
		}
	}
	if err := s.Manager().Validate(); err != nil {
		t.Errorf("Validate() after delete error = %v", err)
	}
}

func TestProject_AssociationClassDeadlock(t *testing.T) {
	s := model.NewSpace()
	p := s.NewProject("deadlock")
	pkg, err := p.NewPackage(model.None, "pkg")
	check(t, err)
	a, err := p.NewClass(pkg.ID(), "A")
	check(t, err)
	b, err := p.NewClass(pkg.ID(), "B")
	check(t, err)
	x, err := p.NewAssociationClass(pkg.ID(), "X", a.ID(), b.ID())
	check(t, err)
	y, err := p.NewAssociationClass(pkg.ID(), "Y", a.ID(), x.ID())
	check(t, err)
	x.Ends[1] = y.ID()

	partial, err := Project(context.Background(), s, p, Options{})
	if !errors.Is(err, errors.ErrCodeUnresolvedDependency) {
		t.Fatalf("Project() error = %v, want UNRESOLVED_DEPENDENCY", err)
	}
	if partial == nil || partial.Version() != nil {
		t.Fatal("partial project should be returned unregistered")
	}
	if len(s.Manager().Versions()) != 0 {
		t.Errorf("failed branch created %d versions", len(s.Manager().Versions()))
	}
	s.DiscardProject(partial)
	if len(s.Projects()) != 1 {
		t.Errorf("projects = %d after discard, want 1", len(s.Projects()))
	}
}

func TestProject_PSMCycle(t *testing.T) {
	s := model.NewSpace()
	p := s.NewProject("cycle")
	d := p.NewPSMDiagram("d")
	r, err := p.NewPSMClass(d.ID(), "R", model.None)
	check(t, err)
	a, err := p.NewContentContainer(r.ID(), "A")
	check(t, err)
	b, err := p.NewContentContainer(a.ID(), "B")
	check(t, err)
	a.Parent = b.ID()

	_, err = Project(context.Background(), s, p, Options{})
	if !errors.Is(err, errors.ErrCodeUnresolvedDependency) {
		t.Errorf("Project() error = %v, want UNRESOLVED_DEPENDENCY", err)
	}
}

func TestProject_BadPriority(t *testing.T) {
	s, p := shop(t)
	_, err := Project(context.Background(), s, p, Options{
		Priority: []model.Kind{model.KindAssociation, model.KindClass},
	})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Project() error = %v, want INVALID_INPUT from diagram insertion", err)
	}
}

func TestProject_Canceled(t *testing.T) {
	s, p := shop(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Project(ctx, s, p, Options{}); err == nil {
		t.Error("Project() with canceled context should fail")
	}
}

func TestDeleteVersion(t *testing.T) {
	s := model.NewSpace()
	p1 := s.NewProject("doc")
	_, err := p1.NewPackage(model.None, "base")
	check(t, err)

	p2, err := Project(context.Background(), s, p1, Options{})
	check(t, err)
	born, err := p2.NewPackage(model.None, "born-in-v2")
	check(t, err)
	p3, err := Project(context.Background(), s, p2, Options{})
	check(t, err)

	v1, v2, v3 := p1.Version(), p2.Version(), p3.Version()
	survivor := born.InVersion(v3)
	if survivor == nil || survivor.IsFirstVersion() {
		t.Fatal("copy of v2 element should exist in v3 and derive from v2")
	}

	if err := DeleteVersion(s, v2); err != nil {
		t.Fatalf("DeleteVersion() error = %v", err)
	}
	if v3.CreatedFrom != v1 || !slices.Contains(v1.Branched, v3) {
		t.Errorf("v3 parent = %v, want v1", v3.CreatedFrom)
	}
	if !survivor.IsFirstVersion() || !slices.Contains(v3.CreatedIn, survivor.ID()) {
		t.Error("surviving copy was not promoted to first version")
	}
	if s.ProjectIn(v2) != nil || s.Project(p2.ID()) != nil {
		t.Error("project of deleted version still present")
	}
	base := p1.FindByName("base")
	if got := base.InVersion(v3); got == nil || got.Project() != p3 {
		t.Errorf("base in v3 = %v", got)
	}
	if err := s.Manager().Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
