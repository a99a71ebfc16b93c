package scenario

import (
	"github.com/matzehuels/schemaevo/pkg/errors"
	"github.com/matzehuels/schemaevo/pkg/model"
)

// =============================================================================
// Building the Initial Project
// =============================================================================

// Build creates the scenario's initial project in space. The project is not
// versioned; the first branch step versions it.
func (s *Scenario) Build(space *model.Space) (*model.Project, error) {
	name := s.Name
	if name == "" {
		name = "scenario"
	}
	p := space.NewProject(name)
	b := &builder{p: p}
	if err := b.build(s); err != nil {
		space.DiscardProject(p)
		return nil, err
	}
	return p, nil
}

type builder struct {
	p *model.Project
}

func (b *builder) build(s *Scenario) error {
	if err := b.packages(s.Packages); err != nil {
		return err
	}
	for _, t := range s.PrimitiveTypes {
		b.p.NewPrimitiveType(t)
	}
	for _, pr := range s.Profiles {
		b.p.NewProfile(pr.Name, pr.Stereotypes...)
	}
	if err := b.classes(s.Classes); err != nil {
		return err
	}
	if err := b.associations(s.Associations, s.Generalizations); err != nil {
		return err
	}
	// comments on PIM elements exist before the diagrams that list them;
	// comments on PSM nodes follow the trees
	rest, err := b.comments(s.Comments, false)
	if err != nil {
		return err
	}
	if err := b.diagrams(s.Diagrams); err != nil {
		return err
	}
	_, err = b.comments(rest, true)
	return err
}

func (b *builder) packages(pkgs []Package) error {
	pending := pkgs
	for len(pending) > 0 {
		var next []Package
		for _, pk := range pending {
			parent := model.None
			if pk.Parent != "" {
				e := find(b.p, pk.Parent, model.KindPackage)
				if e == nil {
					next = append(next, pk)
					continue
				}
				parent = e.ID()
			}
			if _, err := b.p.NewPackage(parent, pk.Name); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "package %q", pk.Name)
			}
		}
		if len(next) == len(pending) {
			return errors.New(errors.ErrCodeInvalidInput, "package %q: unknown parent %q", next[0].Name, next[0].Parent)
		}
		pending = next
	}
	return nil
}

func (b *builder) pkg(name string) (model.ID, error) {
	if name == "" {
		return model.None, nil
	}
	e := find(b.p, name, model.KindPackage)
	if e == nil {
		return model.None, errors.New(errors.ErrCodeInvalidInput, "unknown package %q", name)
	}
	return e.ID(), nil
}

func (b *builder) classes(classes []Class) error {
	var assocClasses []Class
	for _, c := range classes {
		if len(c.Ends) > 0 {
			assocClasses = append(assocClasses, c)
			continue
		}
		pkg, err := b.pkg(c.Package)
		if err != nil {
			return err
		}
		if _, err := b.p.NewClass(pkg, c.Name, attributes(c.Attributes)...); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "class %q", c.Name)
		}
	}
	// association classes may end at each other; create them as their
	// ends become available
	for len(assocClasses) > 0 {
		var next []Class
		for _, c := range assocClasses {
			ends, ok := b.resolveAll(c.Ends, model.KindClass, model.KindAssociationClass)
			if !ok {
				next = append(next, c)
				continue
			}
			pkg, err := b.pkg(c.Package)
			if err != nil {
				return err
			}
			e, err := b.p.NewAssociationClass(pkg, c.Name, ends...)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "association class %q", c.Name)
			}
			e.Attributes = attributes(c.Attributes)
		}
		if len(next) == len(assocClasses) {
			return errors.New(errors.ErrCodeInvalidInput, "association class %q: unresolved ends %v", next[0].Name, next[0].Ends)
		}
		assocClasses = next
	}
	return nil
}

func (b *builder) resolveAll(names []string, kinds ...model.Kind) ([]model.ID, bool) {
	out := make([]model.ID, 0, len(names))
	for _, n := range names {
		e := find(b.p, n, kinds...)
		if e == nil {
			return nil, false
		}
		out = append(out, e.ID())
	}
	return out, true
}

func (b *builder) associations(assocs []Association, gens []Generalization) error {
	classKinds := []model.Kind{model.KindClass, model.KindAssociationClass}
	for _, g := range gens {
		ids, ok := b.resolveAll([]string{g.General, g.Specific}, classKinds...)
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput, "generalization %s -> %s: unknown class", g.General, g.Specific)
		}
		if _, err := b.p.NewGeneralization(ids[0], ids[1]); err != nil {
			return err
		}
	}
	for _, a := range assocs {
		ends, ok := b.resolveAll(a.Ends, classKinds...)
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput, "association %q: unknown end in %v", a.Name, a.Ends)
		}
		if _, err := b.p.NewAssociation(a.Name, ends...); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "association %q", a.Name)
		}
	}
	return nil
}

func (b *builder) diagrams(diagrams []Diagram) error {
	for _, d := range diagrams {
		if d.Kind == "pim" {
			dia := b.p.NewPIMDiagram(d.Name)
			for _, m := range d.Members {
				e := find(b.p, m, model.KindPackage, model.KindClass, model.KindAssociationClass,
					model.KindAssociation, model.KindGeneralization, model.KindComment)
				if e == nil {
					return errors.New(errors.ErrCodeInvalidInput, "diagram %q: unknown member %q", d.Name, m)
				}
				if err := b.p.AddMember(dia.ID(), e.ID()); err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "diagram %q", d.Name)
				}
			}
			continue
		}
		dia := b.p.NewPSMDiagram(d.Name)
		for i := range d.Roots {
			if _, err := addNode(b.p, dia.ID(), model.None, &d.Roots[i]); err != nil {
				return errors.Wrap(errors.GetCode(err), err, "diagram %q", d.Name)
			}
		}
	}
	return nil
}

func (b *builder) comments(comments []Comment, final bool) ([]Comment, error) {
	var rest []Comment
	for _, c := range comments {
		annotated := model.None
		if c.Annotates != "" {
			e := find(b.p, c.Annotates)
			if e == nil && !final {
				rest = append(rest, c)
				continue
			}
			if e == nil {
				return nil, errors.New(errors.ErrCodeInvalidInput, "comment annotates unknown element %q", c.Annotates)
			}
			annotated = e.ID()
		}
		if _, err := b.p.NewComment(annotated, c.Text); err != nil {
			return nil, err
		}
	}
	return rest, nil
}

// addNode creates n below parent, or as a root of diagram when parent is
// None, then creates its children.
func addNode(p *model.Project, diagram, parent model.ID, n *Node) (*model.Element, error) {
	var (
		e   *model.Element
		err error
	)
	switch n.kind() {
	case nodeClass:
		represents := model.None
		if n.Represents != "" {
			r := find(p, n.Represents, model.KindClass, model.KindAssociationClass)
			if r == nil {
				return nil, errors.New(errors.ErrCodeInvalidInput, "%q represents unknown class %q", n.Name, n.Represents)
			}
			represents = r.ID()
		}
		e, err = p.NewPSMClass(diagram, n.Name, represents)
		if err == nil {
			e.ElementLabel = n.Label
			e.Attributes = attributes(n.Attributes)
			err = attach(p, parent, e, n)
		}
	case nodeUnion:
		e, err = p.NewClassUnion(diagram)
		if err == nil {
			err = attach(p, parent, e, n)
		}
	case nodeContainer:
		e, err = p.NewContentContainer(parent, n.Name)
	case nodeChoice:
		e, err = p.NewContentChoice(parent)
	case nodeAttrs:
		e, err = p.NewAttributeContainer(parent, attributes(n.Attributes)...)
	default:
		err = errors.New(errors.ErrCodeInvalidInput, "unknown node kind %q", n.Kind)
	}
	if err != nil {
		return nil, err
	}

	for i := range n.Children {
		c := &n.Children[i]
		if e.Kind() == model.KindClassUnion {
			if err := unionMember(p, diagram, e, c); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := addNode(p, diagram, e.ID(), c); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// attach joins a new root class or union to parent through an association.
func attach(p *model.Project, parent model.ID, e *model.Element, n *Node) error {
	if parent == model.None {
		return nil
	}
	lower, upper := 1, 1
	if n.Lower != nil {
		lower = *n.Lower
	}
	if n.Upper != nil {
		upper = *n.Upper
	}
	_, err := p.NewPSMAssociation(parent, e.ID(), lower, upper)
	return err
}

// unionMember creates a class inside union.
func unionMember(p *model.Project, diagram model.ID, union *model.Element, n *Node) error {
	if n.kind() != nodeClass {
		return errors.New(errors.ErrCodeInvalidInput, "class union members must be classes, got %s", n.kind())
	}
	member := *n
	member.Children = nil
	e, err := addNode(p, diagram, model.None, &member)
	if err != nil {
		return err
	}
	if err := p.AddToUnion(union.ID(), e.ID()); err != nil {
		return err
	}
	for i := range n.Children {
		if _, err := addNode(p, diagram, e.ID(), &n.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

// find returns the first attached element of p called name whose kind is
// one of kinds. No kinds matches any kind.
func find(p *model.Project, name string, kinds ...model.Kind) *model.Element {
	var candidates []*model.Element
	if len(kinds) == 0 {
		candidates = p.Elements()
	} else {
		candidates = p.ElementsOfKind(kinds...)
	}
	for _, e := range candidates {
		if e.Name == name {
			return e
		}
	}
	return nil
}
