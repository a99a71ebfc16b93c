package model

import (
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/schemaevo/pkg/errors"
	"github.com/matzehuels/schemaevo/pkg/version"
)

// Project is one version of a model: the PIM, its diagrams and the PSM
// diagrams derived from it. Each version of a project is a separate Project
// value; they are linked through the space's version manager.
type Project struct {
	id    ID
	space *Space
	ver   *version.Version
	first ID

	Name string
	GUID uuid.UUID

	// Top-level lists in insertion order.
	Packages          []ID
	PrimitiveTypes    []ID
	Profiles          []ID
	Comments          []ID
	Diagrams          []ID
	DiagramReferences []ID

	elements []ID
	detached map[ID]bool
}

var _ version.Element = (*Project)(nil)

// ElementID implements version.Element.
func (p *Project) ElementID() ID { return p.id }

// ElementKind implements version.Element.
func (p *Project) ElementKind() string { return "project" }

// Version implements version.Element.
func (p *Project) Version() *version.Version { return p.ver }

// SetVersion implements version.Element.
func (p *Project) SetVersion(v *version.Version) { p.ver = v }

// FirstVersion implements version.Element.
func (p *Project) FirstVersion() ID { return p.first }

// SetFirstVersion implements version.Element.
func (p *Project) SetFirstVersion(id ID) { p.first = id }

// ID returns the project's handle.
func (p *Project) ID() ID { return p.id }

// Space returns the arena owning the project.
func (p *Project) Space() *Space { return p.space }

// InVersion returns the project's incarnation in v, or nil.
func (p *Project) InVersion(v *version.Version) *Project {
	found, ok := p.space.manager.InVersion(p, v)
	if !ok {
		return nil
	}
	q, _ := found.(*Project)
	return q
}

// AssignVersion makes p and every attached element original incarnations
// in v. It is used when a never-branched project receives its root version.
func (p *Project) AssignVersion(v *version.Version) {
	p.ver = v
	p.first = p.id
	v.CreatedIn = append(v.CreatedIn, p.id)
	for _, e := range p.Elements() {
		e.ver = v
		e.first = e.id
		v.CreatedIn = append(v.CreatedIn, e.id)
	}
}

// Element returns the attached element id of this project, or nil.
func (p *Project) Element(id ID) *Element {
	e := p.space.Element(id)
	if e == nil || e.project != p || p.detached[id] {
		return nil
	}
	return e
}

// Elements returns all attached elements in creation order.
func (p *Project) Elements() []*Element {
	out := make([]*Element, 0, len(p.elements))
	for _, id := range p.elements {
		if e := p.Element(id); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// ElementsOfKind returns attached elements of the given kinds in creation
// order.
func (p *Project) ElementsOfKind(kinds ...Kind) []*Element {
	var out []*Element
	for _, e := range p.Elements() {
		if slices.Contains(kinds, e.kind) {
			out = append(out, e)
		}
	}
	return out
}

// FindByName returns the first attached element with the given name.
func (p *Project) FindByName(name string) *Element {
	for _, e := range p.Elements() {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// IsDetached reports whether id was removed from the project.
func (p *Project) IsDetached(id ID) bool { return p.detached[id] }

func (p *Project) newElement(kind Kind, name string) *Element {
	e := &Element{kind: kind, project: p, Name: name}
	e.id = p.space.alloc(e)
	if p.ver != nil {
		e.ver = p.ver
		e.first = e.id
		p.ver.CreatedIn = append(p.ver.CreatedIn, e.id)
	}
	p.elements = append(p.elements, e.id)
	p.space.notify(e)
	return e
}

// get returns the attached element id, checking that it has one of kinds.
func (p *Project) get(id ID, kinds ...Kind) (*Element, error) {
	e := p.Element(id)
	if e == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "element %d not found in project %q", id, p.Name)
	}
	if len(kinds) > 0 && !slices.Contains(kinds, e.kind) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s has kind %s, want one of %v", e, e.kind, kinds)
	}
	return e, nil
}

// =============================================================================
// PIM Construction
// =============================================================================

// NewPackage creates a package nested in parent, or a top-level package
// when parent is None.
func (p *Project) NewPackage(parent ID, name string) (*Element, error) {
	if parent == None {
		e := p.newElement(KindPackage, name)
		p.Packages = append(p.Packages, e.id)
		return e, nil
	}
	pkg, err := p.get(parent, KindPackage)
	if err != nil {
		return nil, err
	}
	e := p.newElement(KindPackage, name)
	e.Parent = pkg.id
	pkg.Components = append(pkg.Components, e.id)
	return e, nil
}

// NewPrimitiveType creates a primitive type.
func (p *Project) NewPrimitiveType(name string) *Element {
	e := p.newElement(KindPrimitiveType, name)
	p.PrimitiveTypes = append(p.PrimitiveTypes, e.id)
	return e
}

// NewProfile creates a profile declaring the given stereotypes.
func (p *Project) NewProfile(name string, stereotypes ...string) *Element {
	e := p.newElement(KindProfile, name)
	e.Stereotypes = slices.Clone(stereotypes)
	p.Profiles = append(p.Profiles, e.id)
	return e
}

// NewClass creates a PIM class in package pkg.
func (p *Project) NewClass(pkg ID, name string, attrs ...Attribute) (*Element, error) {
	owner, err := p.get(pkg, KindPackage)
	if err != nil {
		return nil, err
	}
	e := p.newElement(KindClass, name)
	e.Owner = owner.id
	e.Attributes = slices.Clone(attrs)
	owner.Components = append(owner.Components, e.id)
	return e, nil
}

// NewAssociationClass creates an association class in pkg connecting at
// least two classes or association classes.
func (p *Project) NewAssociationClass(pkg ID, name string, ends ...ID) (*Element, error) {
	owner, err := p.get(pkg, KindPackage)
	if err != nil {
		return nil, err
	}
	if err := p.checkEnds(ends); err != nil {
		return nil, err
	}
	e := p.newElement(KindAssociationClass, name)
	e.Owner = owner.id
	e.Ends = slices.Clone(ends)
	owner.Components = append(owner.Components, e.id)
	return e, nil
}

// NewAssociation creates a PIM association between at least two classes.
func (p *Project) NewAssociation(name string, ends ...ID) (*Element, error) {
	if err := p.checkEnds(ends); err != nil {
		return nil, err
	}
	e := p.newElement(KindAssociation, name)
	e.Ends = slices.Clone(ends)
	return e, nil
}

func (p *Project) checkEnds(ends []ID) error {
	if len(ends) < 2 {
		return errors.New(errors.ErrCodeInvalidInput, "association needs at least two ends, got %d", len(ends))
	}
	for _, id := range ends {
		if _, err := p.get(id, KindClass, KindAssociationClass); err != nil {
			return err
		}
	}
	return nil
}

// NewGeneralization creates a PIM generalization between two classes.
func (p *Project) NewGeneralization(general, specific ID) (*Element, error) {
	if _, err := p.get(general, KindClass, KindAssociationClass); err != nil {
		return nil, err
	}
	if _, err := p.get(specific, KindClass, KindAssociationClass); err != nil {
		return nil, err
	}
	if general == specific {
		return nil, errors.New(errors.ErrCodeInvalidInput, "class %d cannot generalize itself", general)
	}
	e := p.newElement(KindGeneralization, "")
	e.General = general
	e.Specific = specific
	return e, nil
}

// NewComment creates a comment. annotated may be None for a free-standing
// comment.
func (p *Project) NewComment(annotated ID, text string) (*Element, error) {
	if annotated != None {
		if _, err := p.get(annotated); err != nil {
			return nil, err
		}
	}
	e := p.newElement(KindComment, "")
	e.Annotated = annotated
	e.Text = text
	p.Comments = append(p.Comments, e.id)
	return e, nil
}

// NewPIMDiagram creates an empty PIM diagram.
func (p *Project) NewPIMDiagram(name string) *Element {
	e := p.newElement(KindPIMDiagram, name)
	p.Diagrams = append(p.Diagrams, e.id)
	return e
}

// NewDiagramReference links diagram from to diagram to.
func (p *Project) NewDiagramReference(from, to ID) (*Element, error) {
	if _, err := p.get(from, KindPIMDiagram, KindPSMDiagram); err != nil {
		return nil, err
	}
	if _, err := p.get(to, KindPIMDiagram, KindPSMDiagram); err != nil {
		return nil, err
	}
	e := p.newElement(KindDiagramReference, "")
	e.Owner = from
	e.Represents = to
	p.DiagramReferences = append(p.DiagramReferences, e.id)
	return e, nil
}

// =============================================================================
// Diagram Membership
// =============================================================================

// Dependencies returns the elements e structurally depends on: they must
// exist (and, inside a diagram, be members) before e can be inserted.
//
//   - PSM association: its child and its parent
//   - PSM generalization: its specific and its general class
//   - other subordinate components: their parent
//   - a PSM class inside a class union: that union
//   - PIM associations and association classes: their ends
//   - PIM generalizations: general and specific class
func Dependencies(e *Element) []ID {
	var deps []ID
	switch e.kind {
	case KindPSMAssociation:
		deps = []ID{e.Child, e.Parent}
	case KindPSMGeneralization:
		deps = []ID{e.Specific, e.General}
	case KindContentContainer, KindContentChoice, KindAttributeContainer:
		deps = []ID{e.Parent}
	case KindPSMClass:
		deps = []ID{e.Union}
	case KindAssociation, KindAssociationClass:
		deps = slices.Clone(e.Ends)
	case KindGeneralization:
		deps = []ID{e.General, e.Specific}
	case KindInvalid, KindPackage, KindPrimitiveType, KindProfile, KindClass, KindComment,
		KindPIMDiagram, KindPSMDiagram, KindClassUnion, KindDiagramReference:
	}
	return slices.DeleteFunc(deps, func(id ID) bool { return id == None })
}

// AddMember shows element id in a diagram. PIM diagrams accept PIM
// elements; PSM diagrams accept comments (tree nodes join their diagram
// when constructed). The element's dependencies must already be members.
func (p *Project) AddMember(diagram, id ID) error {
	d, err := p.get(diagram, KindPIMDiagram, KindPSMDiagram)
	if err != nil {
		return err
	}
	e, err := p.get(id)
	if err != nil {
		return err
	}
	if !memberAllowed(d.kind, e.kind) {
		return errors.New(errors.ErrCodeInvalidInput, "%s cannot be shown in %s", e, d)
	}
	return p.insertMember(d, e)
}

func memberAllowed(diagram, k Kind) bool {
	if diagram == KindPSMDiagram {
		return k == KindComment
	}
	switch k {
	case KindPackage, KindPrimitiveType, KindClass, KindAssociationClass, KindComment,
		KindGeneralization, KindAssociation:
		return true
	case KindInvalid, KindProfile, KindPIMDiagram, KindPSMDiagram, KindPSMClass, KindContentContainer,
		KindContentChoice, KindAttributeContainer, KindPSMAssociation, KindClassUnion,
		KindPSMGeneralization, KindDiagramReference:
		return false
	}
	return false
}

// insertMember appends e to d.Members, refusing when a dependency of e is
// not yet a member. This is what forces diagram contents to be
// materialized in dependency order.
func (p *Project) insertMember(d, e *Element) error {
	if slices.Contains(d.Members, e.id) {
		return errors.New(errors.ErrCodeInvalidInput, "%s is already shown in %s", e, d)
	}
	for _, dep := range Dependencies(e) {
		if !slices.Contains(d.Members, dep) {
			return errors.New(errors.ErrCodeInvalidInput, "cannot insert %s into %s before its dependency %d", e, d, dep)
		}
	}
	d.Members = append(d.Members, e.id)
	return nil
}
