package model

import (
	"slices"

	"github.com/matzehuels/schemaevo/pkg/errors"
)

// =============================================================================
// PSM Construction
// =============================================================================

// NewPSMDiagram creates an empty PSM diagram.
func (p *Project) NewPSMDiagram(name string) *Element {
	e := p.newElement(KindPSMDiagram, name)
	p.Diagrams = append(p.Diagrams, e.id)
	return e
}

// NewPSMClass creates a root PSM class in diagram. represents may be None
// or a PIM class.
func (p *Project) NewPSMClass(diagram ID, name string, represents ID) (*Element, error) {
	d, err := p.get(diagram, KindPSMDiagram)
	if err != nil {
		return nil, err
	}
	if represents != None {
		if _, err := p.get(represents, KindClass, KindAssociationClass); err != nil {
			return nil, err
		}
	}
	if err := errors.ValidateName(name); err != nil {
		return nil, err
	}
	e := p.newElement(KindPSMClass, name)
	e.Owner = d.id
	e.Represents = represents
	d.Roots = append(d.Roots, e.id)
	return e, p.insertMember(d, e)
}

// NewClassUnion creates a class union. It is a root of its diagram until
// it becomes the child of an association.
func (p *Project) NewClassUnion(diagram ID) (*Element, error) {
	d, err := p.get(diagram, KindPSMDiagram)
	if err != nil {
		return nil, err
	}
	e := p.newElement(KindClassUnion, "")
	e.Owner = d.id
	d.Roots = append(d.Roots, e.id)
	return e, p.insertMember(d, e)
}

// NewPSMAssociation appends an association from parent to child. child
// must be a root class or union of the same diagram; it stops being a root.
func (p *Project) NewPSMAssociation(parent, child ID, lower, upper int) (*Element, error) {
	par, err := p.get(parent, KindPSMClass, KindContentContainer, KindContentChoice)
	if err != nil {
		return nil, err
	}
	ch, err := p.get(child, KindPSMClass, KindClassUnion)
	if err != nil {
		return nil, err
	}
	if ch.Owner != par.Owner {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s and %s are in different diagrams", par, ch)
	}
	if ch.ParentAssociation != None || ch.Union != None {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s is already attached", ch)
	}
	if err := errors.ValidateBounds(lower, upper); err != nil {
		return nil, err
	}
	d := p.Element(par.Owner)
	e := p.newElement(KindPSMAssociation, "")
	e.Owner = d.id
	e.Parent = par.id
	e.Child = ch.id
	e.Lower, e.Upper = lower, upper
	if err := p.insertMember(d, e); err != nil {
		return nil, err
	}
	ch.ParentAssociation = e.id
	d.Roots = slices.DeleteFunc(d.Roots, func(id ID) bool { return id == ch.id })
	par.Components = append(par.Components, e.id)
	return e, nil
}

// AddChildClass creates a class under parent, joined by a new association.
func (p *Project) AddChildClass(parent ID, name string, represents ID, lower, upper int) (assoc, class *Element, err error) {
	par, err := p.get(parent, KindPSMClass, KindContentContainer, KindContentChoice)
	if err != nil {
		return nil, nil, err
	}
	class, err = p.NewPSMClass(par.Owner, name, represents)
	if err != nil {
		return nil, nil, err
	}
	assoc, err = p.NewPSMAssociation(parent, class.id, lower, upper)
	if err != nil {
		return nil, nil, err
	}
	return assoc, class, nil
}

// NewContentContainer appends a content container to parent.
func (p *Project) NewContentContainer(parent ID, name string) (*Element, error) {
	if err := errors.ValidateName(name); err != nil {
		return nil, err
	}
	return p.newSubordinate(KindContentContainer, parent, name)
}

// NewContentChoice appends a content choice to parent.
func (p *Project) NewContentChoice(parent ID) (*Element, error) {
	return p.newSubordinate(KindContentChoice, parent, "")
}

// NewAttributeContainer appends an attribute container holding attrs.
func (p *Project) NewAttributeContainer(parent ID, attrs ...Attribute) (*Element, error) {
	e, err := p.newSubordinate(KindAttributeContainer, parent, "")
	if err != nil {
		return nil, err
	}
	e.Attributes = slices.Clone(attrs)
	return e, nil
}

func (p *Project) newSubordinate(kind Kind, parent ID, name string) (*Element, error) {
	par, err := p.get(parent, KindPSMClass, KindContentContainer, KindContentChoice)
	if err != nil {
		return nil, err
	}
	d := p.Element(par.Owner)
	e := p.newElement(kind, name)
	e.Owner = d.id
	e.Parent = par.id
	if err := p.insertMember(d, e); err != nil {
		return nil, err
	}
	par.Components = append(par.Components, e.id)
	return e, nil
}

// AddToUnion moves the root class into union.
func (p *Project) AddToUnion(union, class ID) error {
	u, err := p.get(union, KindClassUnion)
	if err != nil {
		return err
	}
	c, err := p.get(class, KindPSMClass)
	if err != nil {
		return err
	}
	if c.Owner != u.Owner {
		return errors.New(errors.ErrCodeInvalidInput, "%s and %s are in different diagrams", u, c)
	}
	if c.ParentAssociation != None || c.Union != None {
		return errors.New(errors.ErrCodeInvalidInput, "%s is already attached", c)
	}
	d := p.Element(u.Owner)
	d.Roots = slices.DeleteFunc(d.Roots, func(id ID) bool { return id == c.id })
	c.Union = u.id
	u.Components = append(u.Components, c.id)
	return nil
}

// NewPSMGeneralization makes specific a specialization of general.
func (p *Project) NewPSMGeneralization(general, specific ID) (*Element, error) {
	g, err := p.get(general, KindPSMClass)
	if err != nil {
		return nil, err
	}
	s, err := p.get(specific, KindPSMClass)
	if err != nil {
		return nil, err
	}
	if g.Owner != s.Owner {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s and %s are in different diagrams", g, s)
	}
	if g.id == s.id {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s cannot specialize itself", g)
	}
	d := p.Element(g.Owner)
	e := p.newElement(KindPSMGeneralization, "")
	e.Owner = d.id
	e.General = g.id
	e.Specific = s.id
	if err := p.insertMember(d, e); err != nil {
		return nil, err
	}
	g.Specializations = append(g.Specializations, e.id)
	return e, nil
}

// MoveComponent detaches a subordinate component from its parent and
// inserts it into newParent at index (clamped to the list length).
func (p *Project) MoveComponent(component, newParent ID, index int) error {
	c, err := p.get(component, KindContentContainer, KindContentChoice, KindAttributeContainer, KindPSMAssociation)
	if err != nil {
		return err
	}
	np, err := p.get(newParent, KindPSMClass, KindContentContainer, KindContentChoice)
	if err != nil {
		return err
	}
	if np.Owner != c.Owner {
		return errors.New(errors.ErrCodeInvalidInput, "%s and %s are in different diagrams", c, np)
	}
	if old := p.Element(c.Parent); old != nil {
		old.Components = slices.DeleteFunc(old.Components, func(id ID) bool { return id == c.id })
	}
	index = max(0, min(index, len(np.Components)))
	np.Components = slices.Insert(np.Components, index, c.id)
	c.Parent = np.id
	return nil
}

// SetBounds changes the cardinality of a PSM association.
func (p *Project) SetBounds(assoc ID, lower, upper int) error {
	a, err := p.get(assoc, KindPSMAssociation)
	if err != nil {
		return err
	}
	if err := errors.ValidateBounds(lower, upper); err != nil {
		return err
	}
	a.Lower, a.Upper = lower, upper
	return nil
}

// =============================================================================
// PSM Tree Predicates
// =============================================================================

// IsSignificant reports whether e produces an element of its own in the
// generated schema: content containers and labelled classes.
func IsSignificant(e *Element) bool {
	switch e.kind {
	case KindContentContainer:
		return true
	case KindPSMClass:
		return e.ElementLabel != ""
	case KindInvalid, KindPackage, KindPrimitiveType, KindProfile, KindClass, KindAssociationClass,
		KindComment, KindGeneralization, KindAssociation, KindPIMDiagram, KindPSMDiagram,
		KindContentChoice, KindAttributeContainer, KindPSMAssociation, KindClassUnion,
		KindPSMGeneralization, KindDiagramReference:
		return false
	}
	return false
}

// TreeParent returns the node directly above e in its PSM tree, or None
// for roots and non-tree elements.
func TreeParent(e *Element) ID {
	switch e.kind {
	case KindContentContainer, KindContentChoice, KindAttributeContainer, KindPSMAssociation:
		return e.Parent
	case KindPSMClass:
		if e.Union != None {
			return e.Union
		}
		return e.ParentAssociation
	case KindClassUnion:
		return e.ParentAssociation
	case KindInvalid, KindPackage, KindPrimitiveType, KindProfile, KindClass, KindAssociationClass,
		KindComment, KindGeneralization, KindAssociation, KindPIMDiagram, KindPSMDiagram,
		KindPSMGeneralization, KindDiagramReference:
	}
	return None
}

// NearestSignificantAncestor returns the closest significant node strictly
// above e, or nil when e's tree has none.
func NearestSignificantAncestor(e *Element) *Element {
	seen := map[ID]bool{e.id: true}
	for cur := e.project.Element(TreeParent(e)); cur != nil; cur = e.project.Element(TreeParent(cur)) {
		if seen[cur.id] {
			return nil
		}
		seen[cur.id] = true
		if IsSignificant(cur) {
			return cur
		}
	}
	return nil
}

// EncompassesAttributes reports whether e contributes attributes to its
// nearest significant ancestor.
func EncompassesAttributes(e *Element) bool {
	return encompasses(e, map[ID]bool{}, attributesRule)
}

// EncompassesContent reports whether e contributes content (sub-elements)
// to its nearest significant ancestor.
func EncompassesContent(e *Element) bool {
	return encompasses(e, map[ID]bool{}, contentRule)
}

type verdict int

const (
	no verdict = iota
	yes
	recurse
)

func attributesRule(e *Element) verdict {
	switch e.kind {
	case KindAttributeContainer:
		return yes
	case KindPSMClass:
		if IsSignificant(e) {
			return no
		}
		if len(e.Attributes) > 0 {
			return yes
		}
		return recurse
	case KindPSMAssociation, KindClassUnion:
		return recurse
	case KindInvalid, KindPackage, KindPrimitiveType, KindProfile, KindClass, KindAssociationClass,
		KindComment, KindGeneralization, KindAssociation, KindPIMDiagram, KindPSMDiagram,
		KindContentContainer, KindContentChoice, KindPSMGeneralization, KindDiagramReference:
		return no
	}
	return no
}

func contentRule(e *Element) verdict {
	switch e.kind {
	case KindContentContainer:
		return yes
	case KindPSMClass:
		if IsSignificant(e) {
			return yes
		}
		return recurse
	case KindContentChoice, KindPSMAssociation, KindClassUnion:
		return recurse
	case KindInvalid, KindPackage, KindPrimitiveType, KindProfile, KindClass, KindAssociationClass,
		KindComment, KindGeneralization, KindAssociation, KindPIMDiagram, KindPSMDiagram,
		KindAttributeContainer, KindPSMGeneralization, KindDiagramReference:
		return no
	}
	return no
}

func encompasses(e *Element, seen map[ID]bool, rule func(*Element) verdict) bool {
	if e == nil || seen[e.id] {
		return false
	}
	seen[e.id] = true
	switch rule(e) {
	case yes:
		return true
	case no:
		return false
	case recurse:
	}
	if e.kind == KindPSMAssociation {
		return encompasses(e.project.Element(e.Child), seen, rule)
	}
	for _, id := range e.Components {
		if encompasses(e.project.Element(id), seen, rule) {
			return true
		}
	}
	return false
}
