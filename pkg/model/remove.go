package model

import (
	"slices"

	"github.com/matzehuels/schemaevo/pkg/errors"
	"github.com/matzehuels/schemaevo/pkg/version"
)

type listKind int

const (
	listComponents listKind = iota
	listMembers
	listRoots
	listSpecializations
	listPackages
	listPrimitiveTypes
	listProfiles
	listComments
	listDiagrams
	listDiagramReferences
)

// slot is a position an element occupied in an ordered list. owner None
// addresses the project's own lists.
type slot struct {
	owner ID
	list  listKind
	index int
}

// Removal is the token returned by [Project.Remove]. Passing it to
// [Project.Restore] puts the element back where it was.
type Removal struct {
	element    ID
	slots      []slot
	rerooted   ID
	detachment *version.Detachment
}

// Element returns the handle of the removed element.
func (r *Removal) Element() ID { return r.element }

// Detachment returns the version-manager state saved for the element.
func (r *Removal) Detachment() *version.Detachment { return r.detachment }

func (p *Project) list(owner ID, k listKind) *[]ID {
	if owner == None {
		switch k {
		case listPackages:
			return &p.Packages
		case listPrimitiveTypes:
			return &p.PrimitiveTypes
		case listProfiles:
			return &p.Profiles
		case listComments:
			return &p.Comments
		case listDiagrams:
			return &p.Diagrams
		case listDiagramReferences:
			return &p.DiagramReferences
		case listComponents, listMembers, listRoots, listSpecializations:
		}
		return nil
	}
	e := p.Element(owner)
	if e == nil {
		return nil
	}
	switch k {
	case listComponents:
		return &e.Components
	case listMembers:
		return &e.Members
	case listRoots:
		return &e.Roots
	case listSpecializations:
		return &e.Specializations
	case listPackages, listPrimitiveTypes, listProfiles, listComments, listDiagrams, listDiagramReferences:
	}
	return nil
}

// references reports whether x points at id through anything other than a
// containment list or the association-child back link.
func references(x *Element, id ID) bool {
	for _, r := range []ID{x.Owner, x.Parent, x.Child, x.Union, x.General, x.Specific, x.Represents, x.Annotated} {
		if r == id {
			return true
		}
	}
	if slices.Contains(x.Ends, id) {
		return true
	}
	for _, j := range x.NestingJoins {
		if j.CoreClass == id || slices.Contains(j.Path, id) {
			return true
		}
	}
	return false
}

// Remove detaches element id from the project and from its version
// lineage (see [version.Manager.UnregisterBranch]). Elements still
// referenced by others are refused; remove the dependents first. Removing
// a PSM association turns its child back into a root.
func (p *Project) Remove(id ID) (*Removal, error) {
	e, err := p.get(id)
	if err != nil {
		return nil, err
	}
	for _, x := range p.Elements() {
		if x.id != e.id && references(x, e.id) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s is still referenced by %s", e, x)
		}
	}

	r := &Removal{element: e.id}
	owners := []ID{None}
	for _, x := range p.Elements() {
		owners = append(owners, x.id)
	}
	for _, owner := range owners {
		for k := listComponents; k <= listDiagramReferences; k++ {
			l := p.list(owner, k)
			if l == nil {
				continue
			}
			if i := slices.Index(*l, e.id); i >= 0 {
				*l = slices.Delete(*l, i, i+1)
				r.slots = append(r.slots, slot{owner: owner, list: k, index: i})
			}
		}
	}

	if e.kind == KindPSMAssociation {
		if child := p.Element(e.Child); child != nil && child.ParentAssociation == e.id {
			child.ParentAssociation = None
			if d := p.Element(e.Owner); d != nil {
				d.Roots = append(d.Roots, child.id)
			}
			r.rerooted = child.id
		}
	}

	if p.detached == nil {
		p.detached = make(map[ID]bool)
	}
	p.detached[e.id] = true
	r.detachment = p.space.manager.UnregisterBranch(e)
	return r, nil
}

// Restore undoes a [Project.Remove].
func (p *Project) Restore(r *Removal) error {
	if r == nil || !p.detached[r.element] {
		return errors.New(errors.ErrCodeInvalidInput, "nothing to restore")
	}
	e := p.space.Element(r.element)
	if e == nil || e.project != p {
		return errors.New(errors.ErrCodeNotFound, "removed element %d no longer exists", r.element)
	}
	if err := p.space.manager.ReRegisterBranch(e, r.detachment); err != nil {
		return err
	}
	delete(p.detached, r.element)

	if r.rerooted != None {
		if child := p.Element(r.rerooted); child != nil {
			child.ParentAssociation = e.id
			if d := p.Element(e.Owner); d != nil {
				d.Roots = slices.DeleteFunc(d.Roots, func(id ID) bool { return id == child.id })
			}
		}
	}
	for i := len(r.slots) - 1; i >= 0; i-- {
		s := r.slots[i]
		l := p.list(s.owner, s.list)
		if l == nil {
			continue
		}
		*l = slices.Insert(*l, min(s.index, len(*l)), e.id)
	}
	return nil
}
