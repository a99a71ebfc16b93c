package model

import (
	"slices"

	"github.com/matzehuels/schemaevo/pkg/errors"
)

// Translator maps a handle of a source project to the handle of its copy.
type Translator func(ID) (ID, bool)

// CloneElement creates a copy of src in p. Plain data is deep-copied and
// every reference is translated with tr, which must already know each of
// src's dependencies. Copies of diagram contents are inserted into the
// translated diagram, so dependency order is enforced here as well.
//
// Ordered lists (components, roots, specializations, package contents) are
// left empty; [Project.CopyLists] fills them once everything is cloned.
func (p *Project) CloneElement(src *Element, tr Translator) (*Element, error) {
	ref := func(id ID) (ID, error) {
		if id == None {
			return None, nil
		}
		t, ok := tr(id)
		if !ok {
			return None, errors.New(errors.ErrCodeUnresolvedDependency,
				"%s depends on element %d which has not been cloned", src, id)
		}
		return t, nil
	}

	e := &Element{kind: src.kind, project: p}
	scalars := []struct {
		dst *ID
		src ID
	}{
		{&e.Owner, src.Owner},
		{&e.Parent, src.Parent},
		{&e.Child, src.Child},
		{&e.Union, src.Union},
		{&e.General, src.General},
		{&e.Specific, src.Specific},
		{&e.Represents, src.Represents},
		{&e.Annotated, src.Annotated},
	}
	for _, s := range scalars {
		t, err := ref(s.src)
		if err != nil {
			return nil, err
		}
		*s.dst = t
	}
	for _, id := range src.Ends {
		t, err := ref(id)
		if err != nil {
			return nil, err
		}
		e.Ends = append(e.Ends, t)
	}
	for _, j := range src.NestingJoins {
		core, err := ref(j.CoreClass)
		if err != nil {
			return nil, err
		}
		nj := NestingJoin{CoreClass: core}
		for _, id := range j.Path {
			t, err := ref(id)
			if err != nil {
				return nil, err
			}
			nj.Path = append(nj.Path, t)
		}
		e.NestingJoins = append(e.NestingJoins, nj)
	}

	e.Name = src.Name
	e.Lower, e.Upper = src.Lower, src.Upper
	e.Attributes = slices.Clone(src.Attributes)
	e.Stereotypes = slices.Clone(src.Stereotypes)
	e.ElementLabel = src.ElementLabel
	e.Text = src.Text

	if e.kind.IsTreeNode() {
		d, err := p.get(e.Owner, KindPSMDiagram)
		if err != nil {
			return nil, err
		}
		for _, dep := range Dependencies(e) {
			if !slices.Contains(d.Members, dep) {
				return nil, errors.New(errors.ErrCodeUnresolvedDependency,
					"cannot insert copy of %s into %s before its dependency %d", src, d, dep)
			}
		}
	}

	e.id = p.space.alloc(e)
	if p.ver != nil {
		e.ver = p.ver
		e.first = e.id
		p.ver.CreatedIn = append(p.ver.CreatedIn, e.id)
	}
	p.elements = append(p.elements, e.id)
	p.space.notify(e)

	if e.kind.IsTreeNode() {
		d := p.Element(e.Owner)
		d.Members = append(d.Members, e.id)
	}
	if e.kind == KindPSMAssociation {
		if child := p.Element(e.Child); child != nil {
			child.ParentAssociation = e.id
		}
	}
	return e, nil
}

// CopyLists rebuilds the ordered lists of every copy in p from their
// sources in src: project top-level lists, package contents, superordinate
// and union components, PSM roots and specializations. Diagram members are
// not touched; they were filled in dependency order during cloning.
func (p *Project) CopyLists(src *Project, tr Translator) error {
	translate := func(ids []ID) ([]ID, error) {
		out := make([]ID, 0, len(ids))
		for _, id := range ids {
			t, ok := tr(id)
			if !ok {
				return nil, errors.New(errors.ErrCodeUnresolvedDependency,
					"element %d of project %q has no copy", id, src.Name)
			}
			out = append(out, t)
		}
		return out, nil
	}

	top := []struct {
		dst *[]ID
		src []ID
	}{
		{&p.Packages, src.Packages},
		{&p.PrimitiveTypes, src.PrimitiveTypes},
		{&p.Profiles, src.Profiles},
		{&p.Comments, src.Comments},
		{&p.Diagrams, src.Diagrams},
		{&p.DiagramReferences, src.DiagramReferences},
	}
	for _, l := range top {
		ids, err := translate(l.src)
		if err != nil {
			return err
		}
		*l.dst = ids
	}

	for _, s := range src.Elements() {
		t, ok := tr(s.id)
		if !ok {
			continue
		}
		c := p.Element(t)
		if c == nil {
			return errors.New(errors.ErrCodeInternal, "copy %d of %s is not part of project %q", t, s, p.Name)
		}
		var err error
		if c.Components, err = translate(s.Components); err != nil {
			return err
		}
		if c.Roots, err = translate(s.Roots); err != nil {
			return err
		}
		if c.Specializations, err = translate(s.Specializations); err != nil {
			return err
		}
	}
	return nil
}
