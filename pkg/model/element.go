package model

import (
	"fmt"
	"slices"

	"github.com/matzehuels/schemaevo/pkg/version"
)

// ID is an element handle: an index into the owning [Space].
type ID = version.ID

// None is the zero handle.
const None = version.None

// Attribute is a plain data attribute of a class or attribute container.
type Attribute struct {
	Name  string
	Type  string
	Lower int
	Upper int // -1 means unbounded
}

// NestingJoin describes how a PSM association maps back onto a path of PIM
// associations starting at a core class.
type NestingJoin struct {
	CoreClass ID
	Path      []ID
}

// Element is a model element of any [Kind]. Which structural fields are
// meaningful depends on the kind:
//
//   - Owner: owning package of PIM classifiers, owning diagram of diagram
//     contents and diagram references
//   - Parent: nesting package; superordinate of a subordinate PSM node
//   - Components: package contents; superordinate components; union members
//   - Child / ParentAssociation: the two ends of the association-child link
//   - Union: the class union a PSM class belongs to
//   - General / Specific / Specializations: generalization links
//   - Ends: PIM association and association class ends
//   - Represents: PIM class behind a PSM class; target of a diagram reference
//   - Members / Roots: diagram contents in insertion order and PSM roots
//
// Structural fields are maintained by the [Project] mutators. Plain data
// (Name, bounds, attributes, text) may be edited directly.
type Element struct {
	id      ID
	kind    Kind
	project *Project
	ver     *version.Version
	first   ID

	Name string

	Owner             ID
	Parent            ID
	Components        []ID
	Child             ID
	ParentAssociation ID
	Union             ID
	General           ID
	Specific          ID
	Specializations   []ID
	Ends              []ID
	Represents        ID
	Annotated         ID
	Members           []ID
	Roots             []ID

	Lower        int
	Upper        int
	Attributes   []Attribute
	Stereotypes  []string
	ElementLabel string
	Text         string
	NestingJoins []NestingJoin
}

var _ version.Element = (*Element)(nil)

// ElementID implements version.Element.
func (e *Element) ElementID() ID { return e.id }

// ElementKind implements version.Element.
func (e *Element) ElementKind() string { return e.kind.String() }

// Version implements version.Element.
func (e *Element) Version() *version.Version { return e.ver }

// SetVersion implements version.Element.
func (e *Element) SetVersion(v *version.Version) { e.ver = v }

// FirstVersion implements version.Element.
func (e *Element) FirstVersion() ID { return e.first }

// SetFirstVersion implements version.Element.
func (e *Element) SetFirstVersion(id ID) { e.first = id }

// ID returns the element's handle.
func (e *Element) ID() ID { return e.id }

// Kind returns the element's kind.
func (e *Element) Kind() Kind { return e.kind }

// Project returns the project that owns the element.
func (e *Element) Project() *Project { return e.project }

// IsFirstVersion reports whether e is the original incarnation.
func (e *Element) IsFirstVersion() bool { return version.IsFirstVersion(e) }

// InVersion returns e's incarnation in v, or nil when the element does not
// exist there.
func (e *Element) InVersion(v *version.Version) *Element {
	found, ok := e.project.space.manager.InVersion(e, v)
	if !ok {
		return nil
	}
	el, _ := found.(*Element)
	return el
}

// IsOptional reports whether e is an association with lower bound 0.
func (e *Element) IsOptional() bool { return e.kind == KindPSMAssociation && e.Lower == 0 }

// String returns "kind Name#id".
func (e *Element) String() string {
	if e == nil {
		return "<nil>"
	}
	name := e.Name
	if name == "" {
		name = "_"
	}
	return fmt.Sprintf("%s %s#%d", e.kind, name, e.id)
}

// ComponentIndex returns the position of id in e.Components, or -1.
func (e *Element) ComponentIndex(id ID) int { return slices.Index(e.Components, id) }
