package version

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// ID is an opaque element handle. The zero value means "no element".
type ID uint64

// None is the zero handle.
const None ID = 0

// Element is the contract every versioned model element fulfils: projects,
// model elements, diagrams and diagram helpers.
type Element interface {
	// ElementID returns the element's handle.
	ElementID() ID
	// ElementKind names the concrete kind. Only elements of equal kind may
	// be linked across versions.
	ElementKind() string
	// Version returns the version the element was materialized in, or nil
	// while the owning project has never been branched.
	Version() *Version
	SetVersion(v *Version)
	// FirstVersion returns the handle of the very first incarnation of the
	// element across all versions. It equals ElementID for an original and
	// is None while the element is unversioned.
	FirstVersion() ID
	SetFirstVersion(id ID)
}

// Resolver turns handles back into elements.
type Resolver interface {
	Resolve(id ID) (Element, bool)
}

// IsFirstVersion reports whether e is the original incarnation of its lineage.
func IsFirstVersion(e Element) bool {
	return e.FirstVersion() != None && e.FirstVersion() == e.ElementID()
}

// Version is a named point in the branch history of a project.
//
// Versions are identity nodes: two versions are the same only if they are
// the same pointer. Number is unique within a [Manager].
type Version struct {
	Number int       // Monotonic number assigned by the manager
	Label  string    // Display label, defaults to "v<Number>"
	ID     uuid.UUID // Stable external handle for serializers

	// CreatedFrom is the version this one was branched from (nil for a root).
	CreatedFrom *Version
	// Branched lists versions branched from this one.
	Branched []*Version
	// CreatedIn lists elements whose first incarnation lives in this version.
	CreatedIn []ID
}

// String returns the version label.
func (v *Version) String() string {
	if v == nil {
		return "<unversioned>"
	}
	return v.Label
}

// IsRoot reports whether v has no parent version.
func (v *Version) IsRoot() bool { return v.CreatedFrom == nil }

// IsAncestorOf reports whether v is a strict ancestor of w.
func (v *Version) IsAncestorOf(w *Version) bool {
	for p := w.CreatedFrom; p != nil; p = p.CreatedFrom {
		if p == v {
			return true
		}
	}
	return false
}

// Depth returns the number of CreatedFrom hops up to the root.
func (v *Version) Depth() int {
	d := 0
	for p := v.CreatedFrom; p != nil; p = p.CreatedFrom {
		d++
	}
	return d
}

func (v *Version) addCreated(id ID) {
	if !slices.Contains(v.CreatedIn, id) {
		v.CreatedIn = append(v.CreatedIn, id)
	}
}

func (v *Version) removeCreated(id ID) {
	v.CreatedIn = slices.DeleteFunc(v.CreatedIn, func(x ID) bool { return x == id })
}

func (v *Version) removeBranch(b *Version) {
	v.Branched = slices.DeleteFunc(v.Branched, func(x *Version) bool { return x == b })
}

func defaultLabel(n int) string { return fmt.Sprintf("v%d", n) }
