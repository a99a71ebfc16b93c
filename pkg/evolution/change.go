// Package evolution compares the shape of PSM tree nodes in two versions
// and classifies the differences.
//
// Changes are classified along two axes: the [Scope] names the structural
// slot that changed (the component list of a superordinate node, the
// cardinality of an association) and the [EditType] says whether something
// was added, removed or modified in place.
//
// Detectors decide existence through version lookup, never through list
// membership: a component missing from the old parent's list may simply
// have moved there from elsewhere, so it only counts as added when it does
// not exist anywhere in the old version.
//
// Every change carries two flags for downstream regeneration:
// InvalidatesAttributes and InvalidatesContent report whether the
// attribute or content model of the nearest significant ancestor must be
// recomputed.
package evolution

import (
	"fmt"

	"github.com/matzehuels/schemaevo/pkg/errors"
	"github.com/matzehuels/schemaevo/pkg/model"
	"github.com/matzehuels/schemaevo/pkg/version"
)

// Scope identifies the structural slot a change affects.
type Scope int

const (
	ScopeSuperordinateComponents Scope = iota
	ScopeAssociationCardinality
)

func (s Scope) String() string {
	switch s {
	case ScopeSuperordinateComponents:
		return "superordinate-components"
	case ScopeAssociationCardinality:
		return "association-cardinality"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// EditType classifies how the slot changed.
type EditType int

const (
	Addition EditType = iota
	Removal
	Sedentary
)

func (t EditType) String() string {
	switch t {
	case Addition:
		return "addition"
	case Removal:
		return "removal"
	case Sedentary:
		return "sedentary"
	}
	return fmt.Sprintf("edit(%d)", int(t))
}

// Change is one detected difference between two versions.
type Change interface {
	Scope() Scope
	EditType() EditType

	// Subject is the node whose slot changed, as it exists in the version
	// where the edit is visible: the new version for additions and
	// modifications, the old one for removals.
	Subject() *model.Element

	OldVersion() *version.Version
	NewVersion() *version.Version

	InvalidatesAttributes() bool
	InvalidatesContent() bool

	// Verify re-checks the change against both versions. A failure is a
	// bug in the detector and is reported with ErrCodeVerifyFailed.
	Verify() error

	String() string
}

type base struct {
	scope    Scope
	edit     EditType
	subject  *model.Element
	from, to *version.Version
}

func (b base) Scope() Scope                 { return b.scope }
func (b base) EditType() EditType           { return b.edit }
func (b base) Subject() *model.Element      { return b.subject }
func (b base) OldVersion() *version.Version { return b.from }
func (b base) NewVersion() *version.Version { return b.to }

func (b base) verifyFailed(format string, args ...any) error {
	return errors.New(errors.ErrCodeVerifyFailed, "%s %s of %v: %s", b.scope, b.edit, b.subject, fmt.Sprintf(format, args...))
}

// invalidates applies the shared rule: changes to optional associations and
// to members of a content choice never force a recomputation; anything else
// does when the component contributes to the model in question.
func invalidates(parent, component *model.Element, encompasses func(*model.Element) bool) bool {
	if component.IsOptional() || parent.Kind() == model.KindContentChoice {
		return false
	}
	return encompasses(component)
}

// =============================================================================
// Superordinate Components
// =============================================================================

// ComponentAdded reports a subordinate component that exists in the new
// version but nowhere in the old one.
type ComponentAdded struct {
	base
	Component *model.Element
}

func (c *ComponentAdded) InvalidatesAttributes() bool {
	return invalidates(c.subject, c.Component, model.EncompassesAttributes)
}

func (c *ComponentAdded) InvalidatesContent() bool {
	return invalidates(c.subject, c.Component, model.EncompassesContent)
}

func (c *ComponentAdded) Verify() error {
	if c.Component.InVersion(c.from) != nil {
		return c.verifyFailed("%v exists in %v", c.Component, c.from)
	}
	if c.Component.InVersion(c.to) != c.Component {
		return c.verifyFailed("%v does not resolve to itself in %v", c.Component, c.to)
	}
	if op := c.subject.InVersion(c.from); op != nil {
		for _, id := range op.Components {
			if oc := op.Project().Element(id); oc != nil && oc.InVersion(c.to) == c.Component {
				return c.verifyFailed("%v already listed in %v", c.Component, c.from)
			}
		}
	}
	if c.subject.ComponentIndex(c.Component.ID()) < 0 {
		return c.verifyFailed("%v missing from component list in %v", c.Component, c.to)
	}
	return nil
}

func (c *ComponentAdded) String() string {
	return fmt.Sprintf("added %v to %v (%v -> %v)", c.Component, c.subject, c.from, c.to)
}

// ComponentRemoved reports a subordinate component of the old version that
// no longer exists in the new one.
type ComponentRemoved struct {
	base
	Component *model.Element
}

func (c *ComponentRemoved) InvalidatesAttributes() bool {
	return invalidates(c.subject, c.Component, model.EncompassesAttributes)
}

func (c *ComponentRemoved) InvalidatesContent() bool {
	return invalidates(c.subject, c.Component, model.EncompassesContent)
}

func (c *ComponentRemoved) Verify() error {
	if c.Component.InVersion(c.to) != nil {
		return c.verifyFailed("%v still exists in %v", c.Component, c.to)
	}
	if c.Component.InVersion(c.from) != c.Component {
		return c.verifyFailed("%v does not resolve to itself in %v", c.Component, c.from)
	}
	if np := c.subject.InVersion(c.to); np != nil {
		for _, id := range np.Components {
			if nc := np.Project().Element(id); nc != nil && nc.InVersion(c.from) == c.Component {
				return c.verifyFailed("%v still listed in %v", c.Component, c.to)
			}
		}
	}
	if c.subject.ComponentIndex(c.Component.ID()) < 0 {
		return c.verifyFailed("%v missing from component list in %v", c.Component, c.from)
	}
	return nil
}

func (c *ComponentRemoved) String() string {
	return fmt.Sprintf("removed %v from %v (%v -> %v)", c.Component, c.subject, c.from, c.to)
}

// ComponentReordered reports a component kept under the same parent whose
// position relative to the other kept components changed.
type ComponentReordered struct {
	base
	Component          *model.Element
	OldIndex, NewIndex int
}

func (c *ComponentReordered) InvalidatesAttributes() bool { return false }

func (c *ComponentReordered) InvalidatesContent() bool {
	if c.subject.Kind() == model.KindContentChoice {
		return false
	}
	return model.EncompassesContent(c.Component)
}

func (c *ComponentReordered) Verify() error {
	oc := c.Component.InVersion(c.from)
	op := c.subject.InVersion(c.from)
	if oc == nil || op == nil {
		return c.verifyFailed("%v or its parent missing in %v", c.Component, c.from)
	}
	if oc.Parent != op.ID() {
		return c.verifyFailed("%v had another parent in %v", c.Component, c.from)
	}
	if c.OldIndex == c.NewIndex {
		return c.verifyFailed("%v kept position %d", c.Component, c.NewIndex)
	}
	return nil
}

func (c *ComponentReordered) String() string {
	return fmt.Sprintf("moved %v within %v from %d to %d (%v -> %v)", c.Component, c.subject, c.OldIndex, c.NewIndex, c.from, c.to)
}

// =============================================================================
// Association Cardinality
// =============================================================================

// CardinalityChanged reports an association whose bounds differ.
type CardinalityChanged struct {
	base
	OldLower, OldUpper int
	NewLower, NewUpper int
}

func (c *CardinalityChanged) InvalidatesAttributes() bool {
	return model.EncompassesAttributes(c.subject)
}

func (c *CardinalityChanged) InvalidatesContent() bool {
	return model.EncompassesContent(c.subject)
}

func (c *CardinalityChanged) Verify() error {
	old := c.subject.InVersion(c.from)
	if old == nil {
		return c.verifyFailed("association missing in %v", c.from)
	}
	if old.Lower != c.OldLower || old.Upper != c.OldUpper || c.subject.Lower != c.NewLower || c.subject.Upper != c.NewUpper {
		return c.verifyFailed("recorded bounds do not match the versions")
	}
	if c.OldLower == c.NewLower && c.OldUpper == c.NewUpper {
		return c.verifyFailed("bounds did not change")
	}
	return nil
}

func (c *CardinalityChanged) String() string {
	return fmt.Sprintf("cardinality of %v %s -> %s (%v -> %v)", c.subject,
		bounds(c.OldLower, c.OldUpper), bounds(c.NewLower, c.NewUpper), c.from, c.to)
}

func bounds(lower, upper int) string {
	if upper < 0 {
		return fmt.Sprintf("%d..*", lower)
	}
	return fmt.Sprintf("%d..%d", lower, upper)
}
