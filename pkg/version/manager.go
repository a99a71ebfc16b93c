package version

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/schemaevo/pkg/errors"
)

// key addresses one incarnation: the lineage (by its first incarnation) in
// a target version.
type key struct {
	first   ID
	version int
}

// entry is a table row detached from its key, used to record re-keyed rows.
type entry struct {
	version int
	id      ID
}

// Manager is the authoritative registry mapping (first incarnation, target
// version) to the incarnation in that version. It also owns the version
// tree and the project registered for each version.
//
// The zero value is not usable - use NewManager.
type Manager struct {
	resolver Resolver
	logger   *log.Logger

	versions []*Version
	byNumber map[int]*Version
	projects map[*Version]ID
	table    map[key]ID
	next     int
}

// NewManager creates an empty manager resolving handles through r.
func NewManager(r Resolver) *Manager {
	return &Manager{
		resolver: r,
		logger:   log.New(io.Discard),
		byNumber: make(map[int]*Version),
		projects: make(map[*Version]ID),
		table:    make(map[key]ID),
		next:     1,
	}
}

// SetLogger replaces the manager's logger. A nil logger discards output.
func (m *Manager) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard)
	}
	m.logger = l
}

// =============================================================================
// Versions
// =============================================================================

// NewVersion allocates the next version, branched from from (nil for a new
// root). An empty label defaults to "v<Number>".
func (m *Manager) NewVersion(from *Version, label string) (*Version, error) {
	if err := errors.ValidateLabel(label); err != nil {
		return nil, err
	}
	if from != nil && !m.manages(from) {
		return nil, errors.New(errors.ErrCodeNotFound, "version %s is not managed", from)
	}
	n := m.next
	m.next++
	if label == "" {
		label = defaultLabel(n)
	}
	v := &Version{Number: n, Label: label, ID: uuid.New(), CreatedFrom: from}
	if from != nil {
		from.Branched = append(from.Branched, v)
	}
	m.versions = append(m.versions, v)
	m.byNumber[n] = v
	m.logger.Debug("version created", "version", v.Label, "from", from)
	return v, nil
}

// Versions returns all managed versions in creation order.
func (m *Manager) Versions() []*Version { return slices.Clone(m.versions) }

// Version returns the managed version with the given number.
func (m *Manager) Version(number int) (*Version, bool) {
	v, ok := m.byNumber[number]
	return v, ok
}

// Roots returns versions without a parent, in creation order.
func (m *Manager) Roots() []*Version {
	var roots []*Version
	for _, v := range m.versions {
		if v.CreatedFrom == nil {
			roots = append(roots, v)
		}
	}
	return roots
}

// SetProject records the project that materializes version v.
func (m *Manager) SetProject(v *Version, project ID) { m.projects[v] = project }

// Project returns the project recorded for version v.
func (m *Manager) Project(v *Version) (ID, bool) {
	id, ok := m.projects[v]
	return id, ok
}

// Len returns the number of table entries.
func (m *Manager) Len() int { return len(m.table) }

func (m *Manager) manages(v *Version) bool {
	return v != nil && m.byNumber[v.Number] == v
}

// =============================================================================
// Registration and Lookup
// =============================================================================

// RegisterBranch links copy as the representation of source's lineage in
// version v.
//
// When initial is true, source is promoted to be its own first version: the
// very first time an element gets a sibling version it becomes a
// first-class original. A source that was itself derived is cut loose the
// way MakeIndependentOfOlderVersions does it, so its old lineage no longer
// resolves to it. first overrides the lineage root; nil means source when
// initial is set and the resolved source.FirstVersion() otherwise.
//
// Returns ErrCodeKindMismatch when source, copy and first differ in kind,
// ErrCodeInvariantViolation when v is the first incarnation's own version,
// and ErrCodeAlreadyLinked when the lineage already has an entry for v.
// Nothing is modified when an error is returned.
func (m *Manager) RegisterBranch(source, copy Element, v *Version, initial bool, first Element) error {
	if v == nil {
		return errors.New(errors.ErrCodeInvalidInput, "cannot register element %d without a version", copy.ElementID())
	}
	if source.ElementKind() != copy.ElementKind() {
		return errors.New(errors.ErrCodeKindMismatch, "cannot link %s %d to %s %d",
			source.ElementKind(), source.ElementID(), copy.ElementKind(), copy.ElementID())
	}
	promote := initial && source.FirstVersion() != source.ElementID()
	if first == nil {
		if initial {
			first = source
		} else {
			fid := source.FirstVersion()
			if fid == None {
				return errors.New(errors.ErrCodeInvariantViolation, "source %s %d is not versioned", source.ElementKind(), source.ElementID())
			}
			resolved, ok := m.resolver.Resolve(fid)
			if !ok {
				return errors.New(errors.ErrCodeNotFound, "first version %d of element %d not found", fid, source.ElementID())
			}
			first = resolved
		}
	}
	if first.ElementKind() != copy.ElementKind() {
		return errors.New(errors.ErrCodeKindMismatch, "cannot link %s %d into lineage of %s %d",
			copy.ElementKind(), copy.ElementID(), first.ElementKind(), first.ElementID())
	}
	if first.Version() == v {
		return errors.New(errors.ErrCodeInvariantViolation, "element %d is already its own first version in %s", first.ElementID(), v)
	}
	k := key{first.ElementID(), v.Number}
	if existing, ok := m.table[k]; ok {
		return errors.New(errors.ErrCodeAlreadyLinked, "lineage %d already linked to %d in %s", first.ElementID(), existing, v)
	}
	// promotion re-keys the old lineage's rows below source's version
	if promote && first.ElementID() == source.ElementID() {
		if sv, old := source.Version(), source.FirstVersion(); sv != nil && old != None && sv.IsAncestorOf(v) {
			if existing, ok := m.table[key{old, v.Number}]; ok {
				return errors.New(errors.ErrCodeAlreadyLinked, "lineage %d already linked to %d in %s", old, existing, v)
			}
		}
	}

	if promote {
		m.promote(source)
	}
	m.table[k] = copy.ElementID()
	copy.SetFirstVersion(first.ElementID())
	copy.SetVersion(v)
	return nil
}

// promote makes e its own first version and records it as created in its
// version.
func (m *Manager) promote(e Element) {
	m.makeIndependent(e)
	if e.FirstVersion() != e.ElementID() {
		e.SetFirstVersion(e.ElementID())
		if v := e.Version(); v != nil {
			v.addCreated(e.ElementID())
		}
	}
}

// Lookup returns the incarnation of lineage first in version v, if the
// table has one. The first incarnation itself is never stored in the table.
func (m *Manager) Lookup(first ID, v *Version) (ID, bool) {
	if v == nil {
		return None, false
	}
	id, ok := m.table[key{first, v.Number}]
	return id, ok
}

// InVersion resolves e's incarnation in version v: e itself when v is e's
// version, the first incarnation when v is its version, otherwise the table
// entry. It reports false when the element does not exist in v.
func (m *Manager) InVersion(e Element, v *Version) (Element, bool) {
	if v == nil {
		return nil, false
	}
	if e.Version() == v {
		return e, true
	}
	first := e.FirstVersion()
	if first == None {
		return nil, false
	}
	fe, ok := m.resolver.Resolve(first)
	if !ok {
		return nil, false
	}
	if fe.Version() == v {
		return fe, true
	}
	id, ok := m.Lookup(first, v)
	if !ok {
		return nil, false
	}
	return m.resolver.Resolve(id)
}

// =============================================================================
// Detachment
// =============================================================================

// promotion records a derived copy that was cut loose from its lineage and
// the table rows that moved with it.
type promotion struct {
	copy    ID
	version int
	moved   []entry
}

// Detachment is the saved mapping returned by UnregisterBranch. Pass it to
// ReRegisterBranch to undo the detachment.
type Detachment struct {
	element  ID
	first    ID
	version  int
	hadEntry bool
	promoted []promotion
}

// Promoted returns the handles of derived copies that became independent.
func (d *Detachment) Promoted() []ID {
	ids := make([]ID, len(d.promoted))
	for i, p := range d.promoted {
		ids[i] = p.copy
	}
	return ids
}

// UnregisterBranch detaches e, typically because it was removed from the
// model. For every version branched from e's version the nearest derived
// copy is promoted to be its own first version, then e's own table entry is
// removed. Unversioned elements yield an empty detachment.
func (m *Manager) UnregisterBranch(e Element) *Detachment {
	d := &Detachment{element: e.ElementID(), first: e.FirstVersion()}
	v := e.Version()
	if d.first == None || v == nil {
		return d
	}
	d.version = v.Number
	for _, b := range slices.Clone(v.Branched) {
		m.promoteBelow(d.first, b, func(p promotion) { d.promoted = append(d.promoted, p) })
	}
	if d.first != e.ElementID() {
		k := key{d.first, v.Number}
		if id, ok := m.table[k]; ok && id == e.ElementID() {
			delete(m.table, k)
			d.hadEntry = true
		}
	}
	m.logger.Debug("branch unregistered", "element", e.ElementID(), "version", v, "promoted", len(d.promoted))
	return d
}

// ReRegisterBranch re-links every copy promoted by UnregisterBranch back
// onto e's lineage. It fails with ErrCodeInvariantViolation if a promoted
// copy is no longer independent, or ErrCodeAlreadyLinked if its slot has
// been taken in the meantime.
func (m *Manager) ReRegisterBranch(e Element, d *Detachment) error {
	if d == nil || d.element != e.ElementID() {
		return errors.New(errors.ErrCodeInvalidInput, "detachment does not belong to element %d", e.ElementID())
	}
	if d.first == None {
		return nil
	}
	for _, p := range d.promoted {
		c, ok := m.resolver.Resolve(p.copy)
		if !ok {
			return errors.New(errors.ErrCodeNotFound, "promoted copy %d not found", p.copy)
		}
		if !IsFirstVersion(c) {
			return errors.New(errors.ErrCodeInvariantViolation, "branch %d is not independent and cannot be reattached", p.copy)
		}
		if id, taken := m.table[key{d.first, p.version}]; taken {
			return errors.New(errors.ErrCodeAlreadyLinked, "lineage %d already linked to %d in version %d", d.first, id, p.version)
		}
	}
	if d.hadEntry {
		if id, taken := m.table[key{d.first, d.version}]; taken {
			return errors.New(errors.ErrCodeAlreadyLinked, "lineage %d already linked to %d in version %d", d.first, id, d.version)
		}
	}

	for _, p := range d.promoted {
		c, _ := m.resolver.Resolve(p.copy)
		for _, mv := range p.moved {
			delete(m.table, key{p.copy, mv.version})
			m.table[key{d.first, mv.version}] = mv.id
			if el, ok := m.resolver.Resolve(mv.id); ok {
				el.SetFirstVersion(d.first)
			}
		}
		m.table[key{d.first, p.version}] = p.copy
		c.SetFirstVersion(d.first)
		if v, ok := m.byNumber[p.version]; ok {
			v.removeCreated(p.copy)
		}
	}
	if d.hadEntry {
		m.table[key{d.first, d.version}] = e.ElementID()
	}
	e.SetFirstVersion(d.first)
	m.logger.Debug("branch re-registered", "element", e.ElementID(), "reattached", len(d.promoted))
	return nil
}

// MakeIndependentOfOlderVersions cuts e free from the lineage it was derived
// from. Incarnations in versions branched (transitively) from e's version
// are re-pointed to treat e as their first version.
func (m *Manager) MakeIndependentOfOlderVersions(e Element) {
	m.makeIndependent(e)
}

func (m *Manager) makeIndependent(e Element) []entry {
	first := e.FirstVersion()
	v := e.Version()
	if first == None || first == e.ElementID() || v == nil {
		return nil
	}
	delete(m.table, key{first, v.Number})
	moved := m.rehome(first, e.ElementID(), v)
	e.SetFirstVersion(e.ElementID())
	v.addCreated(e.ElementID())
	return moved
}

// rehome re-keys every entry of lineage oldFirst whose version lies strictly
// below root onto lineage newFirst.
func (m *Manager) rehome(oldFirst, newFirst ID, root *Version) []entry {
	var moved []entry
	for k, id := range m.table {
		if k.first != oldFirst {
			continue
		}
		v, ok := m.byNumber[k.version]
		if !ok || !root.IsAncestorOf(v) {
			continue
		}
		moved = append(moved, entry{version: k.version, id: id})
	}
	for _, mv := range moved {
		delete(m.table, key{oldFirst, mv.version})
		m.table[key{newFirst, mv.version}] = mv.id
		if el, ok := m.resolver.Resolve(mv.id); ok {
			el.SetFirstVersion(newFirst)
		}
	}
	return moved
}

// promoteBelow promotes the incarnation of lineage first in b, or, when b
// has none, searches b's branches.
func (m *Manager) promoteBelow(first ID, b *Version, record func(promotion)) {
	if id, ok := m.table[key{first, b.Number}]; ok {
		if c, ok := m.resolver.Resolve(id); ok {
			moved := m.makeIndependent(c)
			record(promotion{copy: id, version: b.Number, moved: moved})
			return
		}
	}
	for _, bb := range slices.Clone(b.Branched) {
		m.promoteBelow(first, bb, record)
	}
}

// =============================================================================
// Version Deletion
// =============================================================================

// DeleteVersion removes v from the version tree. Every version branched
// from v is re-parented to v's parent, and every element first created in v
// that survives in such a branch is promoted there to be its own first
// version, so history does not silently vanish. Finally all table entries
// targeting v are purged.
func (m *Manager) DeleteVersion(v *Version) error {
	if !m.manages(v) {
		return errors.New(errors.ErrCodeNotFound, "version %s is not managed", v)
	}
	parent := v.CreatedFrom
	children := slices.Clone(v.Branched)

	if parent != nil {
		parent.removeBranch(v)
	}
	for _, b := range children {
		b.CreatedFrom = parent
		if parent != nil {
			parent.Branched = append(parent.Branched, b)
		}
	}

	promoted := 0
	for _, x := range v.CreatedIn {
		for _, b := range children {
			m.promoteBelow(x, b, func(promotion) { promoted++ })
		}
	}

	for k := range m.table {
		if k.version == v.Number {
			delete(m.table, k)
		}
	}

	m.versions = slices.DeleteFunc(m.versions, func(x *Version) bool { return x == v })
	delete(m.byNumber, v.Number)
	delete(m.projects, v)
	v.Branched = nil
	v.CreatedFrom = nil

	m.logger.Debug("version deleted", "version", v, "reparented", len(children), "promoted", promoted)
	return nil
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks the version tree and the table. It returns
// ErrCodeInvariantViolation when a version is its own ancestor, a parent or
// child link is inconsistent, or a table entry targets its lineage's own
// first version, belongs to a lineage that no longer exists, or holds an
// element whose first version is another lineage.
func (m *Manager) Validate() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[*Version]int, len(m.versions))
	for _, v := range m.versions {
		if v.CreatedFrom != nil && !m.manages(v.CreatedFrom) {
			return errors.New(errors.ErrCodeInvariantViolation, "version %s has unmanaged parent %s", v, v.CreatedFrom)
		}
		for _, b := range v.Branched {
			if b.CreatedFrom != v {
				return errors.New(errors.ErrCodeInvariantViolation, "version %s lists %s as branch, but it was created from %s", v, b, b.CreatedFrom)
			}
		}
	}

	for _, v := range m.versions {
		if color[v] == black {
			continue
		}
		var path []*Version
		for p := v; p != nil && color[p] != black; p = p.CreatedFrom {
			if color[p] == gray {
				return errors.New(errors.ErrCodeInvariantViolation, "version %s is its own ancestor", p)
			}
			color[p] = gray
			path = append(path, p)
		}
		for _, p := range path {
			color[p] = black
		}
	}

	for k, id := range m.table {
		first, ok := m.resolver.Resolve(k.first)
		if !ok {
			return errors.New(errors.ErrCodeInvariantViolation, "entry for %d belongs to missing lineage %d", id, k.first)
		}
		if v := first.Version(); v != nil && v.Number == k.version {
			return errors.New(errors.ErrCodeInvariantViolation, "entry for %d maps lineage %d into its own first version", id, k.first)
		}
		if el, ok := m.resolver.Resolve(id); ok && el.FirstVersion() != k.first {
			return errors.New(errors.ErrCodeInvariantViolation, "entry for %d in version %d does not resolve back to lineage %d", id, k.version, k.first)
		}
	}
	return nil
}
