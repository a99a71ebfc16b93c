package model

import (
	"slices"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/schemaevo/pkg/version"
)

// Space is the element arena shared by every project of one document,
// together with the version manager linking them. It is the explicit
// context object threaded through element construction: creation
// observers register here instead of on process-wide state.
//
// A Space is not safe for concurrent use.
type Space struct {
	slots     []version.Element // index = handle; slot 0 is unused
	manager   *version.Manager
	projects  []*Project
	watchers  map[int]func(version.Element)
	nextWatch int
}

// NewSpace creates an empty arena with its own version manager.
func NewSpace() *Space {
	s := &Space{
		slots:    []version.Element{nil},
		watchers: make(map[int]func(version.Element)),
	}
	s.manager = version.NewManager(s)
	return s
}

// SetLogger forwards l to the version manager.
func (s *Space) SetLogger(l *log.Logger) { s.manager.SetLogger(l) }

// Manager returns the space's version manager.
func (s *Space) Manager() *version.Manager { return s.manager }

// Resolve implements version.Resolver.
func (s *Space) Resolve(id ID) (version.Element, bool) {
	if id == None || int(id) >= len(s.slots) {
		return nil, false
	}
	el := s.slots[id]
	return el, el != nil
}

// Element returns the model element with handle id, or nil.
func (s *Space) Element(id ID) *Element {
	el, _ := s.Resolve(id)
	e, _ := el.(*Element)
	return e
}

// Project returns the project with handle id, or nil.
func (s *Space) Project(id ID) *Project {
	el, _ := s.Resolve(id)
	p, _ := el.(*Project)
	return p
}

// Projects returns all live projects in creation order.
func (s *Space) Projects() []*Project { return slices.Clone(s.projects) }

// ProjectIn returns the project registered for version v, or nil.
func (s *Space) ProjectIn(v *version.Version) *Project {
	id, ok := s.manager.Project(v)
	if !ok {
		return nil
	}
	return s.Project(id)
}

// NewProject creates an empty, unversioned project.
func (s *Space) NewProject(name string) *Project {
	p := &Project{
		space: s,
		Name:  name,
		GUID:  uuid.New(),
	}
	p.id = s.alloc(p)
	s.projects = append(s.projects, p)
	s.notify(p)
	return p
}

// DiscardProject drops p and its elements from the arena. It is the
// cleanup step for a project left behind by a failed branch; a project
// registered with the version manager should be removed with
// Manager.DeleteVersion first.
func (s *Space) DiscardProject(p *Project) {
	for _, id := range p.elements {
		s.slots[id] = nil
	}
	s.slots[p.id] = nil
	s.projects = slices.DeleteFunc(s.projects, func(x *Project) bool { return x == p })
}

// Watch registers fn to be called for every element and project created in
// the space. The returned function unregisters it.
func (s *Space) Watch(fn func(version.Element)) (cancel func()) {
	n := s.nextWatch
	s.nextWatch++
	s.watchers[n] = fn
	return func() { delete(s.watchers, n) }
}

// Len returns the number of live slots.
func (s *Space) Len() int {
	n := 0
	for _, el := range s.slots {
		if el != nil {
			n++
		}
	}
	return n
}

func (s *Space) alloc(el version.Element) ID {
	s.slots = append(s.slots, el)
	return ID(len(s.slots) - 1)
}

func (s *Space) notify(el version.Element) {
	for _, fn := range s.watchers {
		fn(el)
	}
}
