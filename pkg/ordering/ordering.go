// Package ordering linearizes PSM trees so that every node comes after the
// nodes it structurally depends on.
//
// # Algorithm
//
// [InPSMOrder] walks the forest breadth-first from the requested roots,
// expanding superordinate components, class-union components,
// specializations and association children. Before a node is emitted its
// prerequisites (see [model.Dependencies]) must have been emitted. A node
// whose prerequisites are still pending is deferred: the pending
// prerequisites and then the node itself are pushed to the front of the
// queue. A node may be deferred only once; meeting it a second time with
// unmet prerequisites means the dependencies form a cycle and the walk
// fails. Every node is therefore dequeued a bounded number of times and
// the walk always terminates.
//
// Failure is reported with a false result, not an error, so callers can
// try an ordering without treating a cycle as fatal.
package ordering

import (
	"slices"

	"github.com/matzehuels/schemaevo/pkg/model"
)

// Prerequisites returns the nodes that must be materialized before id.
func Prerequisites(p *model.Project, id model.ID) []model.ID {
	e := p.Element(id)
	if e == nil {
		return nil
	}
	return model.Dependencies(e)
}

// children returns the structural children expanded after e.
func children(e *model.Element) []model.ID {
	switch e.Kind() {
	case model.KindPSMClass:
		return append(slices.Clone(e.Components), e.Specializations...)
	case model.KindContentContainer, model.KindContentChoice, model.KindClassUnion:
		return e.Components
	case model.KindPSMAssociation:
		return []model.ID{e.Child}
	case model.KindPSMGeneralization:
		return []model.ID{e.Specific}
	case model.KindInvalid, model.KindPackage, model.KindPrimitiveType, model.KindProfile,
		model.KindClass, model.KindAssociationClass, model.KindComment, model.KindGeneralization,
		model.KindAssociation, model.KindPIMDiagram, model.KindPSMDiagram,
		model.KindAttributeContainer, model.KindDiagramReference:
	}
	return nil
}

// seedOrder sorts roots by their position in the root list of their
// diagram. Roots that are not listed there keep their input order after
// the listed ones.
func seedOrder(p *model.Project, roots []model.ID) []model.ID {
	pos := make(map[model.ID]int, len(roots))
	for i, id := range roots {
		pos[id] = len(roots) + i
		e := p.Element(id)
		if e == nil {
			continue
		}
		if d := p.Element(e.Owner); d != nil {
			if j := slices.Index(d.Roots, id); j >= 0 {
				pos[id] = j
			}
		}
	}
	seeded := slices.Clone(roots)
	slices.SortStableFunc(seeded, func(a, b model.ID) int { return pos[a] - pos[b] })
	return seeded
}

// InPSMOrder returns the nodes reachable from roots in an order where each
// node follows its prerequisites. With addMet false only the requested
// roots are returned, in the same relative order. It reports false when
// the prerequisites contain a cycle.
func InPSMOrder(p *model.Project, roots []model.ID, addMet bool) ([]model.ID, bool) {
	var (
		queue    = seedOrder(p, roots)
		expanded = make(map[model.ID]bool)
		done     = make(map[model.ID]bool)
		deferred = make(map[model.ID]bool)
		order    []model.ID
	)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if done[id] {
			continue
		}
		e := p.Element(id)
		if e == nil {
			continue
		}
		if !expanded[id] {
			expanded[id] = true
			for _, c := range children(e) {
				if c != model.None && !done[c] {
					queue = append(queue, c)
				}
			}
		}

		var unmet []model.ID
		for _, dep := range model.Dependencies(e) {
			if !done[dep] && p.Element(dep) != nil {
				unmet = append(unmet, dep)
			}
		}
		if len(unmet) == 0 {
			done[id] = true
			order = append(order, id)
			continue
		}
		if deferred[id] {
			return nil, false
		}
		deferred[id] = true
		front := append(unmet, id)
		queue = append(front, queue...)
	}

	if addMet {
		return order, true
	}
	requested := make(map[model.ID]bool, len(roots))
	for _, id := range roots {
		requested[id] = true
	}
	return slices.DeleteFunc(order, func(id model.ID) bool { return !requested[id] }), true
}
