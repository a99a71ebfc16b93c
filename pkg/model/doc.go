// Package model holds the PIM and PSM elements of schema projects and the
// arena they live in.
//
// # Overview
//
// A [Space] owns every element of every project of one document, together
// with the [version.Manager] that links them across versions. Elements are
// addressed by [ID] handles into the space's arena; relations such as
// parent, association child, union owner or generalization are stored as
// handles and resolved through [Project.Element], never as pointers held in
// both directions. A [Project] is the slice of the arena that materializes
// one version.
//
// # Kinds
//
// [Kind] is a closed set covering PIM kinds (packages, classes,
// associations, generalizations, comments, diagrams) and PSM tree kinds
// (PSM classes, class unions, content containers, content choices,
// attribute containers, PSM associations, PSM generalizations). Role
// predicates such as [Kind.IsSuperordinate] and [Kind.IsAssociationChild]
// replace type tests.
//
// # Mutators
//
// Constructors (NewPackage, NewClass, NewPSMClass, AddChildClass, ...) check
// their references: unknown handles yield ErrCodeNotFound, wrong kinds and
// bad values ErrCodeInvalidInput. Diagram
// members are added with [Project.AddMember], which refuses an element
// whose dependencies are not members yet. [Project.MoveComponent] and
// [Project.SetBounds] edit PSM trees in place.
//
// [Project.Remove] detaches an element that nothing references any more and
// unregisters it from the version table; [Project.Restore] undoes it.
// Branching copies elements with [Project.CloneElement] and
// [Project.CopyLists].
//
// # Versions
//
// Every element implements [version.Element]. [Element.InVersion] resolves
// the element's incarnation in another version, and elements created in a
// versioned project are originals of that version. [Space.Watch] observes
// element creation.
//
// A Space is not safe for concurrent use.
package model
