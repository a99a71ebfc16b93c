// Package version implements the branch history of a project: a tree of
// [Version] nodes and the [Manager] table that links every incarnation of a
// model element across versions.
//
// # Overview
//
// Each version of a project holds its own heap instance of every element.
// Instances in different versions are the "same" logical element only
// through the manager's table, which maps the pair
// (first incarnation, target version) to the incarnation in that version:
//
//	m := version.NewManager(resolver)
//	v1 := m.NewVersion(nil, "")
//	v2 := m.NewVersion(v1, "")
//	err := m.RegisterBranch(src, copy, v2, false, nil)
//	id, ok := m.Lookup(src.FirstVersion(), v2) // copy.ElementID(), true
//
// Elements are addressed by opaque [ID] handles rather than pointers; a
// [Resolver] (the model's element arena) turns handles back into elements.
// The table key is a small comparable value, so lookups never depend on
// pointer identity of elements.
//
// # Lifecycle Operations
//
// Beyond registration and lookup the manager supports:
//
//   - [Manager.UnregisterBranch] and [Manager.ReRegisterBranch]: detach an
//     element removed from the model and undo that detachment
//   - [Manager.MakeIndependentOfOlderVersions]: forget history from an
//     element onwards
//   - [Manager.DeleteVersion]: drop a version, re-parenting its branches
//     and promoting surviving copies of elements first created in it
//
// [Manager.Validate] checks that the versions form a forest and that the
// table respects its invariants.
//
// # Concurrency
//
// A Manager is owned by the document thread. It performs no locking, and
// mutating it while another operation is in flight is undefined.
package version
