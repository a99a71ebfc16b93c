// Package pkg provides the core libraries for schemaevo, a versioned store
// for conceptual (PIM) and XML-oriented (PSM) schema models.
//
// # Overview
//
// A single [model.Space] holds every version of a project side by side.
// Branching deep-copies the latest project into a new version and records,
// for every copied element, which element it descends from. Change
// detectors then compare two versions of the same PSM subtree and report
// what a schema migration has to handle.
//
// # Architecture
//
// The typical data flow:
//
//	scenario.toml
//	     ↓
//	[scenario] package (decode, validate, build the initial project)
//	     ↓
//	[branch] package (copy a project into a new version)
//	     ↓
//	[version] package (version graph + element lookup table)
//	     ↓
//	[evolution] package (detect and classify changes)
//
// # Quick Start
//
//	s, _ := scenario.Load("shop.toml")
//	space := model.NewSpace()
//	p, _ := s.Build(space)
//
//	next, _ := branch.Project(ctx, space, p, branch.Options{Label: "draft"})
//
//	for _, root := range next.ElementsOfKind(model.KindPSMClass) {
//	    changes, _ := evolution.DetectTree(ctx, p.Version(), next.Version(), root, evolution.Options{})
//	    for _, c := range changes {
//	        fmt.Println(c)
//	    }
//	}
//
// # Main Packages
//
// [model] - Elements, projects and the shared space. Elements are addressed
// by handle; removal detaches an element and can be undone.
//
// [version] - Version graph and the Version Manager, which answers which
// element represents a given element in another version.
//
// [ordering] - Dependency order of PSM trees, used to recreate trees when
// branching.
//
// [branch] - Branching and version deletion.
//
// [evolution] - Change detectors with edit types and invalidation flags.
//
// [scenario] - TOML scenarios: an initial project plus a list of steps.
//
// [observability] - Hook registry for branch and detection events.
//
// [errors] - Error codes shared by every package.
//
// [model]: https://pkg.go.dev/github.com/matzehuels/schemaevo/pkg/model
// [version]: https://pkg.go.dev/github.com/matzehuels/schemaevo/pkg/version
// [ordering]: https://pkg.go.dev/github.com/matzehuels/schemaevo/pkg/ordering
// [branch]: https://pkg.go.dev/github.com/matzehuels/schemaevo/pkg/branch
// [evolution]: https://pkg.go.dev/github.com/matzehuels/schemaevo/pkg/evolution
// [scenario]: https://pkg.go.dev/github.com/matzehuels/schemaevo/pkg/scenario
// [observability]: https://pkg.go.dev/github.com/matzehuels/schemaevo/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/schemaevo/pkg/errors
package pkg
