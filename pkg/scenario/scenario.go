// Package scenario loads schema evolution scenarios from TOML files and runs
// them.
//
// A scenario describes an initial project (packages, PIM classes and
// associations, PIM and PSM diagrams with nested tree nodes) followed by a
// list of steps: branch into a new version, edit the current version, delete
// a version, or diff two versions.
//
//	name = "shop"
//
//	[settings]
//	priority = ["class", "association"]
//	verify = true
//
//	[[packages]]
//	name = "sales"
//
//	[[classes]]
//	name = "Customer"
//	package = "sales"
//
//	[[diagrams]]
//	name = "orders"
//	kind = "psm"
//
//	[[diagrams.roots]]
//	name = "Customer"
//	label = "customer"
//	represents = "Customer"
//
//	[[diagrams.roots.children]]
//	kind = "content-container"
//	name = "info"
//
//	[[steps]]
//	action = "branch"
//
//	[[steps]]
//	action = "add"
//	parent = "Customer"
//	node = { kind = "content-container", name = "extra" }
//
//	[[steps]]
//	action = "diff"
//	from = 1
//	to = 2
package scenario

import (
	"os"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/schemaevo/pkg/errors"
	"github.com/matzehuels/schemaevo/pkg/model"
)

// Scenario is the decoded form of a scenario file.
type Scenario struct {
	Name            string           `toml:"name"`
	Settings        Settings         `toml:"settings"`
	Packages        []Package        `toml:"packages"`
	PrimitiveTypes  []string         `toml:"primitive_types"`
	Profiles        []Profile        `toml:"profiles"`
	Classes         []Class          `toml:"classes"`
	Associations    []Association    `toml:"associations"`
	Generalizations []Generalization `toml:"generalizations"`
	Comments        []Comment        `toml:"comments"`
	Diagrams        []Diagram        `toml:"diagrams"`
	Steps           []Step           `toml:"steps"`
}

// Settings holds run-wide options.
type Settings struct {
	// Priority lists element kinds in the order PIM diagram members are
	// inserted when branching.
	Priority []string `toml:"priority"`

	// Verify self-checks every detected change.
	Verify bool `toml:"verify"`
}

type Package struct {
	Name   string `toml:"name"`
	Parent string `toml:"parent"`
}

type Profile struct {
	Name        string   `toml:"name"`
	Stereotypes []string `toml:"stereotypes"`
}

type Attribute struct {
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	Lower *int   `toml:"lower"`
	Upper *int   `toml:"upper"`
}

// Class is a PIM class in Package, which is required. A class with ends is
// an association class.
type Class struct {
	Name       string      `toml:"name"`
	Package    string      `toml:"package"`
	Attributes []Attribute `toml:"attributes"`
	Ends       []string    `toml:"ends"`
}

type Association struct {
	Name string   `toml:"name"`
	Ends []string `toml:"ends"`
}

type Generalization struct {
	General  string `toml:"general"`
	Specific string `toml:"specific"`
}

type Comment struct {
	Annotates string `toml:"annotates"`
	Text      string `toml:"text"`
}

// Diagram is a PIM diagram listing members, or a PSM diagram holding trees.
type Diagram struct {
	Name    string   `toml:"name"`
	Kind    string   `toml:"kind"`
	Members []string `toml:"members"`
	Roots   []Node   `toml:"roots"`
}

// Node is a PSM tree node. Kind defaults to "class". Classes and unions
// below another node are attached through an association whose bounds
// default to 1..1.
type Node struct {
	Kind       string      `toml:"kind"`
	Name       string      `toml:"name"`
	Label      string      `toml:"label"`
	Represents string      `toml:"represents"`
	Attributes []Attribute `toml:"attributes"`
	Lower      *int        `toml:"lower"`
	Upper      *int        `toml:"upper"`
	Children   []Node      `toml:"children"`
}

// Step is one scenario action.
type Step struct {
	Action  string `toml:"action"`
	Label   string `toml:"label"`
	Initial bool   `toml:"initial"`

	// Version selects the project a step edits, or the version to delete.
	// Zero means the current project.
	Version int `toml:"version"`

	Parent string `toml:"parent"`
	Target string `toml:"target"`
	Index  int    `toml:"index"`
	Node   *Node  `toml:"node"`
	Lower  int    `toml:"lower"`
	Upper  int    `toml:"upper"`

	From int    `toml:"from"`
	To   int    `toml:"to"`
	Root string `toml:"root"`
}

const (
	ActionBranch        = "branch"
	ActionAdd           = "add"
	ActionRemove        = "remove"
	ActionMove          = "move"
	ActionBounds        = "bounds"
	ActionDeleteVersion = "delete-version"
	ActionDiff          = "diff"
)

var actions = []string{
	ActionBranch, ActionAdd, ActionRemove, ActionMove, ActionBounds, ActionDeleteVersion, ActionDiff,
}

const (
	nodeClass     = "class"
	nodeUnion     = "class-union"
	nodeContainer = "content-container"
	nodeChoice    = "content-choice"
	nodeAttrs     = "attribute-container"
)

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "scenario %s", path)
	}
	return s, nil
}

// Parse decodes and validates scenario TOML.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode scenario")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown key %q", undecoded[0].String())
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the values that decoding cannot: kind names, diagram
// kinds and step actions. References between names are checked when the
// scenario is built.
func (s *Scenario) Validate() error {
	if _, err := s.Priority(); err != nil {
		return err
	}
	for _, d := range s.Diagrams {
		switch d.Kind {
		case "pim":
			if len(d.Roots) > 0 {
				return errors.New(errors.ErrCodeInvalidInput, "pim diagram %q has tree roots", d.Name)
			}
		case "psm":
			if len(d.Members) > 0 {
				return errors.New(errors.ErrCodeInvalidInput, "psm diagram %q lists members", d.Name)
			}
			for _, n := range d.Roots {
				if err := n.validate(true); err != nil {
					return err
				}
			}
		default:
			return errors.New(errors.ErrCodeInvalidInput, "diagram %q: kind must be pim or psm, got %q", d.Name, d.Kind)
		}
	}
	for i, st := range s.Steps {
		if !slices.Contains(actions, st.Action) {
			return errors.New(errors.ErrCodeInvalidInput, "step %d: unknown action %q", i+1, st.Action)
		}
		if st.Action == ActionAdd {
			if st.Node == nil {
				return errors.New(errors.ErrCodeInvalidInput, "step %d: add needs a node", i+1)
			}
			if err := st.Node.validate(false); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "step %d", i+1)
			}
		}
		if st.Label != "" {
			if err := errors.ValidateLabel(st.Label); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "step %d", i+1)
			}
		}
	}
	return nil
}

func (n *Node) kind() string {
	if n.Kind == "" {
		return nodeClass
	}
	return n.Kind
}

func (n *Node) validate(root bool) error {
	switch n.kind() {
	case nodeClass, nodeUnion:
	case nodeContainer, nodeChoice, nodeAttrs:
		if root {
			return errors.New(errors.ErrCodeInvalidInput, "%s %q cannot be a root", n.kind(), n.Name)
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown node kind %q", n.Kind)
	}
	if n.kind() == nodeAttrs && len(n.Children) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "attribute container has children")
	}
	for i := range n.Children {
		if err := n.Children[i].validate(false); err != nil {
			return err
		}
	}
	return nil
}

// Priority converts the configured priority names to kinds.
func (s *Scenario) Priority() ([]model.Kind, error) {
	var out []model.Kind
	for _, name := range s.Settings.Priority {
		k, ok := model.ParseKind(name)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown kind %q in priority", name)
		}
		out = append(out, k)
	}
	return out, nil
}

func (a Attribute) model() model.Attribute {
	out := model.Attribute{Name: a.Name, Type: a.Type, Lower: 1, Upper: 1}
	if a.Lower != nil {
		out.Lower = *a.Lower
	}
	if a.Upper != nil {
		out.Upper = *a.Upper
	}
	return out
}

func attributes(in []Attribute) []model.Attribute {
	out := make([]model.Attribute, 0, len(in))
	for _, a := range in {
		out = append(out, a.model())
	}
	return out
}
