package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/schemaevo/pkg/evolution"
	"github.com/matzehuels/schemaevo/pkg/model"
	"github.com/matzehuels/schemaevo/pkg/version"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - additions, success
	colorYellow = lipgloss.Color("220") // Amber - in-place edits
	colorRed    = lipgloss.Color("167") // Soft red - removals, errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)

	styleAddition  = lipgloss.NewStyle().Foreground(colorGreen)
	styleRemoval   = lipgloss.NewStyle().Foreground(colorRed)
	styleSedentary = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess   = "✓"
	iconError     = "✗"
	iconWarning   = "!"
	iconInfo      = "›"
	iconArrow     = "→"
	iconAddition  = "+"
	iconRemoval   = "-"
	iconSedentary = "~"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints an indented dim line.
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

func printNewline() {
	fmt.Println()
}

// =============================================================================
// Domain Output
// =============================================================================

// printChange prints one change with its invalidation flags.
func printChange(c evolution.Change) {
	icon, style := iconSedentary, styleSedentary
	switch c.EditType() {
	case evolution.Addition:
		icon, style = iconAddition, styleAddition
	case evolution.Removal:
		icon, style = iconRemoval, styleRemoval
	case evolution.Sedentary:
	}

	var flags []string
	if c.InvalidatesAttributes() {
		flags = append(flags, "attributes")
	}
	if c.InvalidatesContent() {
		flags = append(flags, "content")
	}
	line := "  " + style.Render(icon) + " " + describe(c)
	if len(flags) > 0 {
		line += StyleDim.Render("  invalidates " + strings.Join(flags, ", "))
	}
	fmt.Println(line)
}

func describe(c evolution.Change) string {
	switch c := c.(type) {
	case *evolution.ComponentAdded:
		return fmt.Sprintf("%s added to %s", StyleValue.Render(c.Component.String()), c.Subject())
	case *evolution.ComponentRemoved:
		return fmt.Sprintf("%s removed from %s", StyleValue.Render(c.Component.String()), c.Subject())
	case *evolution.ComponentReordered:
		return fmt.Sprintf("%s moved in %s: %d %s %d", StyleValue.Render(c.Component.String()), c.Subject(),
			c.OldIndex, iconArrow, c.NewIndex)
	case *evolution.CardinalityChanged:
		return fmt.Sprintf("%s bounds %s %s %s", StyleValue.Render(c.Subject().String()),
			bounds(c.OldLower, c.OldUpper), iconArrow, bounds(c.NewLower, c.NewUpper))
	}
	return c.String()
}

func bounds(lower, upper int) string {
	if upper < 0 {
		return fmt.Sprintf("%d..*", lower)
	}
	return fmt.Sprintf("%d..%d", lower, upper)
}

// printVersionTree prints the version forest with one version per line,
// children indented below their parent.
func printVersionTree(m *version.Manager) {
	var walk func(v *version.Version, depth int)
	walk = func(v *version.Version, depth int) {
		fmt.Printf("%s%s %s %s\n", strings.Repeat("  ", depth), StyleNumber.Render(fmt.Sprintf("#%d", v.Number)),
			StyleValue.Render(v.Label), StyleDim.Render(fmt.Sprintf("(%d created)", len(v.CreatedIn))))
		for _, b := range v.Branched {
			walk(b, depth+1)
		}
	}
	for _, r := range m.Roots() {
		walk(r, 0)
	}
}

// printTreeNode prints a PSM node indented by its depth.
func printTreeNode(i int, e *model.Element, depth int) {
	fmt.Printf("%s %s%s\n", StyleDim.Render(fmt.Sprintf("%3d", i+1)), strings.Repeat("  ", depth), e)
}
