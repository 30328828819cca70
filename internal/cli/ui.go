package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/flow"
	"github.com/matzehuels/phaseflow/pkg/graph"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // primary
	colorGreen  = lipgloss.Color("35")  // success, expanded
	colorYellow = lipgloss.Color("220") // warnings, code nodes
	colorRed    = lipgloss.Color("167") // errors
	colorBlue   = lipgloss.Color("75")  // commands, sub-phases
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)
	StyleError     = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand  = lipgloss.NewStyle().Foreground(colorBlue)
	styleCode     = lipgloss.NewStyle().Foreground(colorGray).PaddingLeft(4)
)

// kindStyles colors node kinds consistently in tables and the viewer.
var kindStyles = map[graph.Kind]lipgloss.Style{
	graph.KindPhase:       lipgloss.NewStyle().Bold(true).Foreground(colorCyan),
	graph.KindDescription: lipgloss.NewStyle().Foreground(colorWhite),
	graph.KindCode:        lipgloss.NewStyle().Foreground(colorYellow),
	graph.KindSubPhase:    lipgloss.NewStyle().Foreground(colorBlue),
}

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess  = "✓"
	iconError    = "✗"
	iconInfo     = "›"
	iconArrow    = "→"
	iconExpanded = "▾"
	iconFolded   = "▸"
	iconCached   = "cached"
	iconFresh    = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printWarning prints an indented line in the warning color.
func printWarning(format string, args ...any) {
	fmt.Println("  " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented dim line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Println()
}

// printStats prints flow and graph counts on a single line.
func printStats(phases, nodes, edges int, cached bool) {
	status, style := iconFresh, styleComputed
	if cached {
		status, style = iconCached, styleCached
	}
	parts := []string{
		fmt.Sprintf("%d phases", phases),
		fmt.Sprintf("%d nodes", nodes),
		fmt.Sprintf("%d edges", edges),
	}
	line := "  " + StyleDim.Render(strings.Join(parts, " · "))
	fmt.Println(line + StyleDim.Render(" · ") + style.Render(status))
}

// =============================================================================
// Errors
// =============================================================================

// errorLine formats err the way it is shown inline under an editor: the
// message, then the machine-readable code in dim text.
func errorLine(err error) string {
	if err == nil {
		return ""
	}
	msg := errs.UserMessage(err)
	var ve *flow.ValidationError
	if errors.As(err, &ve) {
		msg = ve.Error()
	}
	if code := errs.GetCode(err); code != "" {
		return StyleError.Render(msg) + " " + StyleDim.Render("("+string(code)+")")
	}
	return StyleError.Render(msg)
}

// =============================================================================
// Node Table
// =============================================================================

// nodeTable renders g as a table of id, kind, position and label. Expanded
// nodes list their code lines underneath when showCode is set.
func nodeTable(g graph.Graph, showCode bool) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		state := ""
		if n.CanToggle() {
			state = iconFolded
			if n.Expanded {
				state = iconExpanded
			}
		}
		label := n.Label
		if showCode && n.Expanded {
			label += "\n" + strings.Join(n.Code, "\n")
		}
		rows = append(rows, []string{
			state,
			n.ID,
			string(n.Kind),
			fmt.Sprintf("%g,%g", n.Position.X, n.Position.Y),
			label,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Kind", "Position", "Label").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < 0 || row >= len(g.Nodes) {
				return lipgloss.NewStyle()
			}
			if col == 2 || col == 4 {
				return kindStyles[g.Nodes[row].Kind]
			}
			return StyleDim
		})
	return t.Render()
}
