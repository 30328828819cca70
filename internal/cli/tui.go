package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/graph"
	"github.com/matzehuels/phaseflow/pkg/state"
	"github.com/matzehuels/phaseflow/pkg/summary"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	panelStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
)

type viewMode int

const (
	modeGraph viewMode = iota
	modeEdit
	modeUpload
)

// summarizer is the part of summary.Client the viewer needs.
type summarizer interface {
	Summarize(ctx context.Context, code string) (string, error)
}

// summaryMsg carries a finished summarization request back to the event loop.
type summaryMsg struct {
	ticket state.Ticket
	raw    string
	err    error
}

// =============================================================================
// ViewModel - interactive flow viewer
// =============================================================================

// ViewModel is the bubbletea model behind `phaseflow view`. All flow and
// expand state lives in the controller; the model only tracks the cursor,
// the active widget and the window size.
type ViewModel struct {
	ctx     context.Context
	ctrl    *state.Controller
	service summarizer
	// persist is called with the expanded ids after every toggle.
	persist func([]string)

	mode   viewMode
	cursor int
	offset int
	height int
	width  int
	status string

	editor textarea.Model
	path   textinput.Model
	spin   spinner.Model
}

// NewViewModel creates a viewer over ctrl. service may be nil, which disables
// uploads.
func NewViewModel(ctx context.Context, ctrl *state.Controller, service summarizer) ViewModel {
	editor := textarea.New()
	editor.Placeholder = `{"phases": [...]}`
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.SetHeight(12)

	path := textinput.New()
	path.Placeholder = "path/to/source.py"
	path.Prompt = "upload › "

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = styleIconSpinner

	return ViewModel{
		ctx:     ctx,
		ctrl:    ctrl,
		service: service,
		height:  20,
		editor:  editor,
		path:    path,
		spin:    spin,
	}
}

func (m ViewModel) Init() tea.Cmd {
	return nil
}

func (m ViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = max(msg.Height-10, 5)
		m.editor.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case summaryMsg:
		applied, err := m.ctrl.Complete(msg.ticket, msg.raw, msg.err)
		if applied && err == nil {
			m.status = "summary applied"
			m.clampCursor()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.ctrl.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case modeEdit:
			return m.updateEditor(msg)
		case modeUpload:
			return m.updateUpload(msg)
		}
		return m.updateGraph(msg)
	}
	return m, nil
}

func (m ViewModel) updateGraph(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	nodes := m.ctrl.Graph().Nodes
	m.status = ""
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(nodes)-1 {
			m.cursor++
		}
	case "enter", " ":
		if m.cursor < len(nodes) && m.ctrl.Toggle(nodes[m.cursor].ID) {
			m.saveExpanded()
		}
	case "c":
		if m.ctrl.Dispatch(state.Collapse{}) {
			m.saveExpanded()
		}
	case "e":
		m.mode = modeEdit
		m.editor.SetValue(m.ctrl.Input())
		return m, m.editor.Focus()
	case "u":
		if m.service == nil {
			m.status = "no summarization service configured"
			return m, nil
		}
		if m.ctrl.Busy() {
			m.status = state.ErrBusy.Message
			return m, nil
		}
		m.mode = modeUpload
		m.path.SetValue("")
		return m, m.path.Focus()
	case "esc":
		if m.ctrl.Busy() {
			m.ctrl.Cancel()
			m.status = "request cancelled"
		}
	}
	m.scroll()
	return m, nil
}

func (m ViewModel) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+s":
		m.editor.Blur()
		m.mode = modeGraph
		if err := m.ctrl.SubmitJSON(m.editor.Value()); err == nil {
			m.status = "flow applied"
			m.clampCursor()
		}
		return m, nil
	case "esc":
		m.editor.Blur()
		m.mode = modeGraph
		m.ctrl.SetInput(m.editor.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m ViewModel) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.path.Blur()
		m.mode = modeGraph
		return m.upload(strings.TrimSpace(m.path.Value()))
	case "esc":
		m.path.Blur()
		m.mode = modeGraph
		return m, nil
	}
	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

// upload loads path into the editor and sends it to the summarizer.
func (m ViewModel) upload(path string) (tea.Model, tea.Cmd) {
	code, err := summary.ReadSource(path)
	if err != nil {
		m.ctrl.SetError(err)
		return m, nil
	}
	m.ctrl.Upload(code)
	if strings.TrimSpace(code) == "" {
		m.ctrl.SetError(errs.New(errs.ErrCodeEmptyInput, summary.EmptyInputMessage))
		return m, nil
	}

	ticket, err := m.ctrl.Begin()
	if err != nil {
		m.status = errs.UserMessage(err)
		return m, nil
	}
	return m, tea.Batch(m.spin.Tick, m.request(ticket, code))
}

func (m ViewModel) request(ticket state.Ticket, code string) tea.Cmd {
	ctx, service := m.ctx, m.service
	return func() tea.Msg {
		raw, err := service.Summarize(ctx, code)
		return summaryMsg{ticket: ticket, raw: raw, err: err}
	}
}

func (m *ViewModel) saveExpanded() {
	if m.persist != nil {
		m.persist(m.ctrl.Expanded())
	}
}

func (m *ViewModel) clampCursor() {
	n := len(m.ctrl.Graph().Nodes)
	if m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	m.scroll()
}

func (m *ViewModel) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

// =============================================================================
// Rendering
// =============================================================================

func (m ViewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("phaseflow"))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render("↑/↓ select  ⏎ toggle  c collapse  e edit  u upload  q quit"))
	b.WriteString("\n\n")

	g := m.ctrl.Graph()
	if g.Empty() {
		b.WriteString(listDimStyle.Render("  no phases yet: press e to paste a flow or u to upload source"))
		b.WriteString("\n")
	} else {
		end := min(m.offset+m.height, len(g.Nodes))
		for i := m.offset; i < end; i++ {
			b.WriteString(m.nodeLine(g.Nodes[i], i == m.cursor))
		}
		b.WriteString(listDimStyle.Render(fmt.Sprintf("\n  [%d/%d]  %d expanded", m.cursor+1, len(g.Nodes), len(m.ctrl.Expanded()))))
		b.WriteString("\n")
	}

	if msg := m.ctrl.Err(); msg != "" {
		b.WriteString("\n" + styleIconError.Render(iconError) + " " + StyleError.Render(msg) + "\n")
	}
	if m.ctrl.Busy() {
		b.WriteString("\n" + m.spin.View() + " " + StyleDim.Render("summarizing... (esc to cancel)") + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + statusStyle(m.status).Render(m.status) + "\n")
	}

	switch m.mode {
	case modeEdit:
		b.WriteString("\n" + StyleHighlight.Render("Edit flow JSON") + StyleDim.Render("  ctrl+s submit  esc close") + "\n")
		b.WriteString(panelStyle.Render(m.editor.View()))
	case modeUpload:
		b.WriteString("\n" + panelStyle.Render(m.path.View()))
	}
	return b.String()
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "flow applied", "summary applied":
		return StyleSuccess
	}
	return StyleWarning
}

func (m ViewModel) nodeLine(n graph.Node, selected bool) string {
	indent := "  "
	switch n.Kind {
	case graph.KindDescription, graph.KindCode:
		indent = "      "
	case graph.KindSubPhase:
		indent = "    └ "
	}

	icon := " "
	if n.CanToggle() {
		icon = iconFolded
		if n.Expanded {
			icon = iconExpanded
		}
	}

	label := n.Label
	if n.Kind == graph.KindDescription && n.Description != "" {
		label += ": " + n.Description
	}
	style, ok := kindStyles[n.Kind]
	if !ok {
		style = StyleValue
	}
	cursor := "  "
	if selected {
		cursor = "▸ "
		style = listSelectedStyle
	}

	var b strings.Builder
	b.WriteString(cursor + indent + icon + " " + style.Render(label) + "\n")
	if n.Expanded {
		for _, line := range n.Code {
			b.WriteString(styleCode.Render(indent+"  "+line) + "\n")
		}
	}
	return b.String()
}
