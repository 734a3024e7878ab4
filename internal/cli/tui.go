package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/forevershiningA/memorial/pkg/store"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// DesignListModel - Interactive design selection
// =============================================================================

// DesignSummary is one row of the design picker.
type DesignSummary struct {
	ID           string
	Shape        string
	Inscriptions int
	Motifs       int
	UpdatedAt    time.Time
	// Err is set when the design could not be decoded; such rows are not
	// selectable.
	Err error
}

// summarize builds a picker row from a loaded entry.
func summarize(e *store.Entry) DesignSummary {
	s := DesignSummary{ID: e.ID, UpdatedAt: e.UpdatedAt}
	if e.Record == nil {
		return s
	}
	if hs, ok := e.Record.Headstone(); ok {
		s.Shape = hs.Shape
	}
	s.Inscriptions = len(e.Record.Inscriptions())
	s.Motifs = len(e.Record.Motifs())
	return s
}

// DesignListModel is the bubbletea model for interactive design selection.
type DesignListModel struct {
	Designs  []DesignSummary
	Cursor   int
	Selected *DesignSummary
	Height   int
	Offset   int
}

// NewDesignListModel creates a new design list model.
func NewDesignListModel(designs []DesignSummary) DesignListModel {
	return DesignListModel{Designs: designs, Height: 15}
}

func (m DesignListModel) Init() tea.Cmd {
	return nil
}

func (m DesignListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Designs)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Designs) == 0 {
				return m, nil
			}
			d := m.Designs[m.Cursor]
			if d.Err != nil {
				return m, nil
			}
			m.Selected = &d
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m DesignListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Design"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	if len(m.Designs) == 0 {
		b.WriteString(listDimStyle.Render("  no designs found"))
		return b.String()
	}

	end := m.Offset + m.Height
	if end > len(m.Designs) {
		end = len(m.Designs)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		d := m.Designs[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		shape := d.Shape
		if shape == "" {
			shape = "-"
		}
		if d.Err != nil {
			shape = "invalid"
		}

		updated := "-"
		if !d.UpdatedAt.IsZero() {
			updated = formatRelativeTime(d.UpdatedAt)
		}
		rows = append(rows, []string{cursor, d.ID, shape,
			fmt.Sprint(d.Inscriptions), fmt.Sprint(d.Motifs), updated})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Design", "Shape", "Lines", "Motifs", "Updated").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Designs) {
				return lipgloss.NewStyle()
			}
			d := m.Designs[idx]
			current := idx == m.Cursor

			base := lipgloss.NewStyle()
			if d.Err != nil {
				return base.Foreground(colorDim)
			}
			if col == 5 {
				if current {
					return base.Foreground(colorGray).Bold(true)
				}
				return base.Foreground(colorDim)
			}
			if current {
				return base.Foreground(colorGreen).Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Designs))))

	return b.String()
}

// =============================================================================
// ActionListModel - What to do with the selected design
// =============================================================================

// Browse actions.
const (
	actionLayout  = "layout"
	actionScene   = "scene"
	actionProfile = "profile"
)

var browseActions = []struct{ name, desc string }{
	{actionLayout, "print element placements"},
	{actionScene, "write the scene SVG"},
	{actionProfile, "summarize the top-edge profile"},
}

// ActionListModel is the bubbletea model for picking a browse action.
type ActionListModel struct {
	Design   string
	Cursor   int
	Selected string
}

// NewActionListModel creates a new action list model.
func NewActionListModel(design string) ActionListModel {
	return ActionListModel{Design: design}
}

func (m ActionListModel) Init() tea.Cmd {
	return nil
}

func (m ActionListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(browseActions)-1 {
				m.Cursor++
			}
		case "enter":
			m.Selected = browseActions[m.Cursor].name
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ActionListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Design " + m.Design))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("arrows: navigate  enter: select  q: quit"))
	b.WriteString("\n\n")

	for i, a := range browseActions {
		cursor := "  "
		if i == m.Cursor {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%-10s %s", cursor, a.name, listDimStyle.Render(a.desc))
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
