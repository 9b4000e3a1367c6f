package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stemplan/pkg/plan"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	detailStyle       = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// =============================================================================
// StepListModel - Interactive planning log browser
// =============================================================================

// StepListModel is the bubbletea model for browsing a plan's log.
type StepListModel struct {
	Plan   *plan.Plan
	Cursor int
	Height int
	Offset int
	Detail bool // show the payload of the selected step
}

// NewStepListModel creates a log browser for pl.
func NewStepListModel(pl *plan.Plan) StepListModel {
	return StepListModel{Plan: pl, Height: 12, Detail: true}
}

func (m StepListModel) Init() tea.Cmd {
	return nil
}

func (m StepListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	n := len(m.Plan.Log)
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
			if m.Cursor < n-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "end", "G":
			if n > 0 {
				m.Cursor = n - 1
				m.Offset = max(0, n-m.Height)
			}
		case "enter", " ":
			m.Detail = !m.Detail
		}
	case tea.WindowSizeMsg:
		m.Height = max(5, msg.Height/2-4)
	}
	return m, nil
}

func (m StepListModel) View() string {
	var b strings.Builder

	title := "Planning log"
	if m.Plan.Domain != "" {
		title += ": " + m.Plan.Domain
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%s · %s · complexity %.1f · %d constraints",
		shortID(m.Plan.ID), m.Plan.Strategy, m.Plan.Complexity, len(m.Plan.Constraints))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ toggle details  q quit"))
	b.WriteString("\n\n")

	if len(m.Plan.Log) == 0 {
		b.WriteString(listDimStyle.Render("  (empty log)"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Plan.Log))
	start := m.Plan.Log[0].Time
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		s := m.Plan.Log[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, fmt.Sprint(i + 1), s.Name, relativeOffset(start, s.Time), payloadSummary(s.Payload)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "#", "Step", "At", "Payload").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			if col == 3 || col == 4 {
				return listDimStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Plan.Log))))

	if m.Detail {
		b.WriteString("\n")
		b.WriteString(detailStyle.Render(stepDetail(m.Plan.Log[m.Cursor])))
	}
	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

// stepDetail renders a step payload as YAML.
func stepDetail(s plan.Step) string {
	if len(s.Payload) == 0 {
		return listDimStyle.Render(s.Name + ": no payload")
	}
	out, err := yaml.Marshal(s.Payload)
	if err != nil {
		return StyleError.Render(err.Error())
	}
	return StyleTitle.Render(s.Name) + "\n" + strings.TrimRight(string(out), "\n")
}

// payloadSummary lists the payload keys in sorted order.
func payloadSummary(p map[string]any) string {
	if len(p) == 0 {
		return "—"
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return truncate(strings.Join(keys, ", "), 40)
}

// relativeOffset formats t as an offset from the first step.
func relativeOffset(start, t time.Time) string {
	if t.IsZero() || start.IsZero() {
		return "—"
	}
	d := t.Sub(start)
	switch {
	case d < time.Millisecond:
		return "+" + d.Round(time.Microsecond).String()
	case d < time.Second:
		return "+" + d.Round(100*time.Microsecond).String()
	default:
		return "+" + d.Round(time.Millisecond).String()
	}
}
