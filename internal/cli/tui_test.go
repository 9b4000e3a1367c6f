package cli

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/plan"
)

func testPlan() *plan.Plan {
	pl := plan.New("optics", layout.DefaultCanvas())
	pl.Step("assess_complexity", map[string]any{"complexity": 2.5})
	pl.Step("decompose", map[string]any{"strategy": "none", "subproblems": 0})
	pl.Step("formulate_constraints", map[string]any{"count": 1})
	return pl
}

func press(m tea.Model, key string) tea.Model {
	var msg tea.KeyMsg
	switch key {
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	m, _ = m.Update(msg)
	return m
}

func TestStepListNavigation(t *testing.T) {
	var m tea.Model = NewStepListModel(testPlan())

	tests := []struct {
		key    string
		cursor int
	}{
		{"down", 1},
		{"down", 2},
		{"down", 2}, // clamps at the last step
		{"up", 1},
		{"G", 2},
		{"g", 0},
		{"up", 0},
	}
	for _, tt := range tests {
		m = press(m, tt.key)
		if got := m.(StepListModel).Cursor; got != tt.cursor {
			t.Fatalf("after %q cursor = %d, want %d", tt.key, got, tt.cursor)
		}
	}
}

func TestStepListScrolls(t *testing.T) {
	pl := testPlan()
	for i := 0; i < 10; i++ {
		pl.Step("solve", nil)
	}
	m := NewStepListModel(pl)
	m.Height = 5

	var model tea.Model = m
	for i := 0; i < 7; i++ {
		model = press(model, "j")
	}
	got := model.(StepListModel)
	if got.Cursor != 7 || got.Offset != 3 {
		t.Errorf("cursor, offset = %d, %d, want 7, 3", got.Cursor, got.Offset)
	}
}

func TestStepListQuit(t *testing.T) {
	m := NewStepListModel(testPlan())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestStepListView(t *testing.T) {
	m := NewStepListModel(testPlan())
	view := m.View()
	for _, want := range []string{"Planning log: optics", "assess_complexity", "decompose", "[1/3]", "complexity: 2.5"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m = press(m, "enter").(StepListModel)
	if strings.Contains(m.View(), "complexity: 2.5") {
		t.Error("enter should hide the payload")
	}
}

func TestStepListEmpty(t *testing.T) {
	m := NewStepListModel(plan.New("", layout.DefaultCanvas()))
	m = press(m, "down").(StepListModel)
	if m.Cursor != 0 {
		t.Errorf("cursor = %d on empty log", m.Cursor)
	}
	if !strings.Contains(m.View(), "(empty log)") {
		t.Errorf("view = %q", m.View())
	}
}

func TestRelativeOffset(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "—"},
		{start, "+0s"},
		{start.Add(250 * time.Microsecond), "+250µs"},
		{start.Add(1500 * time.Millisecond), "+1.5s"},
	}
	for _, tt := range tests {
		if got := relativeOffset(start, tt.t); got != tt.want {
			t.Errorf("relativeOffset(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestPayloadSummary(t *testing.T) {
	if got := payloadSummary(nil); got != "—" {
		t.Errorf("nil payload = %q", got)
	}
	if got := payloadSummary(map[string]any{"b": 1, "a": 2}); got != "a, b" {
		t.Errorf("summary = %q, want sorted keys", got)
	}
}
