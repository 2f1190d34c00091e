package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/money-god/mgl-governance/internal/cli/render"
	"github.com/money-god/mgl-governance/internal/usecase"
)

// entryItem is a selectable queue entry
type entryItem struct {
	entry usecase.QueueEntry
	label string
}

// multiSelectModel is the bubbletea model for multi-select
type multiSelectModel struct {
	items    []entryItem
	cursor   int
	selected map[int]bool
	title    string
	done     bool
}

func initialMultiSelectModel(entries []usecase.QueueEntry, describe render.CallDescriber, title string) multiSelectModel {
	items := make([]entryItem, len(entries))
	for i, e := range entries {
		items[i] = entryItem{entry: e, label: describe(e.Action.Target, e.Action.Payload)}
	}
	return multiSelectModel{
		items:    items,
		selected: make(map[int]bool),
		title:    title,
	}
}

// Init is the initial command for bubbletea
func (m multiSelectModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m multiSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case " ":
			m.selected[m.cursor] = !m.selected[m.cursor]
		case "a":
			all := len(m.indices()) < len(m.items)
			for i := range m.items {
				m.selected[i] = all
			}
		case "enter":
			if len(m.indices()) > 0 {
				m.done = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

// View renders the UI
func (m multiSelectModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(color.New(color.FgCyan, color.Bold).Sprintf("%s\n\n", m.title))

	for i, item := range m.items {
		cursor := " "
		if m.cursor == i {
			cursor = color.New(color.FgCyan).Sprint("▸")
		}

		checkbox := color.New(color.FgWhite).Sprint("○")
		if m.selected[i] {
			checkbox = color.New(color.FgGreen).Sprint("✓")
		}

		key := color.New(color.FgBlue).Sprint(render.ShortHash(item.entry.Key))
		eta := color.New(color.Faint).Sprintf("(eta %s)", render.FormatTimestamp(item.entry.Action.ETA))

		b.WriteString(fmt.Sprintf("%s %s %s %s %s\n", cursor, checkbox, key, item.label, eta))
	}

	b.WriteString("\n")
	b.WriteString(color.New(color.FgYellow).Sprint("↑/↓: move  Space: toggle  a: all  Enter: confirm  q: quit\n"))

	return b.String()
}

// indices returns the selected positions in list order
func (m multiSelectModel) indices() []int {
	var out []int
	for i := range m.items {
		if m.selected[i] {
			out = append(out, i)
		}
	}
	return out
}

// SelectEntries shows a multi-select of queue entries and returns the chosen ones
func SelectEntries(entries []usecase.QueueEntry, describe render.CallDescriber, title string) ([]usecase.QueueEntry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no scheduled actions to select")
	}

	p := tea.NewProgram(initialMultiSelectModel(entries, describe, title))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("multi-select failed: %w", err)
	}

	m := finalModel.(multiSelectModel)
	if !m.done {
		return nil, fmt.Errorf("selection cancelled")
	}

	chosen := make([]usecase.QueueEntry, 0, len(entries))
	for _, i := range m.indices() {
		chosen = append(chosen, m.items[i].entry)
	}
	return chosen, nil
}
