package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/money-god/mgl-governance/internal/usecase"
	"github.com/stretchr/testify/assert"
)

func testEntries(n int) []usecase.QueueEntry {
	entries := make([]usecase.QueueEntry, n)
	for i := range entries {
		action := &models.ScheduledAction{
			Target:  common.BigToAddress(common.Big1),
			Payload: []byte{byte(i)},
			ETA:     uint64(100 + i),
		}
		entries[i] = usecase.QueueEntry{Action: action, Key: action.Key(), Status: models.ActionStatusReady}
	}
	return entries
}

func press(m multiSelectModel, keys ...string) multiSelectModel {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(multiSelectModel)
	}
	return m
}

func TestMultiSelectModel(t *testing.T) {
	describe := func(common.Address, []byte) string { return "call" }

	t.Run("toggles in list order", func(t *testing.T) {
		m := initialMultiSelectModel(testEntries(3), describe, "pick")
		m = press(m, "down", "down", " ", "up", "up", " ", "enter")

		assert.True(t, m.done)
		assert.Equal(t, []int{0, 2}, m.indices())
	})

	t.Run("enter without selection keeps the prompt open", func(t *testing.T) {
		m := initialMultiSelectModel(testEntries(2), describe, "pick")
		m = press(m, "enter")

		assert.False(t, m.done)
		assert.Contains(t, m.View(), "pick")
	})

	t.Run("a toggles every entry", func(t *testing.T) {
		m := initialMultiSelectModel(testEntries(3), describe, "pick")
		m = press(m, "a")
		assert.Equal(t, []int{0, 1, 2}, m.indices())

		m = press(m, "a")
		assert.Empty(t, m.indices())
	})

	t.Run("cursor stays in bounds", func(t *testing.T) {
		m := initialMultiSelectModel(testEntries(2), describe, "pick")
		m = press(m, "up", "down", "down", "down")
		assert.Equal(t, 1, m.cursor)
	})
}
