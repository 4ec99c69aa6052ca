package tui

import (
	"sort"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"stockyard/browser/internal/domain"
	"stockyard/browser/internal/domain/action"
)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	switch m.focused {
	case focusFilter:
		return m.handleFilterKey(msg)
	case focusPrompt:
		return m.handlePromptKey(msg)
	default:
		return m.handleTreeKey(msg)
	}
}

func (m Model) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.snap.Rows)-1 {
			m.cursor++
		}
		return m, nil

	case "g", "home":
		m.cursor = 0
		return m, nil

	case "G", "end":
		if len(m.snap.Rows) > 0 {
			m.cursor = len(m.snap.Rows) - 1
		}
		return m, nil

	case "enter", " ":
		row, ok := m.currentRow()
		if !ok || !row.Expandable {
			return m, nil
		}
		m.inflight++
		return m, tea.Batch(m.toggleCmd(row.ID), spinnerTick())

	case "/":
		return m.openFilter(0)

	case "#":
		return m.openFilter(1)

	case "[":
		return m.pageBy(-1)

	case "]":
		return m.pageBy(1)

	case "r":
		owner, _, _, ok := m.sectionUnderCursor()
		if !ok {
			return m, nil
		}
		m.inflight++
		return m, tea.Batch(m.refreshCmd(owner), spinnerTick())

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return m.sortByDigit(int(msg.String()[0] - '0'))

	case "x":
		row, ok := m.currentRow()
		if !ok || row.Level != domain.LevelItem {
			return m, nil
		}
		if _, on := m.selected[row.ID]; on {
			delete(m.selected, row.ID)
		} else {
			m.selected[row.ID] = row.Fields[m.schema.ForLevel(row.Level).KeyField]
		}
		return m, nil

	case "y":
		return m.syncSelected()

	case "m":
		return m.openPrompt(promptStatus, "status")

	case "n":
		return m.openPrompt(promptNotes, "notes")

	case "b":
		return m.openPrompt(promptBin, "bin_location")

	case "esc":
		if m.statusMsg != "" {
			m.statusMsg = ""
			m.statusIsErr = false
		} else if len(m.selected) > 0 {
			m.selected = make(map[domain.NodeID]string)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) openFilter(field int) (tea.Model, tea.Cmd) {
	m.focused = focusFilter
	m.filterField = field
	m.nameInput.SetValue(m.snap.Filter.CommonName)
	m.contractInput.SetValue(m.snap.Filter.ContractNumber)
	if field == 0 {
		m.nameInput.Focus()
		m.contractInput.Blur()
	} else {
		m.contractInput.Focus()
		m.nameInput.Blur()
	}
	return m, textinput.Blink
}

func (m Model) pageBy(delta int) (tea.Model, tea.Cmd) {
	owner, info, _, ok := m.sectionUnderCursor()
	if !ok {
		return m, nil
	}
	target := info.Page.Page + delta
	if target < 1 || (info.Page.TotalPages() > 0 && target > info.Page.TotalPages()) {
		return m, nil
	}
	m.inflight++
	return m, tea.Batch(m.setPageCmd(owner, target), spinnerTick())
}

func (m Model) sortByDigit(n int) (tea.Model, tea.Cmd) {
	owner, _, childLevel, ok := m.sectionUnderCursor()
	if !ok {
		return m, nil
	}
	cols := m.schema.ForLevel(childLevel).SortableColumns()
	if n < 1 || n > len(cols) {
		return m, nil
	}
	m.inflight++
	return m, tea.Batch(m.sortCmd(owner, cols[n-1]), spinnerTick())
}

func (m Model) syncSelected() (tea.Model, tea.Cmd) {
	if len(m.selected) == 0 {
		m.setStatusErr("no items selected")
		return m, nil
	}
	tags := make([]string, 0, len(m.selected))
	for _, tag := range m.selected {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	m.inflight++
	return m, tea.Batch(m.submitCmd(&action.BatchSync{TagIDs: tags}, ""), spinnerTick())
}

func (m Model) openPrompt(kind promptKind, fieldKey string) (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok || row.Level != domain.LevelItem {
		return m, nil
	}
	m.focused = focusPrompt
	m.promptKind = kind
	m.promptTag = row.Fields[m.schema.ForLevel(row.Level).KeyField]
	m.promptHome = row.Parent
	m.promptErr = ""
	m.promptInput.SetValue(row.Fields[fieldKey])
	m.promptInput.CursorEnd()
	m.promptInput.Focus()
	return m, textinput.Blink
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.nameInput.SetValue(m.snap.Filter.CommonName)
		m.contractInput.SetValue(m.snap.Filter.ContractNumber)
		m.closeFilter()
		return m, nil

	case "enter":
		fs := domain.FilterState{
			CommonName:     m.nameInput.Value(),
			ContractNumber: m.contractInput.Value(),
		}
		m.closeFilter()
		m.inflight++
		return m, tea.Batch(m.applyFilterCmd(fs), spinnerTick())

	case "tab", "shift+tab", "down", "up":
		m.filterField = 1 - m.filterField
		if m.filterField == 0 {
			m.nameInput.Focus()
			m.contractInput.Blur()
		} else {
			m.contractInput.Focus()
			m.nameInput.Blur()
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.filterField == 0 {
		m.nameInput, cmd = m.nameInput.Update(msg)
	} else {
		m.contractInput, cmd = m.contractInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) closeFilter() {
	m.nameInput.Blur()
	m.contractInput.Blur()
	m.focused = focusTree
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePrompt()
		return m, nil

	case "enter":
		act := m.buildPromptAction()
		if act == nil {
			m.closePrompt()
			return m, nil
		}
		if err := act.Validate(); err != nil {
			m.promptErr = err.Error()
			return m, nil
		}
		home := m.promptHome
		m.closePrompt()
		m.inflight++
		return m, tea.Batch(m.submitCmd(act, home), spinnerTick())
	}

	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m Model) buildPromptAction() action.Action {
	value := m.promptInput.Value()
	switch m.promptKind {
	case promptStatus:
		return &action.UpdateStatus{TagID: m.promptTag, Status: value}
	case promptNotes:
		return &action.UpdateNotes{TagID: m.promptTag, Notes: value}
	case promptBin:
		return &action.UpdateBinLocation{TagID: m.promptTag, Bin: value}
	default:
		return nil
	}
}

func (m *Model) closePrompt() {
	m.promptInput.Blur()
	m.promptKind = promptNone
	m.promptErr = ""
	m.focused = focusTree
}
