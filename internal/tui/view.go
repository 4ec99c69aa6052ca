package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stockyard/browser/internal/browse"
	"stockyard/browser/internal/domain"
)

const (
	firstColWidth = 36
	numColWidth   = 13
)

func fieldWidth(f domain.Field) int {
	switch f.Role {
	case domain.RoleName:
		return 28
	case domain.RoleContract:
		return 15
	default:
		return numColWidth
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading...\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderFilterBar())
	b.WriteString("\n")

	chrome := 5
	if m.focused == focusPrompt {
		chrome++
	}
	avail := m.height - chrome
	if avail < 3 {
		avail = 3
	}

	lines, cursorLine := m.renderBody()
	for _, line := range windowSlice(lines, cursorLine, avail) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	for i := len(lines); i < avail; i++ {
		b.WriteString("\n")
	}

	if m.focused == focusPrompt {
		b.WriteString(m.renderPrompt())
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderHelpLine())
	return b.String()
}

func (m Model) renderHeader() string {
	left := " " + titleStyle.Render("stockyard") + " " + helpStyle.Render("inventory browser")
	right := ""
	if m.inflight > 0 {
		right = spinnerStyle.Render(spinnerFrames[m.spinnerIdx]) + " loading "
	}
	filler := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if filler < 1 {
		filler = 1
	}
	return headerBarStyle.Width(m.width).Render(left + strings.Repeat(" ", filler) + right)
}

func (m Model) renderFilterBar() string {
	var b strings.Builder
	b.WriteString(" ")
	b.WriteString(filterLabelStyle.Render("filter"))
	b.WriteString("  name: ")
	b.WriteString(m.nameInput.View())
	b.WriteString("  contract: ")
	b.WriteString(m.contractInput.View())
	switch {
	case m.focused == focusFilter:
		b.WriteString(helpStyle.Render("  enter apply · esc cancel · tab switch"))
	case !m.snap.Filter.Empty():
		b.WriteString(filterActiveStyle.Render("  ● active"))
	}
	return b.String()
}

// renderBody flattens the snapshot into display lines and reports which line
// carries the cursor.
func (m Model) renderBody() ([]string, int) {
	var lines []string
	cursorLine := 0

	lines = append(lines, m.sectionHeaderLine(0, domain.LevelCategory, m.snap.Root))
	if m.snap.Root.Annotation != "" {
		lines = append(lines, annotationLine(0, m.snap.Root.Annotation))
	}

	if len(m.snap.Rows) == 0 {
		empty := "  no rows loaded"
		if !m.snap.Filter.Empty() {
			empty = "  no rows match the filter"
		}
		lines = append(lines, helpStyle.Render(empty))
		return lines, cursorLine
	}

	for i, row := range m.snap.Rows {
		if i == m.cursor {
			cursorLine = len(lines)
		}
		lines = append(lines, m.rowLine(row, i == m.cursor))
		if row.Err != "" {
			lines = append(lines, errorLine(row.Depth, row.Err, m.width))
		}
		if row.Open && row.Section != nil {
			lines = append(lines, m.sectionHeaderLine(row.Depth+1, row.Level.ChildLevel(), *row.Section))
			if row.Section.Annotation != "" {
				lines = append(lines, annotationLine(row.Depth+1, row.Section.Annotation))
			}
		}
	}
	return lines, cursorLine
}

func (m Model) rowLine(row browse.Row, isCursor bool) string {
	ls := m.schema.ForLevel(row.Level)
	indent := strings.Repeat("  ", row.Depth)

	marker := "  "
	markerStyled := marker
	switch {
	case row.State == domain.StateLoading:
		frame := spinnerFrames[m.spinnerIdx]
		marker = frame + " "
		markerStyled = spinnerStyle.Render(frame) + " "
	case row.Expandable && row.Open:
		marker, markerStyled = "▾ ", "▾ "
	case row.Expandable:
		marker, markerStyled = "▸ ", "▸ "
	default:
		if _, on := m.selected[row.ID]; on {
			marker = "✓ "
			markerStyled = selectedMarkStyle.Render("✓") + " "
		}
	}

	var cells []string
	for i, f := range ls.Fields {
		value := row.Fields[f.Key]
		if i == 0 {
			prefix := indent
			if isCursor {
				prefix += marker
			} else {
				prefix += markerStyled
			}
			cells = append(cells, pad(prefix+value, firstColWidth))
			continue
		}
		if i == len(ls.Fields)-1 {
			cells = append(cells, value)
			continue
		}
		cells = append(cells, pad(value, fieldWidth(f)))
	}

	line := strings.TrimRight(strings.Join(cells, " "), " ")
	if isCursor {
		return cursorStyle.Render(pad(line, m.width))
	}
	return line
}

// sectionHeaderLine renders the column titles for an open section, the sort
// arrow on the active column, and the page position when paginated.
func (m Model) sectionHeaderLine(depth int, childLevel domain.Level, info browse.SectionInfo) string {
	ls := m.schema.ForLevel(childLevel)
	indent := strings.Repeat("  ", depth)

	sortCol := info.Sort.Column
	sortAsc := info.Sort.Direction == domain.DirectionAsc
	if info.Sort.IsZero() {
		sortCol = ls.KeyField
		sortAsc = true
	}

	var cells []string
	for i, f := range ls.Fields {
		title := f.Title
		if f.Key == sortCol {
			if sortAsc {
				title += " ▲"
			} else {
				title += " ▼"
			}
		}
		if i == 0 {
			cells = append(cells, pad(indent+"  "+title, firstColWidth))
			continue
		}
		cells = append(cells, pad(title, fieldWidth(f)))
	}

	line := columnHeaderStyle.Render(strings.TrimRight(strings.Join(cells, " "), " "))
	if info.Page.TotalPages() > 1 {
		line += helpStyle.Render(fmt.Sprintf("  page %d/%d", info.Page.Page, info.Page.TotalPages()))
	}
	return line
}

func annotationLine(depth int, text string) string {
	return strings.Repeat("  ", depth) + "  " + annotationStyle.Render(text)
}

func errorLine(depth int, msg string, width int) string {
	line := strings.Repeat("  ", depth) + "    ✗ " + msg
	return errorLineStyle.Render(clip(line, width))
}

func (m Model) renderPrompt() string {
	label := fmt.Sprintf(" %s for %s: ", m.promptKind.title(), m.promptTag)
	line := promptStyle.Render(label) + m.promptInput.View()
	if m.promptErr != "" {
		line += errorLineStyle.Render("  ✗ " + m.promptErr)
	} else {
		line += helpStyle.Render("  enter submit · esc cancel")
	}
	return line
}

func (m Model) renderStatusBar() string {
	parts := []string{
		helpStyle.Render(m.endpoint),
		helpStyle.Render("session: " + m.backend),
	}
	if m.statusMsg != "" {
		if m.statusIsErr {
			parts = append(parts, statusErrStyle.Render(m.statusMsg))
		} else {
			parts = append(parts, statusStyle.Render(m.statusMsg))
		}
	}
	left := " " + strings.Join(parts, helpStyle.Render(" · "))

	right := ""
	if m.guard != nil && m.guard.Busy() {
		right = busyStyle.Render("sync running ")
	}
	filler := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if filler < 1 {
		filler = 1
	}
	return left + strings.Repeat(" ", filler) + right
}

func (m Model) renderHelpLine() string {
	return helpStyle.Render(" ↑/↓ move · enter toggle · / name · # contract · [ ] page · 1-9 sort · r refresh · x select · y sync · m/n/b edit · q quit")
}

// windowSlice keeps the focus line visible when the body exceeds the
// viewport.
func windowSlice(lines []string, focusLine, avail int) []string {
	if len(lines) <= avail {
		return lines
	}
	start := focusLine - avail/2
	if start < 0 {
		start = 0
	}
	if start > len(lines)-avail {
		start = len(lines) - avail
	}
	return lines[start : start+avail]
}

// clip shortens a string to the given display width.
func clip(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= w {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if lipgloss.Width(b.String()+string(r)) > w-1 {
			break
		}
		b.WriteRune(r)
	}
	return b.String() + "…"
}

// pad clips and right-pads a cell to a fixed display width.
func pad(s string, w int) string {
	s = clip(s, w)
	if gap := w - lipgloss.Width(s); gap > 0 {
		s += strings.Repeat(" ", gap)
	}
	return s
}
