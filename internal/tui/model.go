// Package tui renders the inventory tree in the terminal. All engine calls
// run inside tea.Cmd goroutines; the update loop only swaps snapshots.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"stockyard/browser/internal/browse"
	"stockyard/browser/internal/domain"
	"stockyard/browser/internal/domain/action"
	"stockyard/browser/internal/fetch"
	"stockyard/browser/internal/gate"
)

// focus tracks which surface owns the keyboard.
type focus int

const (
	focusTree focus = iota
	focusFilter
	focusPrompt
)

// promptKind selects which item mutation the prompt collects input for.
type promptKind int

const (
	promptNone promptKind = iota
	promptStatus
	promptNotes
	promptBin
)

func (k promptKind) title() string {
	switch k {
	case promptStatus:
		return "status"
	case promptNotes:
		return "notes"
	case promptBin:
		return "bin location"
	default:
		return ""
	}
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var spinnerInterval = 120 * time.Millisecond

// opDoneMsg reports a completed engine operation.
type opDoneMsg struct {
	err error
}

// actionDoneMsg reports a completed mutation POST. home names the section to
// refresh on success.
type actionDoneMsg struct {
	name string
	home domain.NodeID
	err  error
}

type spinnerTickMsg struct{}

func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// Options carries display context and the mutation guard into the model.
type Options struct {
	Guard    *gate.Guard
	Endpoint string
	Backend  string
}

// Model is the bubbletea model for the inventory browser.
type Model struct {
	ctx    context.Context
	engine *browse.Engine
	client fetch.Client
	schema domain.Schema
	guard  *gate.Guard

	endpoint string
	backend  string

	snap   browse.Snapshot
	cursor int

	focused focus

	nameInput     textinput.Model
	contractInput textinput.Model
	filterField   int

	promptKind  promptKind
	promptInput textinput.Model
	promptTag   string
	promptHome  domain.NodeID
	promptErr   string

	// selected maps item node IDs to their tag IDs for batch sync.
	selected map[domain.NodeID]string

	inflight   int
	spinnerIdx int

	statusMsg   string
	statusIsErr bool

	width    int
	height   int
	ready    bool
	quitting bool
}

// New builds a model over an already booted engine. The first snapshot is
// taken here so the tree renders before any message arrives.
func New(ctx context.Context, engine *browse.Engine, client fetch.Client, schema domain.Schema, opts Options) Model {
	ni := textinput.New()
	ni.Placeholder = "common name"
	ni.CharLimit = 64
	ni.Width = 22
	ni.Prompt = ""

	ci := textinput.New()
	ci.Placeholder = "contract number"
	ci.CharLimit = 64
	ci.Width = 22
	ci.Prompt = ""

	pi := textinput.New()
	pi.CharLimit = 128
	pi.Width = 40
	pi.Prompt = ""

	snap := engine.Snapshot()
	ni.SetValue(snap.Filter.CommonName)
	ci.SetValue(snap.Filter.ContractNumber)

	return Model{
		ctx:           ctx,
		engine:        engine,
		client:        client,
		schema:        schema,
		guard:         opts.Guard,
		endpoint:      opts.Endpoint,
		backend:       opts.Backend,
		snap:          snap,
		nameInput:     ni,
		contractInput: ci,
		promptInput:   pi,
		selected:      make(map[domain.NodeID]string),
		width:         120,
		height:        40,
		ready:         true,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case spinnerTickMsg:
		if m.inflight == 0 {
			return m, nil
		}
		m.spinnerIdx = (m.spinnerIdx + 1) % len(spinnerFrames)
		m.refreshSnapshot()
		return m, spinnerTick()

	case opDoneMsg:
		m.inflight--
		if msg.err != nil {
			m.setStatusErr(describeError(msg.err))
		}
		m.refreshSnapshot()
		return m, nil

	case actionDoneMsg:
		m.inflight--
		if msg.err != nil {
			m.setStatusErr(describeError(msg.err))
			m.refreshSnapshot()
			return m, nil
		}
		m.setStatus(fmt.Sprintf("%s applied", msg.name))
		m.refreshSnapshot()
		if msg.home != "" {
			m.inflight++
			return m, tea.Batch(m.refreshCmd(msg.home), spinnerTick())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// refreshSnapshot swaps in a fresh snapshot and keeps the cursor on the same
// node when it survived the change.
func (m *Model) refreshSnapshot() {
	var keep domain.NodeID
	if m.cursor < len(m.snap.Rows) {
		keep = m.snap.Rows[m.cursor].ID
	}
	m.snap = m.engine.Snapshot()
	if keep != "" {
		for i, row := range m.snap.Rows {
			if row.ID == keep {
				m.cursor = i
				m.pruneSelection()
				return
			}
		}
	}
	if m.cursor >= len(m.snap.Rows) {
		m.cursor = len(m.snap.Rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.pruneSelection()
}

// pruneSelection drops selected IDs whose rows left the tree.
func (m *Model) pruneSelection() {
	if len(m.selected) == 0 {
		return
	}
	alive := make(map[domain.NodeID]bool, len(m.snap.Rows))
	for _, row := range m.snap.Rows {
		alive[row.ID] = true
	}
	for id := range m.selected {
		if !alive[id] {
			delete(m.selected, id)
		}
	}
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusIsErr = false
}

func (m *Model) setStatusErr(msg string) {
	m.statusMsg = msg
	m.statusIsErr = true
}

// currentRow returns the row under the cursor.
func (m Model) currentRow() (browse.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Rows) {
		return browse.Row{}, false
	}
	return m.snap.Rows[m.cursor], true
}

// sectionUnderCursor resolves the section the cursor operates on: the row's
// own section when it is open, otherwise the section containing the row.
func (m Model) sectionUnderCursor() (domain.NodeID, browse.SectionInfo, domain.Level, bool) {
	row, ok := m.currentRow()
	if !ok {
		return domain.RootID, m.snap.Root, domain.LevelCategory, len(m.snap.Rows) == 0
	}
	if row.Open && row.Section != nil {
		return row.ID, *row.Section, row.Level.ChildLevel(), true
	}
	if row.Parent == domain.RootID {
		return domain.RootID, m.snap.Root, domain.LevelCategory, true
	}
	for _, r := range m.snap.Rows {
		if r.ID == row.Parent && r.Section != nil {
			return r.ID, *r.Section, r.Level.ChildLevel(), true
		}
	}
	return domain.RootID, browse.SectionInfo{}, domain.LevelRoot, false
}

func (m Model) toggleCmd(id domain.NodeID) tea.Cmd {
	ctx, eng := m.ctx, m.engine
	return func() tea.Msg {
		return opDoneMsg{err: eng.Toggle(ctx, id)}
	}
}

func (m Model) sortCmd(id domain.NodeID, column string) tea.Cmd {
	ctx, eng := m.ctx, m.engine
	return func() tea.Msg {
		return opDoneMsg{err: eng.Sort(ctx, id, column)}
	}
}

func (m Model) setPageCmd(id domain.NodeID, page int) tea.Cmd {
	ctx, eng := m.ctx, m.engine
	return func() tea.Msg {
		return opDoneMsg{err: eng.SetPage(ctx, id, page)}
	}
}

func (m Model) refreshCmd(id domain.NodeID) tea.Cmd {
	ctx, eng := m.ctx, m.engine
	return func() tea.Msg {
		return opDoneMsg{err: eng.Refresh(ctx, id)}
	}
}

func (m Model) applyFilterCmd(fs domain.FilterState) tea.Cmd {
	ctx, eng := m.ctx, m.engine
	return func() tea.Msg {
		return opDoneMsg{err: eng.ApplyFilter(ctx, fs)}
	}
}

// submitCmd runs a guarded mutation POST. A busy or throttled guard drops the
// request without touching the wire.
func (m Model) submitCmd(act action.Action, home domain.NodeID) tea.Cmd {
	ctx, cl, guard := m.ctx, m.client, m.guard
	return func() tea.Msg {
		err := guard.Do(func() error {
			return cl.Submit(ctx, act)
		})
		return actionDoneMsg{name: act.ActionName(), home: home, err: err}
	}
}

// describeError turns well-known failures into short status lines.
func describeError(err error) string {
	switch {
	case errors.Is(err, gate.ErrBusy):
		return "another request is still running"
	case errors.Is(err, gate.ErrThrottled):
		return "too soon, try again in a moment"
	case errors.Is(err, fetch.ErrCooldown):
		return "service rate limited, cooling down"
	case errors.Is(err, action.ErrInvalid):
		return err.Error()
	default:
		return err.Error()
	}
}
