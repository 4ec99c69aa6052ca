package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"stockyard/browser/internal/browse"
	"stockyard/browser/internal/domain"
	"stockyard/browser/internal/domain/action"
	"stockyard/browser/internal/fetch"
	"stockyard/browser/internal/gate"
	"stockyard/browser/internal/session"
)

// stubClient serves a fixed hierarchy and records what the model sends.
type stubClient struct {
	mu       sync.Mutex
	perPage  int
	children map[string][]domain.Record
	lastSort map[domain.Level]domain.SortState
	actions  []action.Action
}

func newStubClient() *stubClient {
	return &stubClient{
		perPage:  20,
		children: make(map[string][]domain.Record),
		lastSort: make(map[domain.Level]domain.SortState),
	}
}

func listingKey(level domain.Level, c domain.Coordinates) string {
	return fmt.Sprintf("%s|%s|%s|%s", level, c.Category, c.Subcategory, c.CommonName)
}

func (c *stubClient) set(level domain.Level, coords domain.Coordinates, records ...domain.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children[listingKey(level, coords)] = records
}

func (c *stubClient) FetchChildren(_ context.Context, q fetch.ChildQuery) (*fetch.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSort[q.Level] = q.Sort

	all := c.children[listingKey(q.Level, q.Coords)]
	page := q.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * c.perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + c.perPage
	if end > len(all) {
		end = len(all)
	}
	out := make([]domain.Record, end-start)
	copy(out, all[start:end])
	return &fetch.Result{
		Records: out,
		Page:    domain.PageInfo{Page: page, PerPage: c.perPage, TotalCount: len(all)},
	}, nil
}

func (c *stubClient) FetchAllChildren(ctx context.Context, q fetch.ChildQuery) (*fetch.Result, error) {
	return c.FetchChildren(ctx, q)
}

func (c *stubClient) Submit(_ context.Context, act action.Action) error {
	if err := act.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, act)
	return nil
}

func (c *stubClient) recordedActions() []action.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]action.Action, len(c.actions))
	copy(out, c.actions)
	return out
}

func containerRecord(name string, total int) domain.Record {
	return domain.Record{
		ID:    name,
		Label: name,
		Fields: map[string]string{
			"name":         name,
			"total_items":  fmt.Sprint(total),
			"on_contracts": "0",
			"in_service":   "0",
			"available":    fmt.Sprint(total),
		},
		Counts: domain.Counts{Total: total, Available: total},
	}
}

func itemRecord(tag, commonName, contract, status string) domain.Record {
	return domain.Record{
		ID:    tag,
		Label: commonName,
		Fields: map[string]string{
			"tag_id":          tag,
			"common_name":     commonName,
			"contract_number": contract,
			"status":          status,
			"bin_location":    "A1",
			"notes":           "",
		},
	}
}

func fixtureClient() *stubClient {
	client := newStubClient()
	client.set(domain.LevelCategory, domain.Coordinates{},
		containerRecord("Events", 4),
		containerRecord("Kitchens", 2),
	)
	client.set(domain.LevelSubcategory, domain.Coordinates{Category: "Events"},
		containerRecord("Tents", 3),
		containerRecord("Staging", 1),
	)
	client.set(domain.LevelCommonName, domain.Coordinates{Category: "Events", Subcategory: "Tents"},
		containerRecord("Shelter", 2),
	)
	client.set(domain.LevelItem, domain.Coordinates{Category: "Events", Subcategory: "Tents", CommonName: "Shelter"},
		itemRecord("T-1", "Shelter", "C-100", ""),
		itemRecord("T-2", "Shelter", "C-200", "in_service"),
	)
	return client
}

func newTestModel(t *testing.T, client *stubClient, guard *gate.Guard) Model {
	t.Helper()
	spinnerInterval = time.Millisecond
	ctx := context.Background()
	engine := browse.NewEngine(client, session.NewMemoryStore(), domain.DefaultSchema(), browse.Options{})
	require.NoError(t, engine.Boot(ctx))
	if guard == nil {
		guard = gate.NewGuard("sync", 0)
	}
	return New(ctx, engine, client, domain.DefaultSchema(), Options{
		Guard:    guard,
		Endpoint: "http://stock.test",
		Backend:  "memory",
	})
}

// runCmd executes a command tree and collects every produced message.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// step feeds a message through Update and drains the resulting commands the
// way the bubbletea runtime would.
func step(m Model, msg tea.Msg) Model {
	updated, cmd := m.Update(msg)
	next := updated.(Model)
	for _, produced := range runCmd(cmd) {
		next = step(next, produced)
	}
	return next
}

func press(m Model, key string) Model {
	switch key {
	case "enter":
		return step(m, tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		return step(m, tea.KeyMsg{Type: tea.KeyEsc})
	case "up":
		return step(m, tea.KeyMsg{Type: tea.KeyUp})
	case "down":
		return step(m, tea.KeyMsg{Type: tea.KeyDown})
	default:
		return step(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	}
}

func typeString(m Model, text string) Model {
	for _, r := range text {
		m = press(m, string(r))
	}
	return m
}

func rowIndex(m Model, id domain.NodeID) int {
	for i, row := range m.snap.Rows {
		if row.ID == id {
			return i
		}
	}
	return -1
}

// expandAt positions the cursor on a node and toggles it open.
func expandAt(t *testing.T, m Model, id domain.NodeID) Model {
	t.Helper()
	idx := rowIndex(m, id)
	require.GreaterOrEqual(t, idx, 0, "node %s not in snapshot", id)
	m.cursor = idx
	return press(m, "enter")
}

var (
	eventsID  = domain.Coordinates{Category: "Events"}.NodeID(domain.LevelCategory)
	tentsID   = domain.Coordinates{Category: "Events", Subcategory: "Tents"}.NodeID(domain.LevelSubcategory)
	shelterID = domain.Coordinates{Category: "Events", Subcategory: "Tents", CommonName: "Shelter"}.NodeID(domain.LevelCommonName)
)

func itemID(tag string) domain.NodeID {
	return domain.Coordinates{
		Category: "Events", Subcategory: "Tents", CommonName: "Shelter", TagID: tag,
	}.NodeID(domain.LevelItem)
}

func expandToItems(t *testing.T, m Model) Model {
	t.Helper()
	m = expandAt(t, m, eventsID)
	m = expandAt(t, m, tentsID)
	m = expandAt(t, m, shelterID)
	return m
}

func TestBootShowsCategories(t *testing.T) {
	m := newTestModel(t, fixtureClient(), nil)

	require.Len(t, m.snap.Rows, 2)
	require.Equal(t, "Events", m.snap.Rows[0].Label)
	require.Equal(t, "Kitchens", m.snap.Rows[1].Label)
	require.Equal(t, 0, m.cursor)

	m = press(m, "down")
	require.Equal(t, 1, m.cursor)
	m = press(m, "down")
	require.Equal(t, 1, m.cursor)
	m = press(m, "up")
	require.Equal(t, 0, m.cursor)
}

func TestEnterTogglesSection(t *testing.T) {
	m := newTestModel(t, fixtureClient(), nil)

	m = press(m, "enter")
	require.GreaterOrEqual(t, rowIndex(m, tentsID), 0, "subcategories should appear after expand")
	require.True(t, m.snap.Rows[rowIndex(m, eventsID)].Open)

	m.cursor = rowIndex(m, eventsID)
	m = press(m, "enter")
	require.Equal(t, -1, rowIndex(m, tentsID), "subcategories should vanish after collapse")
}

func TestCursorFollowsNodeAcrossRefresh(t *testing.T) {
	m := newTestModel(t, fixtureClient(), nil)
	kitchens := domain.Coordinates{Category: "Kitchens"}.NodeID(domain.LevelCategory)
	m.cursor = rowIndex(m, kitchens)

	// Rows shift underneath the cursor when another section expands.
	require.NoError(t, m.engine.Toggle(context.Background(), eventsID))
	m.inflight = 1
	m = step(m, opDoneMsg{})

	require.Equal(t, rowIndex(m, kitchens), m.cursor)
	require.Greater(t, m.cursor, 1)
}

func TestFilterApplyAndCancel(t *testing.T) {
	m := newTestModel(t, fixtureClient(), nil)

	m = press(m, "/")
	require.Equal(t, focusFilter, m.focused)
	require.Equal(t, 0, m.filterField)

	m = typeString(m, "tent")
	m = press(m, "enter")
	require.Equal(t, focusTree, m.focused)
	require.Equal(t, "tent", m.engine.Filter().CommonName)
	require.Empty(t, m.snap.Rows, "no loaded row matches the term")
	require.Equal(t, "Showing 0 of 2 rows", m.snap.Root.Annotation)

	// Esc abandons edits and keeps the applied filter.
	m = press(m, "/")
	m = typeString(m, "xyz")
	m = press(m, "esc")
	require.Equal(t, focusTree, m.focused)
	require.Equal(t, "tent", m.engine.Filter().CommonName)
	require.Equal(t, "tent", m.nameInput.Value())

	// Clearing both terms restores the tree.
	m = press(m, "/")
	m.nameInput.SetValue("")
	m = press(m, "enter")
	require.Len(t, m.snap.Rows, 2)
	require.Empty(t, m.snap.Root.Annotation)
}

func TestContractFilterKey(t *testing.T) {
	m := newTestModel(t, fixtureClient(), nil)

	m = press(m, "#")
	require.Equal(t, focusFilter, m.focused)
	require.Equal(t, 1, m.filterField)

	m = typeString(m, "c-100")
	m = press(m, "enter")
	require.Equal(t, "c-100", m.engine.Filter().ContractNumber)
}

func TestPagingKeysWalkSection(t *testing.T) {
	client := fixtureClient()
	client.perPage = 1
	m := newTestModel(t, client, nil)

	m = expandAt(t, m, eventsID)
	require.Equal(t, -1, rowIndex(m, domain.Coordinates{Category: "Events", Subcategory: "Staging"}.NodeID(domain.LevelSubcategory)))

	// Cursor on a child row pages the containing section.
	m.cursor = rowIndex(m, tentsID)
	m = press(m, "]")
	staging := domain.Coordinates{Category: "Events", Subcategory: "Staging"}.NodeID(domain.LevelSubcategory)
	require.GreaterOrEqual(t, rowIndex(m, staging), 0)
	require.Equal(t, -1, rowIndex(m, tentsID))

	m.cursor = rowIndex(m, staging)
	m = press(m, "[")
	require.GreaterOrEqual(t, rowIndex(m, tentsID), 0)

	// Already on the first page.
	before := len(m.snap.Rows)
	m = press(m, "[")
	require.Len(t, m.snap.Rows, before)
}

func TestSortDigitUsesSectionColumns(t *testing.T) {
	client := fixtureClient()
	m := newTestModel(t, client, nil)

	m = expandAt(t, m, eventsID)
	m.cursor = rowIndex(m, eventsID)

	// Second sortable subcategory column is total_items.
	m = press(m, "2")
	require.Equal(t, "total_items", client.lastSort[domain.LevelSubcategory].Column)
	require.Equal(t, domain.DirectionAsc, client.lastSort[domain.LevelSubcategory].Direction)

	m = press(m, "2")
	require.Equal(t, domain.DirectionDesc, client.lastSort[domain.LevelSubcategory].Direction)

	// A digit past the column list is ignored.
	m = press(m, "9")
	require.Equal(t, "total_items", client.lastSort[domain.LevelSubcategory].Column)
}

func TestSelectAndBatchSync(t *testing.T) {
	client := fixtureClient()
	m := newTestModel(t, client, nil)
	m = expandToItems(t, m)

	m.cursor = rowIndex(m, itemID("T-2"))
	m = press(m, "x")
	require.Len(t, m.selected, 1)

	m = press(m, "y")
	acts := client.recordedActions()
	require.Len(t, acts, 1)
	sync, ok := acts[0].(*action.BatchSync)
	require.True(t, ok)
	require.Equal(t, []string{"T-2"}, sync.TagIDs)
	require.Equal(t, "batch_sync applied", m.statusMsg)
	require.False(t, m.statusIsErr)
}

func TestBatchSyncWithoutSelection(t *testing.T) {
	client := fixtureClient()
	m := newTestModel(t, client, nil)
	m = expandToItems(t, m)

	m = press(m, "y")
	require.True(t, m.statusIsErr)
	require.Empty(t, client.recordedActions())
}

func TestBatchSyncThrottledByGuard(t *testing.T) {
	client := fixtureClient()
	m := newTestModel(t, client, gate.NewGuard("sync", time.Hour))
	m = expandToItems(t, m)

	m.cursor = rowIndex(m, itemID("T-2"))
	m = press(m, "x")
	m = press(m, "y")
	require.Len(t, client.recordedActions(), 1)

	m = press(m, "y")
	require.Len(t, client.recordedActions(), 1, "second sync inside the interval is dropped")
	require.True(t, m.statusIsErr)
}

func TestSelectionIgnoresContainers(t *testing.T) {
	m := newTestModel(t, fixtureClient(), nil)
	m.cursor = 0
	m = press(m, "x")
	require.Empty(t, m.selected)
}

func TestStatusPromptValidatesBeforeSubmit(t *testing.T) {
	client := fixtureClient()
	m := newTestModel(t, client, nil)
	m = expandToItems(t, m)

	// T-1 starts with an empty status, so the prompt opens empty.
	m.cursor = rowIndex(m, itemID("T-1"))
	m = press(m, "m")
	require.Equal(t, focusPrompt, m.focused)
	require.Equal(t, "T-1", m.promptTag)
	require.Empty(t, m.promptInput.Value())

	m = press(m, "enter")
	require.Equal(t, focusPrompt, m.focused, "invalid input keeps the prompt open")
	require.NotEmpty(t, m.promptErr)
	require.Empty(t, client.recordedActions(), "invalid action never reaches the service")

	m = typeString(m, "washed")
	m = press(m, "enter")
	require.Equal(t, focusTree, m.focused)

	acts := client.recordedActions()
	require.Len(t, acts, 1)
	status, ok := acts[0].(*action.UpdateStatus)
	require.True(t, ok)
	require.Equal(t, "T-1", status.TagID)
	require.Equal(t, "washed", status.Status)
}

func TestNotesPromptPrefillsCurrentValue(t *testing.T) {
	client := fixtureClient()
	m := newTestModel(t, client, nil)
	m = expandToItems(t, m)

	m.cursor = rowIndex(m, itemID("T-2"))
	m = press(m, "b")
	require.Equal(t, focusPrompt, m.focused)
	require.Equal(t, "A1", m.promptInput.Value())

	m = press(m, "esc")
	require.Equal(t, focusTree, m.focused)
	require.Empty(t, client.recordedActions())
}

func TestPromptIgnoredOnContainerRows(t *testing.T) {
	m := newTestModel(t, fixtureClient(), nil)
	m.cursor = 0
	m = press(m, "m")
	require.Equal(t, focusTree, m.focused)
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t, fixtureClient(), nil)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	require.True(t, updated.(Model).quitting)
}

func TestViewRendersTree(t *testing.T) {
	m := newTestModel(t, fixtureClient(), nil)
	m = expandAt(t, m, eventsID)
	m = step(m, tea.WindowSizeMsg{Width: 120, Height: 40})

	out := m.View()
	require.Contains(t, out, "Events")
	require.Contains(t, out, "Tents")
	require.Contains(t, out, "Category")
	require.Contains(t, out, "Subcategory")
	require.Contains(t, out, "session: memory")
}

func TestWindowSliceKeepsFocusVisible(t *testing.T) {
	lines := make([]string, 50)
	for i := range lines {
		lines[i] = fmt.Sprint(i)
	}

	window := windowSlice(lines, 0, 10)
	require.Equal(t, "0", window[0])

	window = windowSlice(lines, 49, 10)
	require.Equal(t, "49", window[len(window)-1])

	window = windowSlice(lines, 25, 10)
	require.Contains(t, window, "25")
	require.Len(t, window, 10)
}

func TestClipAndPad(t *testing.T) {
	require.Equal(t, "abc  ", pad("abc", 5))
	require.Equal(t, "abcd…", pad("abcdefgh", 5))
	require.Equal(t, strings.Repeat(" ", 4), pad("", 4))
}
