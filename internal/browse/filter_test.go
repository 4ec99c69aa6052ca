package browse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stockyard/browser/internal/domain"
	"stockyard/browser/internal/session"
)

func TestFilterTentScenario(t *testing.T) {
	engine, _ := newTestEngine(t, fixture(20), Options{})
	ctx := context.Background()

	expandPath(t, engine)

	// The user closes the item section; the filter must reveal it again
	// because a retained item row matches.
	require.NoError(t, engine.Toggle(ctx, shelterID))

	require.NoError(t, engine.ApplyFilter(ctx, domain.FilterState{CommonName: "tent"}))

	snap := engine.Snapshot()
	require.Equal(t, []domain.NodeID{
		eventsID,
		tentsID,
		shelterID,
		"cat:Events/sub:Tents/cn:Shelter+Rentals/tag:T-0142",
	}, rowIDs(snap))

	// The common-name row is force-expanded: visually open while the user
	// state stays collapsed.
	shelter := findRow(t, snap, shelterID)
	require.True(t, shelter.Open)
	require.Equal(t, domain.StateCollapsed, shelter.State)
	require.Equal(t, "Showing 1 of 2 rows", shelter.Section.Annotation)

	// One of two categories stays visible at the top level.
	require.Equal(t, "Showing 1 of 2 rows", snap.Root.Annotation)

	// Clearing the filter reveals everything and drops the forced reveal.
	require.NoError(t, engine.ApplyFilter(ctx, domain.FilterState{}))

	snap = engine.Snapshot()
	require.Contains(t, rowIDs(snap), domain.NodeID("cat:Kitchens"))
	require.Contains(t, rowIDs(snap), domain.NodeID("cat:Events/sub:Staging"))
	require.False(t, findRow(t, snap, shelterID).Open)
	require.Empty(t, snap.Root.Annotation)
}

func TestFilterIsDeterministic(t *testing.T) {
	engine, _ := newTestEngine(t, fixture(20), Options{})
	ctx := context.Background()

	expandPath(t, engine)

	fs := domain.FilterState{CommonName: "  TENT "}
	require.NoError(t, engine.ApplyFilter(ctx, fs))
	first := rowIDs(engine.Snapshot())

	require.NoError(t, engine.ApplyFilter(ctx, fs))
	second := rowIDs(engine.Snapshot())

	require.Equal(t, first, second)

	// Normalization makes the ragged input equal to the clean one.
	require.NoError(t, engine.ApplyFilter(ctx, domain.FilterState{CommonName: "tent"}))
	require.Equal(t, first, rowIDs(engine.Snapshot()))
}

func TestVisibilityPropagationInvariant(t *testing.T) {
	engine, _ := newTestEngine(t, fixture(20), Options{})
	ctx := context.Background()

	expandPath(t, engine)
	require.NoError(t, engine.Toggle(ctx, "cat:Events/sub:Tents/cn:Sidewalls"))
	require.NoError(t, engine.ApplyFilter(ctx, domain.FilterState{CommonName: "tent", ContractNumber: "c-100"}))

	engine.mu.Lock()
	defer engine.mu.Unlock()

	for id, node := range engine.nodes {
		if id == domain.RootID {
			continue
		}
		childVisible := false
		for _, childID := range node.Children {
			if child, ok := engine.nodes[childID]; ok && child.Visible {
				childVisible = true
				break
			}
		}
		require.Equal(t, node.OwnMatch || childVisible, node.Visible, "visibility of %s", id)
	}
}

func TestContractTermFiltersThroughContainers(t *testing.T) {
	engine, _ := newTestEngine(t, fixture(20), Options{})
	ctx := context.Background()

	expandPath(t, engine)
	require.NoError(t, engine.Toggle(ctx, "cat:Events/sub:Tents/cn:Sidewalls"))

	// Contract terms compare case-insensitively.
	require.NoError(t, engine.ApplyFilter(ctx, domain.FilterState{ContractNumber: "c-100"}))

	snap := engine.Snapshot()
	require.Equal(t, []domain.NodeID{
		eventsID,
		tentsID,
		shelterID,
		"cat:Events/sub:Tents/cn:Shelter+Rentals/tag:T-0142",
		"cat:Events/sub:Tents/cn:Sidewalls",
		"cat:Events/sub:Tents/cn:Sidewalls/tag:T-0200",
	}, rowIDs(snap))

	// Containers have no contract field, so every ancestor here is visible
	// purely through its matching descendants.
	require.True(t, findRow(t, snap, shelterID).Open)
	require.True(t, findRow(t, snap, "cat:Events/sub:Tents/cn:Sidewalls").Open)
}

func TestFilterAppliesToNewlyFetchedRows(t *testing.T) {
	engine, _ := newTestEngine(t, fixture(20), Options{})
	ctx := context.Background()

	// Nothing loaded matches, so the tree empties without any fetching.
	require.NoError(t, engine.ApplyFilter(ctx, domain.FilterState{CommonName: "tent"}))
	require.Empty(t, engine.Snapshot().Rows)

	// Rows installed after the filter was set are evaluated immediately.
	require.NoError(t, engine.Toggle(ctx, eventsID))
	require.Equal(t, []domain.NodeID{eventsID, tentsID}, rowIDs(engine.Snapshot()))
}

func TestFilterSurvivesReboot(t *testing.T) {
	client := fixture(20)
	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	first := NewEngine(client, store, domain.DefaultSchema(), Options{RestoreOnStart: true})
	require.NoError(t, first.Boot(ctx))
	require.NoError(t, first.Toggle(ctx, eventsID))
	require.NoError(t, first.Toggle(ctx, tentsID))
	require.NoError(t, first.ApplyFilter(ctx, domain.FilterState{CommonName: "tent"}))

	second := NewEngine(client, store, domain.DefaultSchema(), Options{RestoreOnStart: true})
	require.NoError(t, second.Boot(ctx))

	require.Equal(t, domain.FilterState{CommonName: "tent"}, second.Filter())
	require.Equal(t, rowIDs(first.Snapshot()), rowIDs(second.Snapshot()))

	// Clearing on the second engine removes the persisted entry.
	require.NoError(t, second.ApplyFilter(ctx, domain.FilterState{}))
	_, found, err := store.Load(ctx, session.FilterKey)
	require.NoError(t, err)
	require.False(t, found)
}
