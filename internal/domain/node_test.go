package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoordinatesNodeIDDeterministic(t *testing.T) {
	c := Coordinates{Category: "Events", Subcategory: "Tents", CommonName: "20x20 Frame Tent"}

	first := c.NodeID(LevelCommonName)
	second := c.NodeID(LevelCommonName)
	require.Equal(t, first, second)
	require.Equal(t, NodeID("cat:Events/sub:Tents/cn:20x20+Frame+Tent"), first)
}

func TestCoordinatesNodeIDLevels(t *testing.T) {
	c := Coordinates{Category: "Events", Subcategory: "Tents", CommonName: "Pole Tent", TagID: "T-0142"}

	require.Equal(t, RootID, c.NodeID(LevelRoot))
	require.Equal(t, NodeID("cat:Events"), c.NodeID(LevelCategory))
	require.Equal(t, NodeID("cat:Events/sub:Tents"), c.NodeID(LevelSubcategory))
	require.Equal(t, NodeID("cat:Events/sub:Tents/cn:Pole+Tent/tag:T-0142"), c.NodeID(LevelItem))
}

func TestCoordinatesNodeIDEscapesSeparators(t *testing.T) {
	a := Coordinates{Category: "A/B", Subcategory: "C"}
	b := Coordinates{Category: "A", Subcategory: "B/C"}
	require.NotEqual(t, a.NodeID(LevelSubcategory), b.NodeID(LevelSubcategory))
}

func TestChildCoordinates(t *testing.T) {
	parent := Coordinates{Category: "Events", Subcategory: "Tents"}

	child := parent.ChildCoordinates(LevelCommonName, "Pole Tent")
	require.Equal(t, "Events", child.Category)
	require.Equal(t, "Tents", child.Subcategory)
	require.Equal(t, "Pole Tent", child.CommonName)

	leaf := child.ChildCoordinates(LevelItem, "T-9")
	require.Equal(t, "T-9", leaf.TagID)
}

func TestSortStateToggle(t *testing.T) {
	var s SortState
	require.True(t, s.IsZero())
	require.Equal(t, "", s.Param())

	s = s.Toggle("total_items_inventory")
	require.Equal(t, SortState{Column: "total_items_inventory", Direction: DirectionAsc}, s)

	s = s.Toggle("total_items_inventory")
	require.Equal(t, DirectionDesc, s.Direction)
	require.Equal(t, "total_items_inventory_desc", s.Param())

	// Switching columns resets to ascending.
	s = s.Toggle("name")
	require.Equal(t, SortState{Column: "name", Direction: DirectionAsc}, s)
}

func TestPageInfoTotalPages(t *testing.T) {
	require.Equal(t, 0, PageInfo{}.TotalPages())
	require.Equal(t, 1, PageInfo{Page: 1, TotalCount: 7}.TotalPages())
	require.Equal(t, 3, PageInfo{Page: 1, PerPage: 25, TotalCount: 60}.TotalPages())
	require.Equal(t, 2, PageInfo{Page: 1, PerPage: 25, TotalCount: 50}.TotalPages())

	p := PageInfo{Page: 2, PerPage: 25, TotalCount: 60}
	require.True(t, p.HasPrev())
	require.True(t, p.HasNext())
	p.Page = 3
	require.False(t, p.HasNext())
}

func TestLevelChain(t *testing.T) {
	require.Equal(t, LevelCategory, LevelRoot.ChildLevel())
	require.Equal(t, LevelItem, LevelCommonName.ChildLevel())
	require.False(t, LevelItem.Expandable())
	require.Equal(t, LevelCommonName, LevelItem.ParentLevel())

	// The chain is symmetric for every renderable level.
	for _, l := range Levels {
		if l.Expandable() {
			require.Equal(t, l, l.ChildLevel().ParentLevel())
		}
	}
}
