package browse

import (
	"stockyard/browser/internal/domain"
)

// ForcedState is the filter's visual override for a node's child section. It
// is recomputed on every filter pass and never touches the user's own
// expansion state, so clearing the filter restores exactly what the user had
// open.
type ForcedState int

const (
	ForcedNone ForcedState = iota
	// ForcedOpen reveals a section because a descendant matched the filter.
	ForcedOpen
	// ForcedClosed hides a section because nothing under it is visible.
	ForcedClosed
)

// Node is the runtime state of one hierarchy entry. The engine owns the only
// map of these; identifiers are always derived from coordinates, never from
// rendered output.
type Node struct {
	ID     domain.NodeID
	Level  domain.Level
	Parent domain.NodeID
	Coords domain.Coordinates
	Record domain.Record

	State domain.ExpandState
	Err   error

	// Children holds the ordered ids for the currently fetched page of the
	// node's child listing.
	Children []domain.NodeID
	Page     domain.PageInfo
	Sort     domain.SortState

	// Filter pass results.
	OwnMatch bool
	Visible  bool
	Forced   ForcedState

	// token invalidates in-flight fetches: a response is applied only when
	// its token still matches the node's.
	token uint64
}

// SectionOpen reports whether the node's child section is currently revealed,
// letting an active filter's forced state override the expansion state.
func (n *Node) SectionOpen() bool {
	switch n.Forced {
	case ForcedOpen:
		return true
	case ForcedClosed:
		return false
	default:
		return n.State == domain.StateExpanded
	}
}

// retainsRows reports whether collapsing keeps the fetched child rows around.
// Item sections are small and reopen instantly; container sections destroy
// their subtree to bound memory.
func (n *Node) retainsRows() bool {
	return n.Level == domain.LevelCommonName
}
