package domain

import (
	"net/url"
	"strings"
)

// NodeID uniquely identifies one node in the hierarchy. IDs are derived from
// the node's coordinates, never from rendered output, so re-fetching a parent
// reproduces the same IDs for unchanged children and expansion state can be
// carried across sorts, page changes, and reloads.
type NodeID string

// RootID anchors the virtual root node.
const RootID NodeID = "root"

func (id NodeID) String() string {
	return string(id)
}

// Coordinates carries the scoping identifiers that address a node and build
// its child queries. ContractNumber is an optional extra scope forwarded to
// item queries when browsing within a single contract.
type Coordinates struct {
	Category       string
	Subcategory    string
	CommonName     string
	TagID          string
	ContractNumber string
}

// NodeID renders the deterministic identifier for the node these coordinates
// describe at the given level. Segments are query-escaped so labels may
// contain any character.
func (c Coordinates) NodeID(level Level) NodeID {
	if level == LevelRoot {
		return RootID
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "cat:"+url.QueryEscape(c.Category))
	if level != LevelCategory {
		parts = append(parts, "sub:"+url.QueryEscape(c.Subcategory))
	}
	if level == LevelCommonName || level == LevelItem {
		parts = append(parts, "cn:"+url.QueryEscape(c.CommonName))
	}
	if level == LevelItem {
		parts = append(parts, "tag:"+url.QueryEscape(c.TagID))
	}

	return NodeID(strings.Join(parts, "/"))
}

// ChildCoordinates extends the coordinates with a fetched child identifier,
// producing the coordinates of the child node at the given level.
func (c Coordinates) ChildCoordinates(child Level, recordID string) Coordinates {
	out := c
	switch child {
	case LevelCategory:
		out.Category = recordID
	case LevelSubcategory:
		out.Subcategory = recordID
	case LevelCommonName:
		out.CommonName = recordID
	case LevelItem:
		out.TagID = recordID
	}
	return out
}

// Counts summarizes the inventory rollup the service reports for a node.
type Counts struct {
	Total      int `json:"total"`
	OnContract int `json:"on_contract"`
	InService  int `json:"in_service"`
	Available  int `json:"available"`
}

// PageInfo tracks a node's pagination state as reported by the service.
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalCount int `json:"total_count"`
}

// TotalPages derives the page count. A node with rows but no per-page figure
// counts as a single page.
func (p PageInfo) TotalPages() int {
	if p.TotalCount <= 0 {
		return 0
	}
	if p.PerPage <= 0 {
		return 1
	}
	pages := p.TotalCount / p.PerPage
	if p.TotalCount%p.PerPage != 0 {
		pages++
	}
	return pages
}

func (p PageInfo) HasPrev() bool {
	return p.Page > 1
}

func (p PageInfo) HasNext() bool {
	return p.Page < p.TotalPages()
}

// Direction orders a sorted column.
type Direction string

const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

func (d Direction) Flip() Direction {
	if d == DirectionAsc {
		return DirectionDesc
	}
	return DirectionAsc
}

// SortState tracks a node's active sort. The zero value means the service's
// default order.
type SortState struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

func (s SortState) IsZero() bool {
	return s.Column == ""
}

// Param renders the wire form "column_direction", or "" for default order.
func (s SortState) Param() string {
	if s.IsZero() {
		return ""
	}
	return s.Column + "_" + string(s.Direction)
}

// Toggle computes the next sort after a header interaction: a new or unset
// column starts ascending, repeating a column flips its direction.
func (s SortState) Toggle(column string) SortState {
	if s.Column != column {
		return SortState{Column: column, Direction: DirectionAsc}
	}
	return SortState{Column: column, Direction: s.Direction.Flip()}
}

// ExpandState is the per-node expansion state machine:
// collapsed → loading → {expanded | errored}; expanded → collapsed;
// errored → loading (retry via toggle).
type ExpandState int

const (
	StateCollapsed ExpandState = iota
	StateLoading
	StateExpanded
	StateErrored
)

func (s ExpandState) String() string {
	switch s {
	case StateCollapsed:
		return "collapsed"
	case StateLoading:
		return "loading"
	case StateExpanded:
		return "expanded"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ExpansionEntry is the session-persisted record of one expanded node.
type ExpansionEntry struct {
	NodeID          NodeID `json:"node_id"`
	Expanded        bool   `json:"expanded"`
	LastFetchedPage int    `json:"last_fetched_page"`
}
