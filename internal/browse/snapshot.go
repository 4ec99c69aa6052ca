package browse

import (
	"fmt"

	"stockyard/browser/internal/domain"
)

// SectionInfo describes one open child listing: where it is paginated, how it
// is sorted, and the filter annotation shown beneath its table.
type SectionInfo struct {
	Page domain.PageInfo
	Sort domain.SortState
	// Annotation is the visible-of-loaded row count line, set while a
	// filter is active.
	Annotation string
}

// Row is one visible node, flattened for rendering.
type Row struct {
	ID     domain.NodeID
	Parent domain.NodeID
	Level  domain.Level
	Depth  int
	Label  string
	Fields map[string]string
	Counts domain.Counts

	State      domain.ExpandState
	Err        string
	Expandable bool
	// Open reports whether the row's child section is revealed, including
	// filter-forced reveals.
	Open bool
	// Section is set when the row's child section is open.
	Section *SectionInfo
}

// Snapshot is an immutable view of the tree in render order: every visible
// row, depth-first, with open sections inlined beneath their owner.
type Snapshot struct {
	Filter domain.FilterState
	// Root describes the top-level category listing.
	Root SectionInfo
	Rows []Row
}

// Snapshot flattens the current tree state. It is the only read surface the
// view layer uses; nothing downstream reaches into engine internals.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{Filter: e.filter}

	root, ok := e.nodes[domain.RootID]
	if !ok {
		return snap
	}

	snap.Root = e.sectionInfoLocked(root)
	e.appendRowsLocked(&snap, root, 0)
	return snap
}

func (e *Engine) sectionInfoLocked(node *Node) SectionInfo {
	info := SectionInfo{Page: node.Page, Sort: node.Sort}

	if !e.filter.Empty() {
		visible := 0
		for _, childID := range node.Children {
			if child, ok := e.nodes[childID]; ok && child.Visible {
				visible++
			}
		}
		info.Annotation = fmt.Sprintf("Showing %d of %d rows", visible, len(node.Children))
	}

	return info
}

func (e *Engine) appendRowsLocked(snap *Snapshot, parent *Node, depth int) {
	for _, childID := range parent.Children {
		node, ok := e.nodes[childID]
		if !ok || !node.Visible {
			continue
		}

		row := Row{
			ID:         node.ID,
			Parent:     node.Parent,
			Level:      node.Level,
			Depth:      depth,
			Label:      node.Record.Label,
			Fields:     node.Record.Fields,
			Counts:     node.Record.Counts,
			State:      node.State,
			Expandable: node.Level.Expandable(),
			Open:       node.SectionOpen(),
		}
		if node.Err != nil {
			row.Err = node.Err.Error()
		}
		if row.Open {
			info := e.sectionInfoLocked(node)
			row.Section = &info
		}

		snap.Rows = append(snap.Rows, row)

		if row.Open {
			e.appendRowsLocked(snap, node, depth+1)
		}
	}
}
