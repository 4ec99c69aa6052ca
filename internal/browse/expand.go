package browse

import (
	"context"

	log "github.com/sirupsen/logrus"

	"stockyard/browser/internal/domain"
	"stockyard/browser/internal/fetch"
	"stockyard/browser/internal/session"
)

// Toggle flips one node between expanded and collapsed. Expanding a collapsed
// or errored node fetches its children; collapsing destroys the rendered
// subtree (item sections keep their rows for instant reopen) and removes the
// node's own session entry. A toggle landing while the node is already
// loading is dropped, not queued.
func (e *Engine) Toggle(ctx context.Context, id domain.NodeID) error {
	e.mu.Lock()
	node, ok := e.nodes[id]
	if !ok {
		e.mu.Unlock()
		// A toggle for a node that is no longer on the tree is a caller
		// race, not a user-visible failure.
		log.Debugf("Toggle target %s is not on the tree, ignoring", id)
		return nil
	}
	if !node.Level.Expandable() {
		e.mu.Unlock()
		return nil
	}

	switch node.State {
	case domain.StateLoading:
		e.mu.Unlock()
		log.Debugf("Dropped toggle for %s, fetch already in flight", id)
		return nil

	case domain.StateExpanded:
		staleKeys := e.collapseLocked(node)
		if !e.filter.Empty() {
			e.refilterLocked()
		}
		e.mu.Unlock()

		e.deleteEntries(ctx, staleKeys)
		return nil

	default: // collapsed or errored
		page := node.Page.Page
		e.mu.Unlock()
		if page < 1 {
			page = 1
		}
		return e.load(ctx, id, page, false)
	}
}

// load fetches one page of a node's children and installs it. force skips the
// retained-rows shortcut, so sort, pagination, and refresh always hit the
// service. The caller's page survives in the persisted entry, letting a later
// restore land on the same page.
func (e *Engine) load(ctx context.Context, id domain.NodeID, page int, force bool) error {
	e.mu.Lock()
	node, ok := e.nodes[id]
	if !ok {
		e.mu.Unlock()
		log.Debugf("Load target %s is not on the tree, ignoring", id)
		return nil
	}
	if !node.Level.Expandable() {
		e.mu.Unlock()
		return nil
	}
	if node.State == domain.StateLoading {
		e.mu.Unlock()
		log.Debugf("Dropped load for %s, fetch already in flight", id)
		return nil
	}

	// Reopening an item section that kept its rows needs no fetch.
	if !force && node.retainsRows() && node.State == domain.StateCollapsed && len(node.Children) > 0 {
		node.State = domain.StateExpanded
		node.Err = nil
		level := node.Level
		pageNum := node.Page.Page
		if !e.filter.Empty() {
			e.refilterLocked()
		}
		e.mu.Unlock()

		e.saveEntry(ctx, level, id, pageNum)
		return nil
	}

	node.State = domain.StateLoading
	node.Err = nil
	node.token++
	token := node.token

	query := fetch.ChildQuery{
		Level:  node.Level.ChildLevel(),
		Coords: node.Coords,
		Page:   page,
		Sort:   node.Sort,
	}

	var staleKeys []string
	if e.exclusive[node.Level] && node.Parent != "" {
		staleKeys = e.collapseSiblingsLocked(node)
	}
	e.mu.Unlock()

	e.deleteEntries(ctx, staleKeys)

	result, fetchErr := e.client.FetchChildren(ctx, query)

	e.mu.Lock()
	node, ok = e.nodes[id]
	if !ok {
		// The subtree was destroyed while the fetch was in flight.
		e.mu.Unlock()
		log.Debugf("Discarding fetch for destroyed node %s", id)
		return nil
	}
	if node.token != token {
		e.mu.Unlock()
		log.Debugf("Discarding stale fetch for %s", id)
		return nil
	}

	if fetchErr != nil {
		node.State = domain.StateErrored
		node.Err = fetchErr
		e.mu.Unlock()
		log.Warnf("❌ Failed to fetch children of %s: %v", id, fetchErr)
		return fetchErr
	}

	e.installChildrenLocked(node, result)
	node.State = domain.StateExpanded
	node.Forced = ForcedNone
	level := node.Level
	if !e.filter.Empty() {
		e.refilterLocked()
	}
	e.mu.Unlock()

	e.saveEntry(ctx, level, id, result.Page.Page)
	return nil
}

// collapseLocked transitions a node to collapsed and returns the session keys
// made stale by the transition. Container sections drop their subtree; item
// sections keep rows. Already-collapsed nodes pass through unchanged.
func (e *Engine) collapseLocked(node *Node) []string {
	if node.State == domain.StateCollapsed {
		return nil
	}

	node.token++
	node.State = domain.StateCollapsed
	node.Err = nil
	node.Forced = ForcedNone

	if !node.retainsRows() {
		for _, childID := range node.Children {
			e.destroySubtreeLocked(childID)
		}
		node.Children = nil
		node.Page = domain.PageInfo{}
	}

	if node.ID == domain.RootID {
		return nil
	}
	// Only the node's own entry is removed; descendant entries stay until
	// the boot sweep finds them unresolvable.
	return []string{session.EntryKey(node.Level, node.ID)}
}

// collapseSiblingsLocked closes every open sibling of node, enforcing the
// single-open-subtree policy for its tier.
func (e *Engine) collapseSiblingsLocked(node *Node) []string {
	parent, ok := e.nodes[node.Parent]
	if !ok {
		return nil
	}

	var staleKeys []string
	for _, siblingID := range parent.Children {
		if siblingID == node.ID {
			continue
		}
		sibling, ok := e.nodes[siblingID]
		if !ok || sibling.State == domain.StateCollapsed {
			continue
		}
		log.Debugf("Collapsing sibling %s of %s", siblingID, node.ID)
		staleKeys = append(staleKeys, e.collapseLocked(sibling)...)
	}
	return staleKeys
}

// installChildrenLocked replaces the node's child listing with a fetched
// page. Nodes for identifiers that survive the replacement keep their state,
// which is what preserves open descendants across a re-sort; subtrees of
// rows that fell off the page are destroyed.
func (e *Engine) installChildrenLocked(parent *Node, result *fetch.Result) {
	childLevel := parent.Level.ChildLevel()

	seen := make(map[domain.NodeID]bool, len(result.Records))
	children := make([]domain.NodeID, 0, len(result.Records))

	for _, record := range result.Records {
		coords := parent.Coords.ChildCoordinates(childLevel, record.ID)
		childID := coords.NodeID(childLevel)
		seen[childID] = true
		children = append(children, childID)

		if existing, ok := e.nodes[childID]; ok {
			existing.Record = record
			existing.Coords = coords
			continue
		}

		e.nodes[childID] = &Node{
			ID:       childID,
			Level:    childLevel,
			Parent:   parent.ID,
			Coords:   coords,
			Record:   record,
			State:    domain.StateCollapsed,
			OwnMatch: true,
			Visible:  true,
		}
	}

	for _, childID := range parent.Children {
		if !seen[childID] {
			e.destroySubtreeLocked(childID)
		}
	}

	parent.Children = children
	parent.Page = result.Page
}

func (e *Engine) destroySubtreeLocked(id domain.NodeID) {
	node, ok := e.nodes[id]
	if !ok {
		return
	}
	for _, childID := range node.Children {
		e.destroySubtreeLocked(childID)
	}
	delete(e.nodes, id)
}
