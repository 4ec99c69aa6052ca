package browse

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"stockyard/browser/internal/domain"
	"stockyard/browser/internal/session"
)

// ApplyFilter replaces the active filter and recomputes visibility across the
// loaded tree. Filtering never fetches: rows belonging to sections that were
// never expanded stay unknown until the user opens them. An empty filter
// reveals everything and drops every forced section state, returning the tree
// to exactly what the user had open.
func (e *Engine) ApplyFilter(ctx context.Context, fs domain.FilterState) error {
	fs = fs.Normalize()

	e.mu.Lock()
	e.filter = fs
	if fs.Empty() {
		e.clearFilterLocked()
	} else {
		e.refilterLocked()
	}
	e.mu.Unlock()

	if fs.Empty() {
		if err := e.store.Delete(ctx, session.FilterKey); err != nil {
			log.Warnf("⚠️ Failed to clear persisted filter: %v", err)
		}
		return nil
	}

	payload, err := json.Marshal(fs)
	if err != nil {
		return err
	}
	if err := e.store.Save(ctx, session.FilterKey, payload); err != nil {
		log.Warnf("⚠️ Failed to persist filter: %v", err)
	}
	return nil
}

// refilterLocked recomputes the visibility of every loaded node, bottom-up:
// a node is visible when its own fields match or any child is visible. The
// pass also derives each section's forced visual state, revealing sections
// that are visible only through their descendants and hiding sections with
// nothing to show.
func (e *Engine) refilterLocked() {
	root, ok := e.nodes[domain.RootID]
	if !ok {
		return
	}
	e.refilterNodeLocked(root)
}

func (e *Engine) refilterNodeLocked(node *Node) bool {
	visibleChildren := 0
	for _, childID := range node.Children {
		child, ok := e.nodes[childID]
		if !ok {
			continue
		}
		if e.refilterNodeLocked(child) {
			visibleChildren++
		}
	}

	if node.ID == domain.RootID {
		node.OwnMatch = true
		node.Visible = true
		node.Forced = ForcedNone
		return true
	}

	schema := e.schema.ForLevel(node.Level)
	node.OwnMatch = e.filter.MatchesRow(schema, node.Record.Field)
	node.Visible = node.OwnMatch || visibleChildren > 0

	switch {
	case !node.Visible:
		node.Forced = ForcedClosed
	case !node.OwnMatch && visibleChildren > 0:
		node.Forced = ForcedOpen
	default:
		node.Forced = ForcedNone
	}

	return node.Visible
}

func (e *Engine) clearFilterLocked() {
	for _, node := range e.nodes {
		node.OwnMatch = true
		node.Visible = true
		node.Forced = ForcedNone
	}
}
