package browse

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"stockyard/browser/internal/domain"
)

// Sort toggles the sort on one column of a node's open child listing and
// refetches page 1. A fresh column sorts ascending, repeating a column flips
// the direction. Descendants whose identifiers survive the refetch keep
// their expansion.
func (e *Engine) Sort(ctx context.Context, id domain.NodeID, column string) error {
	e.mu.Lock()
	node, ok := e.nodes[id]
	if !ok {
		e.mu.Unlock()
		log.Debugf("Sort target %s is not on the tree, ignoring", id)
		return nil
	}
	if node.State != domain.StateExpanded {
		e.mu.Unlock()
		return nil
	}

	childSchema := e.schema.ForLevel(node.Level.ChildLevel())
	field, declared := childSchema.Field(column)
	if !declared || !field.Sortable {
		e.mu.Unlock()
		return fmt.Errorf("column %q is not sortable for %s", column, childSchema.Plural)
	}

	node.Sort = node.Sort.Toggle(column)
	sort := node.Sort
	e.mu.Unlock()

	log.Debugf("Sorting %s of %s by %s", childSchema.Plural, id, sort.Param())
	return e.load(ctx, id, 1, true)
}

// SetPage moves a node's open child listing to an absolute page, clamped to
// the known page range. Moving to the current page is a no-op.
func (e *Engine) SetPage(ctx context.Context, id domain.NodeID, page int) error {
	e.mu.Lock()
	node, ok := e.nodes[id]
	if !ok || node.State != domain.StateExpanded {
		e.mu.Unlock()
		return nil
	}

	if page < 1 {
		page = 1
	}
	if total := node.Page.TotalPages(); total > 0 && page > total {
		page = total
	}
	if page == node.Page.Page {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	return e.load(ctx, id, page, true)
}

// Refresh refetches the current page of a node's open child listing, keeping
// sort, pagination, and any open descendants that survive. Refreshing the
// root reloads the category listing.
func (e *Engine) Refresh(ctx context.Context, id domain.NodeID) error {
	e.mu.Lock()
	node, ok := e.nodes[id]
	if !ok || node.State != domain.StateExpanded {
		e.mu.Unlock()
		return nil
	}
	page := node.Page.Page
	e.mu.Unlock()

	if page < 1 {
		page = 1
	}
	return e.load(ctx, id, page, true)
}
