package browse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"stockyard/browser/internal/domain"
	"stockyard/browser/internal/fetch"
	"stockyard/browser/internal/session"
)

// Engine owns the hierarchy: the node map, per-node expansion and sort state,
// the active filter, and the session store bindings. Every method is safe for
// concurrent use; fetches run outside the state lock and resolve through
// per-node tokens, so a stale response can never overwrite newer state.
type Engine struct {
	client fetch.Client
	store  session.Store
	schema domain.Schema

	mu     sync.Mutex
	nodes  map[domain.NodeID]*Node
	filter domain.FilterState

	exclusive      map[domain.Level]bool
	restoreOnStart bool
}

// Options tunes tree behavior.
type Options struct {
	// ExclusiveLevels marks tiers where expanding a node collapses its open
	// siblings, keeping a single open subtree per parent.
	ExclusiveLevels map[domain.Level]bool
	// RestoreOnStart replays persisted expansion entries during Boot.
	RestoreOnStart bool
}

func NewEngine(client fetch.Client, store session.Store, schema domain.Schema, opts Options) *Engine {
	exclusive := opts.ExclusiveLevels
	if exclusive == nil {
		exclusive = map[domain.Level]bool{}
	}
	return &Engine{
		client:         client,
		store:          store,
		schema:         schema,
		nodes:          make(map[domain.NodeID]*Node),
		exclusive:      exclusive,
		restoreOnStart: opts.RestoreOnStart,
	}
}

// Boot builds the root, loads the persisted filter, fetches the category
// listing, replays persisted expansions top-down, sweeps entries that no
// longer resolve, and applies the filter to whatever got restored.
func (e *Engine) Boot(ctx context.Context) error {
	e.mu.Lock()
	e.nodes = map[domain.NodeID]*Node{
		domain.RootID: {
			ID:       domain.RootID,
			Level:    domain.LevelRoot,
			OwnMatch: true,
			Visible:  true,
		},
	}
	e.filter = domain.FilterState{}
	e.mu.Unlock()

	if err := e.loadFilter(ctx); err != nil {
		log.Warnf("⚠️ Failed to load persisted filter: %v", err)
	}

	if err := e.load(ctx, domain.RootID, 1, true); err != nil {
		return fmt.Errorf("failed to fetch category listing: %w", err)
	}

	if e.restoreOnStart {
		e.restore(ctx)
	}

	removed, err := session.Sweep(ctx, e.store, func(key string) bool {
		id, _, ok := session.ParseKey(key)
		if !ok {
			return true
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		_, exists := e.nodes[id]
		return exists
	})
	if err != nil {
		log.Warnf("⚠️ Session sweep failed: %v", err)
	} else if removed > 0 {
		log.Infof("🧹 Swept %d stale expansion entries", removed)
	}

	e.mu.Lock()
	if !e.filter.Empty() {
		e.refilterLocked()
	}
	e.mu.Unlock()

	log.Infof("✅ Browser booted with %d nodes", e.nodeCount())
	return nil
}

// restore replays persisted expansion entries. Each pass expands every entry
// whose node is on the tree and collapsed; expansions surface deeper rows, so
// passes repeat until nothing new opens. Failures are logged and skipped so
// one dead branch cannot block the rest of the restore.
func (e *Engine) restore(ctx context.Context) {
	for {
		keys, err := e.store.Keys(ctx, session.ExpansionPrefix)
		if err != nil {
			log.Warnf("⚠️ Failed to list expansion entries: %v", err)
			return
		}

		expandedAny := false
		for _, key := range keys {
			id, _, ok := session.ParseKey(key)
			if !ok {
				continue
			}

			e.mu.Lock()
			node, exists := e.nodes[id]
			restorable := exists && node.Level.Expandable() && node.State == domain.StateCollapsed
			e.mu.Unlock()
			if !restorable {
				continue
			}

			entry, err := e.loadEntry(ctx, key)
			if err != nil {
				log.Warnf("⚠️ Dropping unreadable expansion entry %s: %v", key, err)
				_ = e.store.Delete(ctx, key)
				continue
			}
			if !entry.Expanded {
				continue
			}

			page := entry.LastFetchedPage
			if page < 1 {
				page = 1
			}

			if err := e.load(ctx, id, page, true); err != nil {
				log.Warnf("⚠️ Failed to restore %s: %v", id, err)
				continue
			}
			expandedAny = true
		}

		if !expandedAny {
			return
		}
	}
}

// Filter returns the active filter.
func (e *Engine) Filter() domain.FilterState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// NodeState reports a node's expansion state, for callers that need to gate
// an interaction without taking a full snapshot.
func (e *Engine) NodeState(id domain.NodeID) (domain.ExpandState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	node, ok := e.nodes[id]
	if !ok {
		return domain.StateCollapsed, false
	}
	return node.State, true
}

func (e *Engine) nodeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.nodes)
}

func (e *Engine) loadFilter(ctx context.Context) error {
	raw, ok, err := e.store.Load(ctx, session.FilterKey)
	if err != nil || !ok {
		return err
	}

	var fs domain.FilterState
	if err := json.Unmarshal(raw, &fs); err != nil {
		// An unreadable filter entry is dropped, not fatal.
		_ = e.store.Delete(ctx, session.FilterKey)
		return fmt.Errorf("unreadable filter entry: %w", err)
	}

	e.mu.Lock()
	e.filter = fs.Normalize()
	e.mu.Unlock()
	return nil
}

func (e *Engine) loadEntry(ctx context.Context, key string) (domain.ExpansionEntry, error) {
	raw, ok, err := e.store.Load(ctx, key)
	if err != nil {
		return domain.ExpansionEntry{}, err
	}
	if !ok {
		return domain.ExpansionEntry{}, fmt.Errorf("entry %s disappeared", key)
	}

	var entry domain.ExpansionEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.ExpansionEntry{}, err
	}
	return entry, nil
}

func (e *Engine) saveEntry(ctx context.Context, level domain.Level, id domain.NodeID, page int) {
	if id == domain.RootID {
		return
	}

	entry := domain.ExpansionEntry{
		NodeID:          id,
		Expanded:        true,
		LastFetchedPage: page,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		log.Warnf("⚠️ Failed to encode expansion entry for %s: %v", id, err)
		return
	}

	if err := e.store.Save(ctx, session.EntryKey(level, id), payload); err != nil {
		log.Warnf("⚠️ Failed to persist expansion for %s: %v", id, err)
	}
}

func (e *Engine) deleteEntries(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := e.store.Delete(ctx, key); err != nil {
			log.Warnf("⚠️ Failed to remove session entry %s: %v", key, err)
		}
	}
}
