package session

import (
	"context"
	"errors"
	"strings"

	"stockyard/browser/internal/domain"
)

// Store persists browser session state (expansion entries and the global
// filter) across restarts within the session's lifetime. Implementations are
// safe for concurrent use.
type Store interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("session store is closed")

// Key namespaces. Everything the browser persists lives under one of these;
// nothing else builds raw key strings.
const (
	// ExpansionPrefix covers both expansion namespaces and is the listing
	// prefix for restore and sweep.
	ExpansionPrefix     = "expanded_"
	expandedItemsPrefix = "expanded_items_"

	// FilterKey holds the single serialized FilterState for the session.
	FilterKey = "globalFilter"
)

// ExpansionKey names the entry for a category or subcategory section.
func ExpansionKey(id domain.NodeID) string {
	return ExpansionPrefix + id.String()
}

// ItemsKey names the entry for a common-name item section.
func ItemsKey(id domain.NodeID) string {
	return expandedItemsPrefix + id.String()
}

// EntryKey picks the namespace for a node's expansion entry by its level.
func EntryKey(level domain.Level, id domain.NodeID) string {
	if level == domain.LevelCommonName {
		return ItemsKey(id)
	}
	return ExpansionKey(id)
}

// ParseKey recovers the node identifier from an expansion-namespace key.
// items reports which namespace the key belongs to. The items prefix must be
// tested first: it shares the shorter prefix.
func ParseKey(key string) (id domain.NodeID, items bool, ok bool) {
	if rest, found := strings.CutPrefix(key, expandedItemsPrefix); found {
		return domain.NodeID(rest), true, true
	}
	if rest, found := strings.CutPrefix(key, ExpansionPrefix); found {
		return domain.NodeID(rest), false, true
	}
	return "", false, false
}

// Sweep removes every expansion-namespace entry whose anchor no longer
// resolves on the current tree, so keys cannot accumulate indefinitely across
// sessions over different hierarchy views. The resolver receives the full key
// and reports whether its target still exists.
func Sweep(ctx context.Context, s Store, resolve func(key string) bool) (int, error) {
	keys, err := s.Keys(ctx, ExpansionPrefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if _, _, ok := ParseKey(key); !ok {
			continue
		}
		if resolve(key) {
			continue
		}
		if err := s.Delete(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
