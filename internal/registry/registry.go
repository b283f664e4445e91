// Package registry tracks which ad containers on the page are already monitored.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultPrefix is the id prefix of ad containers.
const DefaultPrefix = "div-gpt-ad-"

// ElementSource yields the ids of the elements currently on the page.
type ElementSource interface {
	Elements(ctx context.Context) ([]string, error)
}

// Discovery is the result of one scan.
type Discovery struct {
	Added   []string
	Removed []string
}

// Registry marks elements as monitored so each one is bound exactly once.
// It is not safe for concurrent use.
type Registry struct {
	source    ElementSource
	prefix    string
	monitored map[string]struct{}
	log       *zap.Logger
}

// New creates a registry over source. An empty prefix uses DefaultPrefix.
func New(source ElementSource, prefix string, log *zap.Logger) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Registry{
		source:    source,
		prefix:    prefix,
		monitored: make(map[string]struct{}),
		log:       log,
	}
}

// Discover scans the source once. Added holds matching ids not seen before, Removed holds
// monitored ids that are no longer present. Both are sorted.
func (r *Registry) Discover(ctx context.Context) (Discovery, error) {
	ids, err := r.source.Elements(ctx)
	if err != nil {
		return Discovery{}, fmt.Errorf("failed to list elements: %w", err)
	}

	var result Discovery
	present := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !strings.HasPrefix(id, r.prefix) {
			continue
		}
		present[id] = struct{}{}

		if _, ok := r.monitored[id]; ok {
			continue
		}
		r.monitored[id] = struct{}{}
		result.Added = append(result.Added, id)
	}

	for id := range r.monitored {
		if _, ok := present[id]; !ok {
			delete(r.monitored, id)
			result.Removed = append(result.Removed, id)
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Removed)

	if len(result.Added) > 0 || len(result.Removed) > 0 {
		r.log.Debug("Ad elements changed",
			zap.Strings("added", result.Added),
			zap.Strings("removed", result.Removed),
			zap.Int("monitored", len(r.monitored)))
	}

	return result, nil
}

// Monitored reports whether id is bound.
func (r *Registry) Monitored(id string) bool {
	_, ok := r.monitored[id]
	return ok
}

// Len returns the number of monitored elements.
func (r *Registry) Len() int {
	return len(r.monitored)
}

// Prefix returns the id prefix ad containers must carry.
func (r *Registry) Prefix() string {
	return r.prefix
}

// SnapshotSource is an ElementSource fed with the page's element list from outside,
// typically by scan signals.
type SnapshotSource struct {
	mu  sync.RWMutex
	ids []string
}

func NewSnapshotSource(ids ...string) *SnapshotSource {
	s := &SnapshotSource{}
	s.Set(ids)
	return s
}

// Set replaces the element list.
func (s *SnapshotSource) Set(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append([]string(nil), ids...)
}

func (s *SnapshotSource) Elements(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ids...), nil
}
