// Package memory provides an in-process GraphStorage. Update sessions are
// serialized behind a single writer lock and journal an undo entry for every
// change, so a failing session leaves no trace. View sessions share a read
// lock. It backs tests and CLI dry runs; production uses the pgx engine.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/store"
)

type edgeKey struct {
	source  int64
	target  int64
	relType string
}

// GraphMemoryStorage implements store.GraphStorage in memory.
type GraphMemoryStorage struct {
	mu     sync.RWMutex
	closed bool

	nextNodeID int64
	nextEdgeID int64

	nodes     map[int64]*common.Node
	byKey     map[string]map[string]int64
	edges     map[edgeKey]*common.Edge
	adjacency map[int64][]edgeKey
}

// NewGraphMemoryStorage returns an empty store.
func NewGraphMemoryStorage() *GraphMemoryStorage {
	s := &GraphMemoryStorage{}
	s.reset()
	return s
}

func (s *GraphMemoryStorage) reset() {
	s.nextNodeID = 0
	s.nextEdgeID = 0
	s.nodes = make(map[int64]*common.Node)
	s.byKey = make(map[string]map[string]int64)
	s.edges = make(map[edgeKey]*common.Edge)
	s.adjacency = make(map[int64][]edgeKey)
}

// Update runs fn under the writer lock and rolls every change back when fn
// returns an error.
func (s *GraphMemoryStorage) Update(ctx context.Context, fn func(ctx context.Context, tx store.GraphTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	tx := &memTx{memReader: memReader{s: s}}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// View runs fn under the shared read lock.
func (s *GraphMemoryStorage) View(ctx context.Context, fn func(ctx context.Context, tx store.GraphReader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}
	return fn(ctx, memReader{s: s})
}

// Wipe deletes every node and edge. It waits for all running sessions.
func (s *GraphMemoryStorage) Wipe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	s.reset()
	return nil
}

func (s *GraphMemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func copyNode(n *common.Node) common.Node {
	return common.Node{
		ID:         n.ID,
		Label:      n.Label,
		Key:        n.Key,
		Properties: store.MergeProps(n.Properties),
	}
}

func copyEdge(e *common.Edge) common.Edge {
	return common.Edge{
		ID:         e.ID,
		Type:       e.Type,
		SourceID:   e.SourceID,
		TargetID:   e.TargetID,
		Properties: store.MergeProps(e.Properties),
	}
}

func sortNodes(nodes []common.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

type memReader struct {
	s *GraphMemoryStorage
}

func (r memReader) GetNode(ctx context.Context, label, key string) (common.Node, error) {
	id, ok := r.s.byKey[label][key]
	if !ok {
		return common.Node{}, fmt.Errorf("%s %q: %w", label, key, store.ErrNotFound)
	}
	return copyNode(r.s.nodes[id]), nil
}

func (r memReader) GetNodeByID(ctx context.Context, id int64) (common.Node, error) {
	n, ok := r.s.nodes[id]
	if !ok {
		return common.Node{}, fmt.Errorf("node %d: %w", id, store.ErrNotFound)
	}
	return copyNode(n), nil
}

func (r memReader) ListNodes(ctx context.Context, label string) ([]common.Node, error) {
	out := make([]common.Node, 0, len(r.s.byKey[label]))
	for _, id := range r.s.byKey[label] {
		out = append(out, copyNode(r.s.nodes[id]))
	}
	sortNodes(out)
	return out, nil
}

func (r memReader) FindNodesByProperty(ctx context.Context, label, prop, value string) ([]common.Node, error) {
	out := make([]common.Node, 0)
	for _, id := range r.s.byKey[label] {
		n := r.s.nodes[id]
		if v, ok := n.Properties[prop]; ok && v == value {
			out = append(out, copyNode(n))
		}
	}
	sortNodes(out)
	return out, nil
}

func (r memReader) FindNodesByKeyMatch(ctx context.Context, label, text string, mode store.KeyMatch) ([]common.Node, error) {
	out := make([]common.Node, 0)
	for key, id := range r.s.byKey[label] {
		if store.MatchesKey(key, text, mode) {
			out = append(out, copyNode(r.s.nodes[id]))
		}
	}
	sortNodes(out)
	return out, nil
}

func (r memReader) Neighbors(ctx context.Context, id int64, filter store.NeighborFilter) ([]common.Node, error) {
	relTypes := toSet(filter.RelTypes)
	labels := toSet(filter.Labels)
	excluded := toSet(filter.ExcludeLabels)

	seen := make(map[int64]struct{})
	out := make([]common.Node, 0)
	for _, k := range r.s.adjacency[id] {
		if len(relTypes) > 0 && !has(relTypes, k.relType) {
			continue
		}
		other := otherEnd(k, id)
		if other == id {
			continue
		}
		if _, dup := seen[other]; dup {
			continue
		}
		n := r.s.nodes[other]
		if len(labels) > 0 && !has(labels, n.Label) {
			continue
		}
		if has(excluded, n.Label) {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, copyNode(n))
	}
	sortNodes(out)
	return out, nil
}

func (r memReader) Reachable(ctx context.Context, id int64, filter store.TraversalFilter) ([]common.Node, error) {
	if _, ok := r.s.nodes[id]; !ok || filter.MaxHops <= 0 {
		return []common.Node{}, nil
	}
	relTypes := toSet(filter.RelTypes)

	visited := map[int64]struct{}{id: {}}
	frontier := []int64{id}
	out := make([]common.Node, 0)

	for depth := 1; depth <= filter.MaxHops && len(frontier) > 0; depth++ {
		level := make([]common.Node, 0)
		next := make([]int64, 0)
		for _, current := range frontier {
			for _, k := range r.s.adjacency[current] {
				if len(relTypes) > 0 && !has(relTypes, k.relType) {
					continue
				}
				other := otherEnd(k, current)
				if _, ok := visited[other]; ok {
					continue
				}
				visited[other] = struct{}{}
				next = append(next, other)
				level = append(level, copyNode(r.s.nodes[other]))
			}
		}
		sortNodes(level)
		for _, n := range level {
			if filter.Label == "" || n.Label == filter.Label {
				out = append(out, n)
			}
		}
		frontier = next
	}
	return out, nil
}

func (r memReader) ListEdges(ctx context.Context, relType string) ([]common.Edge, error) {
	out := make([]common.Edge, 0)
	for _, e := range r.s.edges {
		if relType == "" || e.Type == relType {
			out = append(out, copyEdge(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memReader) Stats(ctx context.Context) (common.GraphStats, error) {
	stats := common.GraphStats{
		Nodes:       int64(len(r.s.nodes)),
		Edges:       int64(len(r.s.edges)),
		NodesByType: make(map[string]int64),
		EdgesByType: make(map[string]int64),
	}
	for _, n := range r.s.nodes {
		stats.NodesByType[n.Label]++
	}
	for _, e := range r.s.edges {
		stats.EdgesByType[e.Type]++
	}
	return stats, nil
}

type memTx struct {
	memReader
	undo []func()
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memTx) MergeNode(ctx context.Context, m store.NodeMerge) (common.Node, bool, error) {
	if m.Label == "" || m.Key == "" {
		return common.Node{}, false, fmt.Errorf("merge node: label and key are required")
	}
	s := tx.s

	if id, ok := s.byKey[m.Label][m.Key]; ok {
		n := s.nodes[id]
		if len(m.Set) > 0 {
			old := n.Properties
			n.Properties = store.MergeProps(old, m.Set)
			tx.undo = append(tx.undo, func() { n.Properties = old })
		}
		return copyNode(n), false, nil
	}

	s.nextNodeID++
	n := &common.Node{
		ID:         s.nextNodeID,
		Label:      m.Label,
		Key:        m.Key,
		Properties: store.MergeProps(m.OnCreate, m.Set),
	}
	s.nodes[n.ID] = n
	if s.byKey[m.Label] == nil {
		s.byKey[m.Label] = make(map[string]int64)
	}
	s.byKey[m.Label][m.Key] = n.ID

	tx.undo = append(tx.undo, func() {
		delete(s.nodes, n.ID)
		delete(s.byKey[n.Label], n.Key)
	})
	return copyNode(n), true, nil
}

func (tx *memTx) MergeEdge(ctx context.Context, m store.EdgeMerge) (bool, error) {
	if m.Type == "" {
		return false, fmt.Errorf("merge edge: type is required")
	}
	s := tx.s
	if _, ok := s.nodes[m.SourceID]; !ok {
		return false, fmt.Errorf("merge edge source %d: %w", m.SourceID, store.ErrNotFound)
	}
	if _, ok := s.nodes[m.TargetID]; !ok {
		return false, fmt.Errorf("merge edge target %d: %w", m.TargetID, store.ErrNotFound)
	}

	k := edgeKey{source: m.SourceID, target: m.TargetID, relType: m.Type}
	if e, ok := s.edges[k]; ok {
		if len(m.Set) > 0 {
			old := e.Properties
			e.Properties = store.MergeProps(old, m.Set)
			tx.undo = append(tx.undo, func() { e.Properties = old })
		}
		return false, nil
	}

	s.nextEdgeID++
	s.edges[k] = &common.Edge{
		ID:         s.nextEdgeID,
		Type:       m.Type,
		SourceID:   m.SourceID,
		TargetID:   m.TargetID,
		Properties: store.MergeProps(m.Set),
	}
	s.adjacency[m.SourceID] = append(s.adjacency[m.SourceID], k)
	if m.TargetID != m.SourceID {
		s.adjacency[m.TargetID] = append(s.adjacency[m.TargetID], k)
	}

	tx.undo = append(tx.undo, func() {
		delete(s.edges, k)
		s.adjacency[k.source] = s.adjacency[k.source][:len(s.adjacency[k.source])-1]
		if k.target != k.source {
			s.adjacency[k.target] = s.adjacency[k.target][:len(s.adjacency[k.target])-1]
		}
	})
	return true, nil
}

func otherEnd(k edgeKey, id int64) int64 {
	if k.source == id {
		return k.target
	}
	return k.source
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func has(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}
