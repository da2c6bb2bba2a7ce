package store

import (
	"context"
	"errors"

	"github.com/intellicase/backend/pkg/common"
)

var (
	ErrNotFound = errors.New("not found")
	ErrClosed   = errors.New("storage closed")
)

// GraphStorage is the boundary to the backing graph store. Every logical
// operation runs inside a session acquired with Update or View and released
// when the callback returns.
//
// Update runs fn as one atomic unit: when fn or the commit fails nothing it
// did is visible to other sessions. Merge-or-create on the same key from
// concurrent Update sessions never yields two nodes. Wipe is exclusive
// against all sessions.
type GraphStorage interface {
	Update(ctx context.Context, fn func(ctx context.Context, tx GraphTx) error) error
	View(ctx context.Context, fn func(ctx context.Context, tx GraphReader) error) error
	Wipe(ctx context.Context) error
	Close() error
}

// NodeMerge describes a merge-or-create of one node keyed by (Label, Key).
// OnCreate properties are written only when the node is created, Set
// properties on every merge.
type NodeMerge struct {
	Label    string
	Key      string
	OnCreate map[string]string
	Set      map[string]string
}

// EdgeMerge describes a merge-or-create of one directed edge keyed by
// (SourceID, TargetID, Type). Set properties overwrite on every merge.
type EdgeMerge struct {
	Type     string
	SourceID int64
	TargetID int64
	Set      map[string]string
}

// KeyMatch selects how FindNodesByKeyMatch compares node keys with a text.
type KeyMatch int

const (
	// KeyContainedIn matches nodes whose key occurs in the text.
	KeyContainedIn KeyMatch = iota
	// KeyOverlaps matches nodes whose key occurs in the text or the other way round.
	KeyOverlaps
)

// NeighborFilter restricts a one-hop lookup. Empty slices match everything.
// Direction is ignored: edges are followed both ways.
type NeighborFilter struct {
	RelTypes      []string
	Labels        []string
	ExcludeLabels []string
}

// TraversalFilter restricts a bounded multi-hop walk. Edges are followed in
// both directions; only RelTypes are traversed.
type TraversalFilter struct {
	RelTypes []string
	MaxHops  int
	Label    string
}

// GraphReader exposes the read primitives. Results are ordered by node id
// unless stated otherwise.
type GraphReader interface {
	GetNode(ctx context.Context, label, key string) (common.Node, error)
	GetNodeByID(ctx context.Context, id int64) (common.Node, error)
	ListNodes(ctx context.Context, label string) ([]common.Node, error)
	FindNodesByProperty(ctx context.Context, label, prop, value string) ([]common.Node, error)
	FindNodesByKeyMatch(ctx context.Context, label, text string, mode KeyMatch) ([]common.Node, error)
	Neighbors(ctx context.Context, id int64, filter NeighborFilter) ([]common.Node, error)
	// Reachable returns nodes reachable from id within 1..MaxHops hops,
	// ordered by hop distance, then id. The start node is never returned.
	Reachable(ctx context.Context, id int64, filter TraversalFilter) ([]common.Node, error)
	ListEdges(ctx context.Context, relType string) ([]common.Edge, error)
	Stats(ctx context.Context) (common.GraphStats, error)
}

// GraphTx is a write session.
type GraphTx interface {
	GraphReader
	MergeNode(ctx context.Context, m NodeMerge) (node common.Node, created bool, err error)
	MergeEdge(ctx context.Context, m EdgeMerge) (created bool, err error)
}
