package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

type dbReader struct {
	q querier
}

func scanNode(row pgxv5.Row) (common.Node, error) {
	var n common.Node
	var raw []byte
	if err := row.Scan(&n.ID, &n.Label, &n.Key, &raw); err != nil {
		return common.Node{}, err
	}
	props, err := decodeProps(raw)
	if err != nil {
		return common.Node{}, err
	}
	n.Properties = props
	return n, nil
}

func (r dbReader) queryNodes(ctx context.Context, sql string, args ...any) ([]common.Node, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]common.Node, 0)
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r dbReader) GetNode(ctx context.Context, label, key string) (common.Node, error) {
	n, err := scanNode(r.q.QueryRow(ctx, getNodeSQL, label, key))
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Node{}, fmt.Errorf("%s %q: %w", label, key, store.ErrNotFound)
	}
	return n, err
}

func (r dbReader) GetNodeByID(ctx context.Context, id int64) (common.Node, error) {
	n, err := scanNode(r.q.QueryRow(ctx, getNodeByIDSQL, id))
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Node{}, fmt.Errorf("node %d: %w", id, store.ErrNotFound)
	}
	return n, err
}

func (r dbReader) ListNodes(ctx context.Context, label string) ([]common.Node, error) {
	return r.queryNodes(ctx, listNodesSQL, label)
}

func (r dbReader) FindNodesByProperty(ctx context.Context, label, prop, value string) ([]common.Node, error) {
	return r.queryNodes(ctx, findNodesByPropertySQL, label, prop, value)
}

func (r dbReader) FindNodesByKeyMatch(ctx context.Context, label, text string, mode store.KeyMatch) ([]common.Node, error) {
	if text == "" {
		return []common.Node{}, nil
	}
	switch mode {
	case store.KeyContainedIn:
		return r.queryNodes(ctx, findNodesKeyContainedSQL, label, text)
	case store.KeyOverlaps:
		return r.queryNodes(ctx, findNodesKeyOverlapsSQL, label, text)
	default:
		return nil, fmt.Errorf("unknown key match mode %d", mode)
	}
}

func (r dbReader) Neighbors(ctx context.Context, id int64, filter store.NeighborFilter) ([]common.Node, error) {
	return r.queryNodes(ctx, neighborsSQL,
		id,
		textArray(filter.RelTypes),
		textArray(filter.Labels),
		textArray(filter.ExcludeLabels),
	)
}

func (r dbReader) Reachable(ctx context.Context, id int64, filter store.TraversalFilter) ([]common.Node, error) {
	if filter.MaxHops <= 0 {
		return []common.Node{}, nil
	}
	return r.queryNodes(ctx, reachableSQL, id, filter.MaxHops, textArray(filter.RelTypes), filter.Label)
}

func (r dbReader) ListEdges(ctx context.Context, relType string) ([]common.Edge, error) {
	rows, err := r.q.Query(ctx, listEdgesSQL, relType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]common.Edge, 0)
	for rows.Next() {
		var e common.Edge
		var raw []byte
		if err := rows.Scan(&e.ID, &e.Type, &e.SourceID, &e.TargetID, &raw); err != nil {
			return nil, err
		}
		if e.Properties, err = decodeProps(raw); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r dbReader) Stats(ctx context.Context) (common.GraphStats, error) {
	stats := common.GraphStats{
		NodesByType: make(map[string]int64),
		EdgesByType: make(map[string]int64),
	}

	nodes, err := r.countBy(ctx, countNodesByLabelSQL)
	if err != nil {
		return stats, err
	}
	edges, err := r.countBy(ctx, countEdgesByTypeSQL)
	if err != nil {
		return stats, err
	}
	for label, c := range nodes {
		stats.NodesByType[label] = c
		stats.Nodes += c
	}
	for relType, c := range edges {
		stats.EdgesByType[relType] = c
		stats.Edges += c
	}
	return stats, nil
}

func (r dbReader) countBy(ctx context.Context, sql string) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var k string
		var c int64
		if err := rows.Scan(&k, &c); err != nil {
			return nil, err
		}
		out[k] = c
	}
	return out, rows.Err()
}
