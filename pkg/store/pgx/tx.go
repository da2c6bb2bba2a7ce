package pgx

import (
	"context"
	"fmt"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/store"
)

type dbTx struct {
	dbReader
}

func (tx *dbTx) MergeNode(ctx context.Context, m store.NodeMerge) (common.Node, bool, error) {
	if m.Label == "" || m.Key == "" {
		return common.Node{}, false, fmt.Errorf("merge node: label and key are required")
	}
	onCreate, err := encodeProps(m.OnCreate)
	if err != nil {
		return common.Node{}, false, err
	}
	set, err := encodeProps(m.Set)
	if err != nil {
		return common.Node{}, false, err
	}

	n := common.Node{Label: m.Label, Key: m.Key}
	var raw []byte
	var created bool
	err = tx.q.QueryRow(ctx, mergeNodeSQL, m.Label, m.Key, onCreate, set).Scan(&n.ID, &raw, &created)
	if err != nil {
		return common.Node{}, false, fmt.Errorf("merge %s %q: %w", m.Label, m.Key, err)
	}
	if n.Properties, err = decodeProps(raw); err != nil {
		return common.Node{}, false, err
	}
	return n, created, nil
}

func (tx *dbTx) MergeEdge(ctx context.Context, m store.EdgeMerge) (bool, error) {
	if m.Type == "" {
		return false, fmt.Errorf("merge edge: type is required")
	}
	set, err := encodeProps(m.Set)
	if err != nil {
		return false, err
	}

	var created bool
	err = tx.q.QueryRow(ctx, mergeEdgeSQL, m.Type, m.SourceID, m.TargetID, set).Scan(&created)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("merge %s %d->%d: %w", m.Type, m.SourceID, m.TargetID, store.ErrNotFound)
		}
		return false, fmt.Errorf("merge %s %d->%d: %w", m.Type, m.SourceID, m.TargetID, err)
	}
	return created, nil
}
