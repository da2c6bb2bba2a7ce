package graph

import (
	"context"
	"fmt"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/identity"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/store"
)

// ArchiveCase moves an existing case to ARCHIVED. Archiving is one-way and
// archiving an archived case is a no-op. Unknown cases return
// store.ErrNotFound.
func (e *MergeEngine) ArchiveCase(ctx context.Context, caseID string) error {
	caseID, ok := identity.NormalizeName(caseID)
	if !ok {
		return fmt.Errorf("case %q: %w", caseID, store.ErrNotFound)
	}
	return e.store.Update(ctx, func(ctx context.Context, tx store.GraphTx) error {
		if _, err := tx.GetNode(ctx, common.LabelCase, caseID); err != nil {
			return err
		}
		_, _, err := tx.MergeNode(ctx, store.NodeMerge{
			Label: common.LabelCase,
			Key:   caseID,
			Set:   map[string]string{common.PropStatus: common.CaseStatusArchived},
		})
		if err != nil {
			return fmt.Errorf("archive case %q: %w", caseID, err)
		}
		logger.Info("[Merge] Case archived", "case_id", caseID)
		return nil
	})
}

// Reset wipes the whole graph. It does not interleave with running merges
// or reads.
func (e *MergeEngine) Reset(ctx context.Context) error {
	if err := e.store.Wipe(ctx); err != nil {
		return err
	}
	logger.Warn("[Merge] Graph reset")
	return nil
}

// Stats returns node and edge counts.
func (e *MergeEngine) Stats(ctx context.Context) (common.GraphStats, error) {
	var stats common.GraphStats
	err := e.store.View(ctx, func(ctx context.Context, tx store.GraphReader) error {
		var err error
		stats, err = tx.Stats(ctx)
		return err
	})
	return stats, err
}

// CallLog lists every CALLED edge with its endpoint keys.
func (e *MergeEngine) CallLog(ctx context.Context) ([]common.CallLogEntry, error) {
	var entries []common.CallLogEntry
	err := e.store.View(ctx, func(ctx context.Context, tx store.GraphReader) error {
		edges, err := tx.ListEdges(ctx, common.RelCalled)
		if err != nil {
			return err
		}

		nodes := make(map[int64]common.Node)
		lookup := func(id int64) (common.Node, error) {
			if n, ok := nodes[id]; ok {
				return n, nil
			}
			n, err := tx.GetNodeByID(ctx, id)
			if err != nil {
				return common.Node{}, err
			}
			nodes[id] = n
			return n, nil
		}

		entries = make([]common.CallLogEntry, 0, len(edges))
		for _, edge := range edges {
			src, err := lookup(edge.SourceID)
			if err != nil {
				return err
			}
			dst, err := lookup(edge.TargetID)
			if err != nil {
				return err
			}
			entries = append(entries, common.CallLogEntry{
				Source:      src.Key,
				SourceLabel: src.Label,
				Target:      dst.Key,
				TargetLabel: dst.Label,
				Duration:    edge.Properties[common.PropDuration],
				Timestamp:   edge.Properties[common.PropTimestamp],
			})
		}
		return nil
	})
	return entries, err
}
