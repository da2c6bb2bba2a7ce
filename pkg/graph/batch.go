package graph

import (
	"context"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

type batchTask struct {
	pos   int
	index int
	merge func(ctx context.Context) (common.MergeResult, error)
}

// MergeBatch merges every record of the batch, at most Parallel at a time,
// anchoring them to batch.LinkCaseID when set. Case reports are merged
// first; calls, transactions and plate detections only start once every
// case report is in the graph, since they attach to the persons, phones and
// vehicles those reports create. The results report each record's status in
// batch order (case reports, calls, transactions, plate detections). The
// first store error stops the batch and is returned; records already merged
// stay merged.
func (e *MergeEngine) MergeBatch(ctx context.Context, batch common.RecordBatch) ([]common.MergeResult, error) {
	results := make([]common.MergeResult, batch.Len())
	opts := MergeOptions{LinkCaseID: batch.LinkCaseID}

	slot := 0
	task := func(index int, merge func(ctx context.Context) (common.MergeResult, error)) batchTask {
		t := batchTask{pos: slot, index: index, merge: merge}
		slot++
		return t
	}

	reports := make([]batchTask, 0, len(batch.CaseReports))
	for i, rec := range batch.CaseReports {
		reports = append(reports, task(i, func(ctx context.Context) (common.MergeResult, error) {
			return e.MergeCaseReport(ctx, rec, opts)
		}))
	}
	dependents := make([]batchTask, 0, len(batch.CallRecords)+len(batch.Transactions)+len(batch.PlateDetections))
	for i, rec := range batch.CallRecords {
		dependents = append(dependents, task(i, func(ctx context.Context) (common.MergeResult, error) {
			return e.MergeCallRecord(ctx, rec, opts)
		}))
	}
	for i, rec := range batch.Transactions {
		dependents = append(dependents, task(i, func(ctx context.Context) (common.MergeResult, error) {
			return e.MergeTransaction(ctx, rec, opts)
		}))
	}
	for i, rec := range batch.PlateDetections {
		dependents = append(dependents, task(i, func(ctx context.Context) (common.MergeResult, error) {
			return e.MergePlateDetection(ctx, rec, opts)
		}))
	}

	for _, phase := range [][]batchTask{reports, dependents} {
		if err := e.runPhase(ctx, phase, results); err != nil {
			logger.Error("[Merge] Batch aborted", "link_case_id", batch.LinkCaseID, "err", err)
			return results, err
		}
	}

	counts := CountStatuses(results)
	logger.Info("[Merge] Batch merged",
		"link_case_id", batch.LinkCaseID,
		"records", len(results),
		"merged", counts[common.StatusMerged],
		"noop", counts[common.StatusNoop],
		"skipped", counts[common.StatusSkipped],
	)
	return results, nil
}

// runPhase merges tasks concurrently and returns once all of them finished.
func (e *MergeEngine) runPhase(ctx context.Context, tasks []batchTask, results []common.MergeResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)

	for _, t := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := t.merge(gctx)
			if err != nil {
				return err
			}
			r.Index = t.index
			results[t.pos] = r
			return nil
		})
	}
	return g.Wait()
}

// CountStatuses tallies results by status.
func CountStatuses(results []common.MergeResult) map[common.MergeStatus]int {
	counts := make(map[common.MergeStatus]int, 3)
	for _, r := range results {
		if r.Status == "" {
			continue
		}
		counts[r.Status]++
	}
	return counts
}
