package graph

import (
	"context"
	"strconv"
	"strings"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/identity"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/store"
)

// MergeCallRecord links the two endpoints of a call with a CALLED edge.
// Both endpoints are resolved before anything is written, so a call dropped
// by the link policy leaves the graph untouched. Repeated calls between the
// same pair overwrite timestamp and duration on the one edge.
func (e *MergeEngine) MergeCallRecord(ctx context.Context, rec common.CallRecord, opts MergeOptions) (common.MergeResult, error) {
	result := common.MergeResult{Kind: common.KindCallRecord}

	if err := e.validate.Struct(rec); err != nil {
		result.Status = common.StatusSkipped
		result.Reason = err.Error()
		logger.Debug("[Merge] Skipping malformed call record", "err", err)
		return result, nil
	}

	src, okSrc := identity.NormalizePhone(rec.Source)
	dst, okDst := identity.NormalizePhone(rec.Destination)
	if !okSrc || !okDst {
		result.Status = common.StatusNoop
		result.Reason = "endpoint failed normalization"
		logger.Debug("[Merge] Dropping call with invalid endpoint", "source", rec.Source, "destination", rec.Destination)
		return result, nil
	}

	set := map[string]string{}
	if ts := strings.TrimSpace(rec.Timestamp); ts != "" {
		set[common.PropTimestamp] = ts
	}
	if rec.DurationSeconds != nil {
		set[common.PropDuration] = strconv.Itoa(*rec.DurationSeconds)
	}

	linked := false
	err := e.store.Update(ctx, func(ctx context.Context, tx store.GraphTx) error {
		result.NodesCreated, result.EdgesCreated = 0, 0
		linked = false
		s := newMergeSession(tx, &result)

		from, ok, err := s.resolvePhone(ctx, src, e.policy, common.OriginCallRecord)
		if err != nil || !ok {
			return err
		}
		to, ok, err := s.resolvePhone(ctx, dst, e.policy, common.OriginCallRecord)
		if err != nil || !ok {
			return err
		}

		if err := s.edge(ctx, common.RelCalled, from.ID, to.ID, set); err != nil {
			return err
		}
		s.touch(from.ID, to.ID)
		linked = true

		return s.linkToCase(ctx, opts.LinkCaseID, nil)
	})
	if err != nil {
		return result, err
	}

	if !linked {
		result.Status = common.StatusNoop
		result.Reason = "no person for endpoint under strict linking"
		logger.Debug("[Merge] Dropping call under strict linking", "source", src, "destination", dst)
		return result, nil
	}

	result.Status = common.StatusMerged
	logger.Debug("[Merge] Call merged", "source", src, "destination", dst, "edges_created", result.EdgesCreated)
	return result, nil
}
