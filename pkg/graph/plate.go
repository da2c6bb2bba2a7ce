package graph

import (
	"context"
	"strings"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/identity"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/store"
)

const minFragmentLength = 5

// PlateCandidates returns the texts a plate detection is matched with. A
// valid structured plate is the only candidate; otherwise every raw fragment is
// compacted to uppercase alphanumerics and kept when the result is longer
// than four characters.
func PlateCandidates(rec common.PlateDetection) []string {
	if plate, ok := identity.NormalizePlate(rec.Plate); ok {
		return []string{plate}
	}

	candidates := make([]string, 0, len(rec.RawTextFragments))
	for _, fragment := range rec.RawTextFragments {
		c := identity.CompactText(fragment)
		if len(c) < minFragmentLength {
			continue
		}
		candidates = append(candidates, c)
	}
	return store.DedupeStrings(candidates)
}

// MergePlateDetection attaches CCTV evidence to every known Vehicle whose
// plate overlaps a candidate text. Detections that match no vehicle are
// dropped; they never create vehicles.
func (e *MergeEngine) MergePlateDetection(ctx context.Context, rec common.PlateDetection, opts MergeOptions) (common.MergeResult, error) {
	result := common.MergeResult{Kind: common.KindPlateDetection}

	candidates := PlateCandidates(rec)
	if len(candidates) == 0 {
		result.Status = common.StatusNoop
		result.Reason = "no plate candidates"
		logger.Debug("[Merge] Plate detection has no candidates", "source", rec.Source)
		return result, nil
	}

	matched := 0
	err := e.store.Update(ctx, func(ctx context.Context, tx store.GraphTx) error {
		result.NodesCreated, result.EdgesCreated = 0, 0
		matched = 0
		s := newMergeSession(tx, &result)

		for _, candidate := range candidates {
			vehicles, err := tx.FindNodesByKeyMatch(ctx, common.LabelVehicle, candidate, store.KeyOverlaps)
			if err != nil {
				return err
			}
			if len(vehicles) == 0 {
				continue
			}

			onCreate := map[string]string{
				common.PropType: common.EvidenceTypeCCTV,
				common.PropText: candidate,
			}
			if src := strings.TrimSpace(rec.Source); src != "" {
				onCreate[common.PropSource] = src
			}
			evidence, err := s.node(ctx, store.NodeMerge{
				Label:    common.LabelEvidence,
				Key:      candidate,
				OnCreate: onCreate,
			})
			if err != nil {
				return err
			}
			s.touch(evidence.ID)

			for _, v := range vehicles {
				if err := s.edge(ctx, common.RelCapturedIn, v.ID, evidence.ID, nil); err != nil {
					return err
				}
				s.touch(v.ID)
				matched++
			}
		}

		if matched == 0 {
			return nil
		}
		return s.linkToCase(ctx, opts.LinkCaseID, nil)
	})
	if err != nil {
		return result, err
	}

	if matched == 0 {
		result.Status = common.StatusNoop
		result.Reason = "no matching vehicle"
		logger.Debug("[Merge] Plate detection matched no vehicle", "candidates", candidates)
		return result, nil
	}

	result.Status = common.StatusMerged
	logger.Debug("[Merge] Plate detection merged", "candidates", len(candidates), "matches", matched)
	return result, nil
}
