package graph

import (
	"context"
	"strings"

	"github.com/intellicase/backend/internal/util"
	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/identity"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/store"
)

// MergeCaseReport merges one case report around its Case hub. A report
// without a case id is merged under a fallback id and flagged as degraded.
func (e *MergeEngine) MergeCaseReport(ctx context.Context, rec common.CaseReport, opts MergeOptions) (common.MergeResult, error) {
	result := common.MergeResult{Kind: common.KindCaseReport}

	caseID, _ := identity.NormalizeName(rec.CaseID)
	suspects := identity.ToArray([]string(rec.Suspects), identity.NormalizeName)
	plates := identity.ToArray([]string(rec.Vehicles), identity.NormalizePlate)
	phones := identity.ToArray([]string(rec.Phones), identity.NormalizePhone)
	details := caseDetails(rec)

	if dropped := len(rec.Suspects) + len(rec.Vehicles) + len(rec.Phones) - len(suspects) - len(plates) - len(phones); dropped > 0 {
		logger.Debug("[Merge] Dropped values during normalization", "case_id", rec.CaseID, "dropped", dropped)
	}

	if caseID == "" && len(suspects) == 0 && len(plates) == 0 && len(phones) == 0 && len(details) == 0 {
		result.Status = common.StatusNoop
		result.Reason = "no valid fields"
		logger.Debug("[Merge] Case report has no valid fields")
		return result, nil
	}

	onCreate := map[string]string{common.PropStatus: common.CaseStatusActive}
	if caseID == "" {
		id, err := util.NewFallbackCaseID()
		if err != nil {
			return result, err
		}
		caseID = id
		result.Degraded = true
		onCreate[common.PropDegraded] = "true"
		logger.Warn("[Merge] Case report without case id, using fallback", "case_id", caseID)
	}
	result.CaseID = caseID

	err := e.store.Update(ctx, func(ctx context.Context, tx store.GraphTx) error {
		result.NodesCreated, result.EdgesCreated = 0, 0
		s := newMergeSession(tx, &result)

		caseNode, err := s.node(ctx, store.NodeMerge{
			Label:    common.LabelCase,
			Key:      caseID,
			OnCreate: onCreate,
			Set:      details,
		})
		if err != nil {
			return err
		}

		// A single suspect is bound to the first phone and to every vehicle.
		var bound string
		var suspect *common.Node
		for _, name := range suspects {
			set := map[string]string{}
			if len(suspects) == 1 && len(phones) > 0 {
				bound = phones[0]
				set[common.PropPhone] = bound
			}
			person, err := s.node(ctx, store.NodeMerge{
				Label: common.LabelPerson,
				Key:   name,
				OnCreate: map[string]string{
					common.PropOrigin: common.OriginCaseReport,
					common.PropRole:   "suspect",
				},
				Set: set,
			})
			if err != nil {
				return err
			}
			if err := s.edge(ctx, common.RelHasSuspect, caseNode.ID, person.ID, nil); err != nil {
				return err
			}
			s.touch(person.ID)
			if len(suspects) == 1 {
				suspect = &person
			}
		}

		model := strings.TrimSpace(rec.VehicleModel)
		for _, plate := range plates {
			set := map[string]string{}
			if len(plates) == 1 && model != "" {
				set[common.PropModel] = model
			}
			vehicle, err := s.node(ctx, store.NodeMerge{
				Label: common.LabelVehicle,
				Key:   plate,
				Set:   set,
			})
			if err != nil {
				return err
			}
			if err := s.edge(ctx, common.RelInvolvedVehicle, caseNode.ID, vehicle.ID, nil); err != nil {
				return err
			}
			if suspect != nil {
				if err := s.edge(ctx, common.RelOwnsOrDrives, suspect.ID, vehicle.ID, nil); err != nil {
					return err
				}
			}
			s.touch(vehicle.ID)
		}

		for _, phone := range phones {
			if phone == bound {
				continue
			}
			node, _, err := s.resolvePhone(ctx, phone, LinkSmart, common.OriginCaseReport)
			if err != nil {
				return err
			}
			if err := s.edge(ctx, common.RelLinkedPhone, caseNode.ID, node.ID, nil); err != nil {
				return err
			}
			s.touch(node.ID)
		}

		return s.linkToCase(ctx, opts.LinkCaseID, &caseNode)
	})
	if err != nil {
		return result, err
	}

	result.Status = common.StatusMerged
	logger.Debug("[Merge] Case report merged",
		"case_id", caseID,
		"suspects", len(suspects),
		"vehicles", len(plates),
		"phones", len(phones),
		"nodes_created", result.NodesCreated,
		"edges_created", result.EdgesCreated,
	)
	return result, nil
}

func caseDetails(rec common.CaseReport) map[string]string {
	details := map[string]string{}
	if v := strings.TrimSpace(rec.CrimeType); v != "" {
		details[common.PropCrimeType] = v
	}
	if v := strings.TrimSpace(rec.Date); v != "" {
		details[common.PropDate] = v
	}
	if v := strings.TrimSpace(rec.Station); v != "" {
		details[common.PropStation] = v
	}
	return details
}
