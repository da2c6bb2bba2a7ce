package graph

import (
	"context"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/identity"
	"github.com/intellicase/backend/pkg/store"
)

// mergeSession wraps one store transaction and counts what it creates.
type mergeSession struct {
	tx      store.GraphTx
	result  *common.MergeResult
	touched []int64
}

func newMergeSession(tx store.GraphTx, result *common.MergeResult) *mergeSession {
	return &mergeSession{tx: tx, result: result}
}

func (s *mergeSession) node(ctx context.Context, m store.NodeMerge) (common.Node, error) {
	n, created, err := s.tx.MergeNode(ctx, m)
	if err != nil {
		return common.Node{}, err
	}
	if created {
		s.result.NodesCreated++
	}
	return n, nil
}

func (s *mergeSession) edge(ctx context.Context, relType string, from, to int64, set map[string]string) error {
	created, err := s.tx.MergeEdge(ctx, store.EdgeMerge{
		Type:     relType,
		SourceID: from,
		TargetID: to,
		Set:      set,
	})
	if err != nil {
		return err
	}
	if created {
		s.result.EdgesCreated++
	}
	return nil
}

// touch records a primary entity of the record for case linking.
func (s *mergeSession) touch(ids ...int64) {
	s.touched = append(s.touched, ids...)
}

// resolvePhone maps a canonical number to a graph node. A Person carrying
// the number wins; otherwise LinkSmart creates a Phone placeholder and
// LinkStrict reports no node.
func (s *mergeSession) resolvePhone(ctx context.Context, phone string, policy LinkPolicy, origin string) (common.Node, bool, error) {
	persons, err := s.tx.FindNodesByProperty(ctx, common.LabelPerson, common.PropPhone, phone)
	if err != nil {
		return common.Node{}, false, err
	}
	if len(persons) > 0 {
		return persons[0], true, nil
	}
	if policy == LinkStrict {
		return common.Node{}, false, nil
	}

	n, err := s.node(ctx, store.NodeMerge{
		Label:    common.LabelPhone,
		Key:      phone,
		OnCreate: map[string]string{common.PropOrigin: origin},
	})
	if err != nil {
		return common.Node{}, false, err
	}
	return n, true, nil
}

// linkToCase anchors every touched entity to the target case. The record's
// own case, when it has one, is linked with LINKED_TO and everything else
// with PART_OF. Nothing is linked when the target is the record's own case.
func (s *mergeSession) linkToCase(ctx context.Context, target string, own *common.Node) error {
	target, ok := identity.NormalizeName(target)
	if !ok {
		return nil
	}
	if own != nil && own.Key == target {
		return nil
	}

	caseNode, err := s.node(ctx, store.NodeMerge{
		Label:    common.LabelCase,
		Key:      target,
		OnCreate: map[string]string{common.PropStatus: common.CaseStatusArchived},
	})
	if err != nil {
		return err
	}

	if own != nil {
		if err := s.edge(ctx, common.RelLinkedTo, own.ID, caseNode.ID, nil); err != nil {
			return err
		}
	}

	seen := make(map[int64]struct{}, len(s.touched))
	for _, id := range s.touched {
		if id == caseNode.ID {
			continue
		}
		if own != nil && id == own.ID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if err := s.edge(ctx, common.RelPartOf, id, caseNode.ID, nil); err != nil {
			return err
		}
	}
	return nil
}
