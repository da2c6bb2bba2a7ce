// Package ranking scores suspects by cross-case linkage and asset
// connectivity. Scores are computed on demand from the current graph and
// never cached between calls.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/identity"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/store"
)

const (
	BaseScore   = 10
	CaseWeight  = 50
	AssetWeight = 10

	DefaultLimit   = 5
	DefaultMaxHops = 2
)

// Score computes the risk score of a suspect. Only cases beyond the first
// add to the score.
func Score(caseCount, assetCount int) int {
	return BaseScore + max(caseCount-1, 0)*CaseWeight + assetCount*AssetWeight
}

// Ranker computes suspect rankings. Each call reads its own snapshot, so a
// ranking requested after a merge returned always sees that merge.
type Ranker struct {
	store   store.GraphStorage
	limit   int
	maxHops int
}

// NewRankerParams configures a Ranker. Limit defaults to 5 and MaxHops to 2;
// MaxHops is capped at 2.
type NewRankerParams struct {
	Store   store.GraphStorage
	Limit   int
	MaxHops int
}

func NewRanker(params NewRankerParams) (*Ranker, error) {
	if params.Store == nil {
		return nil, errors.New("ranker requires a store")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	hops := params.MaxHops
	if hops <= 0 || hops > DefaultMaxHops {
		hops = DefaultMaxHops
	}
	return &Ranker{store: params.Store, limit: limit, maxHops: hops}, nil
}

type candidate struct {
	person common.Node
	cases  []string
	assets int
	score  int
}

// Rank returns the top suspects. With an empty caseID every Person is a
// candidate; otherwise only Persons reachable from that case within the hop
// cap. An unknown case yields an empty ranking.
func (r *Ranker) Rank(ctx context.Context, caseID string) ([]common.SuspectRank, error) {
	if strings.TrimSpace(caseID) == "" {
		return r.rank(ctx, "")
	}
	key, ok := identity.NormalizeName(caseID)
	if !ok {
		return []common.SuspectRank{}, nil
	}
	return r.rank(ctx, key)
}

func (r *Ranker) rank(ctx context.Context, caseID string) ([]common.SuspectRank, error) {
	var candidates []candidate
	err := r.store.View(ctx, func(ctx context.Context, tx store.GraphReader) error {
		persons, err := r.candidatePersons(ctx, tx, caseID)
		if err != nil {
			return err
		}

		candidates = make([]candidate, 0, len(persons))
		for _, p := range persons {
			c, err := scorePerson(ctx, tx, p)
			if err != nil {
				return fmt.Errorf("score %q: %w", p.Key, err)
			}
			if c.score <= 0 {
				continue
			}
			candidates = append(candidates, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > r.limit {
		candidates = candidates[:r.limit]
	}

	ranks := make([]common.SuspectRank, 0, len(candidates))
	for i, c := range candidates {
		ranks = append(ranks, common.SuspectRank{
			Rank:        i + 1,
			SuspectName: c.person.Key,
			Score:       c.score,
			Reasoning:   Reasoning(c.cases, c.assets),
			CaseCount:   len(c.cases),
			AssetCount:  c.assets,
			Cases:       c.cases,
		})
	}
	logger.Debug("[Ranking] Ranked suspects", "case_id", caseID, "ranked", len(ranks))
	return ranks, nil
}

func (r *Ranker) candidatePersons(ctx context.Context, tx store.GraphReader, caseID string) ([]common.Node, error) {
	if caseID == "" {
		return tx.ListNodes(ctx, common.LabelPerson)
	}

	hub, err := tx.GetNode(ctx, common.LabelCase, caseID)
	if errors.Is(err, store.ErrNotFound) {
		return []common.Node{}, nil
	}
	if err != nil {
		return nil, err
	}
	return tx.Reachable(ctx, hub.ID, store.TraversalFilter{
		RelTypes: common.CaseScopeRelTypes,
		MaxHops:  r.maxHops,
		Label:    common.LabelPerson,
	})
}

func scorePerson(ctx context.Context, tx store.GraphReader, p common.Node) (candidate, error) {
	cases, err := tx.Neighbors(ctx, p.ID, store.NeighborFilter{
		RelTypes: common.CaseLinkRelTypes,
		Labels:   []string{common.LabelCase},
	})
	if err != nil {
		return candidate{}, err
	}
	assets, err := tx.Neighbors(ctx, p.ID, store.NeighborFilter{
		ExcludeLabels: []string{common.LabelCase, common.LabelPerson},
	})
	if err != nil {
		return candidate{}, err
	}

	ids := make([]string, 0, len(cases))
	for _, c := range cases {
		ids = append(ids, c.Key)
	}
	return candidate{
		person: p,
		cases:  ids,
		assets: len(assets),
		score:  Score(len(ids), len(assets)),
	}, nil
}

// Reasoning explains a score in one line.
func Reasoning(cases []string, assets int) string {
	reasons := make([]string, 0, 2)
	switch {
	case len(cases) > 1:
		reasons = append(reasons, fmt.Sprintf("High risk: linked to %d cases (%s)", len(cases), strings.Join(cases, ", ")))
	case len(cases) == 1:
		reasons = append(reasons, "Linked to case "+cases[0])
	}
	if assets == 1 {
		reasons = append(reasons, "Connected to 1 asset")
	} else if assets > 1 {
		reasons = append(reasons, fmt.Sprintf("Connected to %d assets", assets))
	}
	if len(reasons) == 0 {
		return "No case or asset links"
	}
	return strings.Join(reasons, " | ")
}
