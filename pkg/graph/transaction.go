package graph

import (
	"context"
	"strings"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/store"
)

var signatureEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

// TransactionSignature derives the merge key of a transaction. Two rows with
// the same date, amount and description are the same transaction. Fields are
// joined with "|"; backslashes and pipes inside a field are escaped.
func TransactionSignature(rec common.TransactionRecord) string {
	fields := []string{
		strings.TrimSpace(rec.Date),
		strings.TrimSpace(rec.Amount),
		strings.TrimSpace(rec.Description),
	}
	for i, f := range fields {
		fields[i] = signatureEscaper.Replace(f)
	}
	return strings.Join(fields, "|")
}

// MergeTransaction merges a bank transaction and links it with SENT_TO to
// every Person whose name occurs in the description. The match is a
// case-sensitive substring test and links all matches.
func (e *MergeEngine) MergeTransaction(ctx context.Context, rec common.TransactionRecord, opts MergeOptions) (common.MergeResult, error) {
	result := common.MergeResult{Kind: common.KindTransaction}

	if err := e.validate.Struct(rec); err != nil {
		result.Status = common.StatusSkipped
		result.Reason = err.Error()
		logger.Debug("[Merge] Skipping malformed transaction", "err", err)
		return result, nil
	}
	if strings.TrimSpace(rec.Amount) == "" {
		result.Status = common.StatusSkipped
		result.Reason = "amount is blank"
		return result, nil
	}

	signature := TransactionSignature(rec)
	description := strings.TrimSpace(rec.Description)

	var recipients int
	err := e.store.Update(ctx, func(ctx context.Context, tx store.GraphTx) error {
		result.NodesCreated, result.EdgesCreated = 0, 0
		s := newMergeSession(tx, &result)

		txNode, err := s.node(ctx, store.NodeMerge{
			Label: common.LabelTransaction,
			Key:   signature,
			OnCreate: map[string]string{
				common.PropDate:        strings.TrimSpace(rec.Date),
				common.PropAmount:      strings.TrimSpace(rec.Amount),
				common.PropDescription: description,
			},
		})
		if err != nil {
			return err
		}
		s.touch(txNode.ID)

		persons, err := tx.FindNodesByKeyMatch(ctx, common.LabelPerson, description, store.KeyContainedIn)
		if err != nil {
			return err
		}
		recipients = len(persons)
		for _, p := range persons {
			if err := s.edge(ctx, common.RelSentTo, txNode.ID, p.ID, nil); err != nil {
				return err
			}
		}

		return s.linkToCase(ctx, opts.LinkCaseID, nil)
	})
	if err != nil {
		return result, err
	}

	if recipients > 1 {
		logger.Debug("[Merge] Transaction description matches several persons", "signature", signature, "matches", recipients)
	}
	result.Status = common.StatusMerged
	return result, nil
}
