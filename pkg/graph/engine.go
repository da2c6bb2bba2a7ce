// Package graph implements the merge engine that turns typed investigative
// records into merge-or-create operations on the entity graph.
//
// Every record is merged as one atomic store session. A record whose fields
// all fail normalization produces no operations and reports StatusNoop; a
// structurally malformed record reports StatusSkipped. Store failures are
// returned as errors and never retried here.
package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/intellicase/backend/pkg/store"

	"github.com/go-playground/validator"
)

// LinkPolicy selects how call endpoints are resolved to graph nodes.
type LinkPolicy string

const (
	// LinkSmart uses an existing Person with the number, else a Phone placeholder.
	LinkSmart LinkPolicy = "smart"
	// LinkStrict only uses an existing Person with the number and drops the call otherwise.
	LinkStrict LinkPolicy = "strict"
)

// ParseLinkPolicy parses a policy name. An empty name selects LinkSmart.
func ParseLinkPolicy(name string) (LinkPolicy, error) {
	switch LinkPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", LinkSmart:
		return LinkSmart, nil
	case LinkStrict:
		return LinkStrict, nil
	default:
		return "", fmt.Errorf("unknown link policy %q", name)
	}
}

const defaultParallel = 4

// MergeEngine applies the per-record merge protocols against a GraphStorage.
//
// A MergeEngine should be created using NewMergeEngine and is safe for
// concurrent use.
type MergeEngine struct {
	store    store.GraphStorage
	policy   LinkPolicy
	parallel int
	validate *validator.Validate
}

// NewMergeEngineParams configures a MergeEngine.
//
// Store is required. LinkPolicy defaults to LinkSmart. Parallel bounds the
// number of records MergeBatch merges at once and defaults to 4.
type NewMergeEngineParams struct {
	Store      store.GraphStorage
	LinkPolicy LinkPolicy
	Parallel   int
}

// MergeOptions carries per-call options. When LinkCaseID is set every
// merged record is additionally anchored to that case.
type MergeOptions struct {
	LinkCaseID string
}

func NewMergeEngine(params NewMergeEngineParams) (*MergeEngine, error) {
	if params.Store == nil {
		return nil, errors.New("merge engine requires a store")
	}
	policy := params.LinkPolicy
	if policy == "" {
		policy = LinkSmart
	}
	if policy != LinkSmart && policy != LinkStrict {
		return nil, fmt.Errorf("unknown link policy %q", policy)
	}
	parallel := params.Parallel
	if parallel <= 0 {
		parallel = defaultParallel
	}

	return &MergeEngine{
		store:    params.Store,
		policy:   policy,
		parallel: parallel,
		validate: validator.New(),
	}, nil
}

// LinkPolicy returns the configured call endpoint policy.
func (e *MergeEngine) LinkPolicy() LinkPolicy {
	return e.policy
}
