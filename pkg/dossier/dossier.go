// Package dossier assembles the profile of a single entity from its one-hop
// neighborhood.
package dossier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/identity"
	"github.com/intellicase/backend/pkg/store"
)

var ErrUnknownEntityType = errors.New("unknown entity type")

// Badges, from high to low severity per entity type.
const (
	BadgeRepeatOffender = "REPEAT OFFENDER"
	BadgeActiveSuspect  = "ACTIVE SUSPECT"
	BadgeAssociate      = "ASSOCIATE"

	BadgeMultipleCrimes = "USED IN MULTIPLE CRIMES"
	BadgeLinkedToCase   = "LINKED TO CASE"
	BadgeUnlinked       = "UNLINKED"

	BadgeBurnerPhone = "BURNER PHONE (SUSPECTED)"
)

const none = "None"

// Service answers dossier queries.
type Service struct {
	store store.GraphStorage
}

func NewService(s store.GraphStorage) *Service {
	return &Service{store: s}
}

// ParseEntityType maps a type tag to a node label. "Suspect" is accepted
// for Person.
func ParseEntityType(tag string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "person", "suspect":
		return common.LabelPerson, nil
	case "vehicle":
		return common.LabelVehicle, nil
	case "phone":
		return common.LabelPhone, nil
	case "case", "fir":
		return common.LabelCase, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, tag)
	}
}

// Get returns the dossier of the entity with the given type tag and id. The
// id is normalized like the merge key of that type. Unknown entities return
// store.ErrNotFound.
func (s *Service) Get(ctx context.Context, entityType, id string) (common.Dossier, error) {
	label, err := ParseEntityType(entityType)
	if err != nil {
		return common.Dossier{}, err
	}
	key, ok := canonicalKey(label, id)
	if !ok {
		return common.Dossier{}, fmt.Errorf("%s %q: %w", label, id, store.ErrNotFound)
	}

	var d common.Dossier
	err = s.store.View(ctx, func(ctx context.Context, tx store.GraphReader) error {
		n, err := tx.GetNode(ctx, label, key)
		if err != nil {
			return err
		}
		switch label {
		case common.LabelPerson:
			d, err = personDossier(ctx, tx, n)
		case common.LabelVehicle:
			d, err = vehicleDossier(ctx, tx, n)
		case common.LabelPhone:
			d, err = phoneDossier(ctx, tx, n)
		default:
			d = caseDossier(n)
		}
		return err
	})
	return d, err
}

func canonicalKey(label, id string) (string, bool) {
	switch label {
	case common.LabelPerson:
		return identity.NormalizeName(id)
	case common.LabelVehicle:
		return identity.NormalizePlate(id)
	case common.LabelPhone:
		return identity.NormalizePhone(id)
	default:
		return identity.NormalizeName(id)
	}
}

func personDossier(ctx context.Context, tx store.GraphReader, n common.Node) (common.Dossier, error) {
	cases, err := tx.Neighbors(ctx, n.ID, store.NeighborFilter{
		RelTypes: common.CaseLinkRelTypes,
		Labels:   []string{common.LabelCase},
	})
	if err != nil {
		return common.Dossier{}, err
	}
	assets, err := tx.Neighbors(ctx, n.ID, store.NeighborFilter{
		ExcludeLabels: []string{common.LabelCase, common.LabelPerson},
	})
	if err != nil {
		return common.Dossier{}, err
	}

	badge := severity(len(cases), BadgeRepeatOffender, BadgeActiveSuspect, BadgeAssociate)
	details := map[string]string{
		"Full Name":       n.Key,
		"Criminal Record": fmt.Sprintf("Linked to %d case(s)", len(cases)),
		"Case IDs":        joinKeys(cases),
		"Key Assets":      joinKeys(assets),
	}
	if phone := n.Prop(common.PropPhone); phone != "" {
		details["Phone"] = phone
	}
	return common.Dossier{Title: n.Key, Badge: &badge, Details: details}, nil
}

func vehicleDossier(ctx context.Context, tx store.GraphReader, n common.Node) (common.Dossier, error) {
	cases, err := tx.Neighbors(ctx, n.ID, store.NeighborFilter{Labels: []string{common.LabelCase}})
	if err != nil {
		return common.Dossier{}, err
	}
	drivers, err := tx.Neighbors(ctx, n.ID, store.NeighborFilter{Labels: []string{common.LabelPerson}})
	if err != nil {
		return common.Dossier{}, err
	}

	badge := severity(len(cases), BadgeMultipleCrimes, BadgeLinkedToCase, BadgeUnlinked)
	details := map[string]string{
		"License Plate":  n.Key,
		"Involved In":    fmt.Sprintf("%d case(s)", len(cases)),
		"FIR References": joinKeys(cases),
		"Drivers/Users":  joinKeys(drivers),
	}
	if model := n.Prop(common.PropModel); model != "" {
		details["Model"] = model
	}
	return common.Dossier{Title: n.Key, Badge: &badge, Details: details}, nil
}

func phoneDossier(ctx context.Context, tx store.GraphReader, n common.Node) (common.Dossier, error) {
	cases, err := tx.Neighbors(ctx, n.ID, store.NeighborFilter{Labels: []string{common.LabelCase}})
	if err != nil {
		return common.Dossier{}, err
	}
	contacts, err := tx.Neighbors(ctx, n.ID, store.NeighborFilter{RelTypes: []string{common.RelCalled}})
	if err != nil {
		return common.Dossier{}, err
	}

	badge := severity(len(cases), BadgeBurnerPhone, BadgeLinkedToCase, BadgeUnlinked)
	return common.Dossier{
		Title: n.Key,
		Badge: &badge,
		Details: map[string]string{
			"Number":        n.Key,
			"Linked Cases":  joinKeys(cases),
			"Call Contacts": joinKeys(contacts),
		},
	}, nil
}

func caseDossier(n common.Node) common.Dossier {
	return common.Dossier{
		Title: n.Key,
		Details: map[string]string{
			"FIR ID":         n.Key,
			"Incident Date":  orNA(n.Prop(common.PropDate)),
			"Police Station": orNA(n.Prop(common.PropStation)),
			"Primary Crime":  orNA(n.Prop(common.PropCrimeType)),
			"Status":         orNA(n.Prop(common.PropStatus)),
		},
	}
}

func severity(caseCount int, high, medium, low string) string {
	switch {
	case caseCount > 1:
		return high
	case caseCount == 1:
		return medium
	default:
		return low
	}
}

func joinKeys(nodes []common.Node) string {
	if len(nodes) == 0 {
		return none
	}
	keys := make([]string, 0, len(nodes))
	for _, n := range nodes {
		keys = append(keys, n.Key)
	}
	return strings.Join(keys, ", ")
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
