package pgx

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/intellicase/backend/internal/db"
	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/store"
)

// newTestStorage connects to DATABASE_URL and starts from an empty graph.
func newTestStorage(t *testing.T) *GraphDBStorage {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := db.Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(pool.Close)

	s := NewGraphDBStorageWithConnection(pool)
	if err := s.Wipe(context.Background()); err != nil {
		t.Fatalf("Wipe() error = %v", err)
	}
	return s
}

func mergeNode(t *testing.T, s *GraphDBStorage, m store.NodeMerge) (common.Node, bool) {
	t.Helper()
	var n common.Node
	var created bool
	err := s.Update(context.Background(), func(ctx context.Context, tx store.GraphTx) error {
		var err error
		n, created, err = tx.MergeNode(ctx, m)
		return err
	})
	if err != nil {
		t.Fatalf("MergeNode(%s, %q) error = %v", m.Label, m.Key, err)
	}
	return n, created
}

func mergeEdge(t *testing.T, s *GraphDBStorage, m store.EdgeMerge) bool {
	t.Helper()
	var created bool
	err := s.Update(context.Background(), func(ctx context.Context, tx store.GraphTx) error {
		var err error
		created, err = tx.MergeEdge(ctx, m)
		return err
	})
	if err != nil {
		t.Fatalf("MergeEdge(%s) error = %v", m.Type, err)
	}
	return created
}

func keys(nodes []common.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Key)
	}
	return out
}

func TestMergeNodeCreatedFlag(t *testing.T) {
	s := newTestStorage(t)

	first, created := mergeNode(t, s, store.NodeMerge{
		Label:    common.LabelPerson,
		Key:      "Ravi Kumar",
		OnCreate: map[string]string{common.PropPhone: "9876543210"},
	})
	if !created {
		t.Fatalf("first merge must report created")
	}

	second, created := mergeNode(t, s, store.NodeMerge{
		Label:    common.LabelPerson,
		Key:      "Ravi Kumar",
		OnCreate: map[string]string{common.PropPhone: "9000000000"},
		Set:      map[string]string{common.PropStatus: common.CaseStatusActive},
	})
	if created {
		t.Fatalf("second merge must not report created")
	}
	if second.ID != first.ID {
		t.Fatalf("merge created a second node: %d != %d", second.ID, first.ID)
	}
	want := map[string]string{common.PropPhone: "9876543210", common.PropStatus: common.CaseStatusActive}
	if !reflect.DeepEqual(second.Properties, want) {
		t.Fatalf("properties = %v, want %v", second.Properties, want)
	}

	err := s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error {
		if _, err := tx.GetNode(ctx, common.LabelPerson, "Bala"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("GetNode(unknown) error = %v, want ErrNotFound", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestMergeEdgeCreatedFlagAndMissingEndpoint(t *testing.T) {
	s := newTestStorage(t)
	a, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelPerson, Key: "A"})
	phone, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelPhone, Key: "9123456789"})

	edge := store.EdgeMerge{Type: common.RelCalled, SourceID: a.ID, TargetID: phone.ID}
	if !mergeEdge(t, s, edge) {
		t.Fatalf("first edge merge must report created")
	}
	if mergeEdge(t, s, edge) {
		t.Fatalf("repeat edge merge must not report created")
	}

	err := s.Update(context.Background(), func(ctx context.Context, tx store.GraphTx) error {
		_, err := tx.MergeEdge(ctx, store.EdgeMerge{Type: common.RelCalled, SourceID: a.ID, TargetID: phone.ID + 1000000})
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("MergeEdge(missing target) error = %v, want ErrNotFound", err)
	}

	err = s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error {
		edges, err := tx.ListEdges(ctx, common.RelCalled)
		if err != nil {
			return err
		}
		if len(edges) != 1 {
			t.Fatalf("expected 1 CALLED edge, got %+v", edges)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestReachableRespectsHopBound(t *testing.T) {
	s := newTestStorage(t)
	c, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelCase, Key: "FIR_1"})
	a, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelPerson, Key: "A"})
	phone, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelPhone, Key: "9876543210"})
	b, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelPerson, Key: "B"})
	far, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelPerson, Key: "Far"})
	v, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelVehicle, Key: "MH12AB1234"})

	mergeEdge(t, s, store.EdgeMerge{Type: common.RelHasSuspect, SourceID: c.ID, TargetID: a.ID})
	mergeEdge(t, s, store.EdgeMerge{Type: common.RelLinkedPhone, SourceID: c.ID, TargetID: phone.ID})
	mergeEdge(t, s, store.EdgeMerge{Type: common.RelCalled, SourceID: b.ID, TargetID: phone.ID})
	mergeEdge(t, s, store.EdgeMerge{Type: common.RelCalled, SourceID: far.ID, TargetID: b.ID})
	mergeEdge(t, s, store.EdgeMerge{Type: common.RelOwnsOrDrives, SourceID: a.ID, TargetID: v.ID})

	tests := []struct {
		name string
		hops int
		want []string
	}{
		{"OneHop", 1, []string{"A"}},
		{"TwoHops", 2, []string{"A", "B"}},
		{"ThreeHops", 3, []string{"A", "B", "Far"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error {
				persons, err := tx.Reachable(ctx, c.ID, store.TraversalFilter{
					RelTypes: common.CaseScopeRelTypes,
					MaxHops:  tc.hops,
					Label:    common.LabelPerson,
				})
				if err != nil {
					return err
				}
				if got := keys(persons); !reflect.DeepEqual(got, tc.want) {
					t.Fatalf("Reachable(%d) = %v, want %v", tc.hops, got, tc.want)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("View() error = %v", err)
			}
		})
	}
}

func TestFindNodesByKeyMatch(t *testing.T) {
	s := newTestStorage(t)
	mergeNode(t, s, store.NodeMerge{Label: common.LabelVehicle, Key: "MH12HG9999"})
	mergeNode(t, s, store.NodeMerge{Label: common.LabelVehicle, Key: "KA01AB1234"})
	mergeNode(t, s, store.NodeMerge{Label: common.LabelPerson, Key: "Ravi Kumar"})

	tests := []struct {
		name  string
		label string
		text  string
		mode  store.KeyMatch
		want  []string
	}{
		{"OverlapKeyInText", common.LabelVehicle, "XXMH12HG9999YY", store.KeyOverlaps, []string{"MH12HG9999"}},
		{"OverlapTextInKey", common.LabelVehicle, "HG9999", store.KeyOverlaps, []string{"MH12HG9999"}},
		{"OverlapNone", common.LabelVehicle, "ZZZZZZZZ", store.KeyOverlaps, []string{}},
		{"ContainedIn", common.LabelPerson, "paid to Ravi Kumar today", store.KeyContainedIn, []string{"Ravi Kumar"}},
		{"ContainedInIsOneWay", common.LabelPerson, "Ravi", store.KeyContainedIn, []string{}},
		{"CaseSensitive", common.LabelPerson, "paid to ravi kumar", store.KeyContainedIn, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error {
				nodes, err := tx.FindNodesByKeyMatch(ctx, tc.label, tc.text, tc.mode)
				if err != nil {
					return err
				}
				if got := keys(nodes); !reflect.DeepEqual(got, tc.want) {
					t.Fatalf("FindNodesByKeyMatch(%q) = %v, want %v", tc.text, got, tc.want)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("View() error = %v", err)
			}
		})
	}
}
