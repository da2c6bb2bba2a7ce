package memory

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/store"
)

func mergeNode(t *testing.T, s *GraphMemoryStorage, m store.NodeMerge) (common.Node, bool) {
	t.Helper()
	var node common.Node
	var created bool
	err := s.Update(context.Background(), func(ctx context.Context, tx store.GraphTx) error {
		var err error
		node, created, err = tx.MergeNode(ctx, m)
		return err
	})
	if err != nil {
		t.Fatalf("MergeNode(%+v) error = %v", m, err)
	}
	return node, created
}

func mergeEdge(t *testing.T, s *GraphMemoryStorage, m store.EdgeMerge) bool {
	t.Helper()
	var created bool
	err := s.Update(context.Background(), func(ctx context.Context, tx store.GraphTx) error {
		var err error
		created, err = tx.MergeEdge(ctx, m)
		return err
	})
	if err != nil {
		t.Fatalf("MergeEdge(%+v) error = %v", m, err)
	}
	return created
}

func TestMergeNodeOnCreateAndSet(t *testing.T) {
	s := NewGraphMemoryStorage()

	first, created := mergeNode(t, s, store.NodeMerge{
		Label:    common.LabelCase,
		Key:      "FIR_1",
		OnCreate: map[string]string{common.PropStatus: common.CaseStatusActive},
		Set:      map[string]string{common.PropStation: "Kothrud"},
	})
	if !created {
		t.Fatalf("expected first merge to create the node")
	}

	second, created := mergeNode(t, s, store.NodeMerge{
		Label:    common.LabelCase,
		Key:      "FIR_1",
		OnCreate: map[string]string{common.PropStatus: common.CaseStatusArchived},
		Set:      map[string]string{common.PropStation: "Shivajinagar"},
	})
	if created {
		t.Fatalf("expected second merge to match the existing node")
	}
	if first.ID != second.ID {
		t.Fatalf("node id changed: %d != %d", first.ID, second.ID)
	}
	if got := second.Prop(common.PropStatus); got != common.CaseStatusActive {
		t.Fatalf("OnCreate must not overwrite: status = %q", got)
	}
	if got := second.Prop(common.PropStation); got != "Shivajinagar" {
		t.Fatalf("Set must overwrite: station = %q", got)
	}
}

func TestMergeEdgeIsUniquePerTriple(t *testing.T) {
	s := NewGraphMemoryStorage()
	a, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelPerson, Key: "A"})
	b, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelPerson, Key: "B"})

	if !mergeEdge(t, s, store.EdgeMerge{Type: common.RelCalled, SourceID: a.ID, TargetID: b.ID}) {
		t.Fatalf("expected first edge merge to create")
	}
	if mergeEdge(t, s, store.EdgeMerge{Type: common.RelCalled, SourceID: a.ID, TargetID: b.ID, Set: map[string]string{common.PropDuration: "30"}}) {
		t.Fatalf("expected second edge merge to match")
	}
	if !mergeEdge(t, s, store.EdgeMerge{Type: common.RelCalled, SourceID: b.ID, TargetID: a.ID}) {
		t.Fatalf("reverse direction is a distinct edge")
	}

	var edges []common.Edge
	_ = s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error {
		var err error
		edges, err = tx.ListEdges(ctx, common.RelCalled)
		return err
	})
	if len(edges) != 2 {
		t.Fatalf("expected 2 CALLED edges, got %d", len(edges))
	}
	if got := edges[0].Properties[common.PropDuration]; got != "30" {
		t.Fatalf("expected duration to be set on merge, got %q", got)
	}
}

func TestMergeEdgeMissingEndpoint(t *testing.T) {
	s := NewGraphMemoryStorage()
	a, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelPerson, Key: "A"})

	err := s.Update(context.Background(), func(ctx context.Context, tx store.GraphTx) error {
		_, err := tx.MergeEdge(ctx, store.EdgeMerge{Type: common.RelCalled, SourceID: a.ID, TargetID: 999})
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := NewGraphMemoryStorage()
	existing, _ := mergeNode(t, s, store.NodeMerge{
		Label: common.LabelPerson,
		Key:   "Ravi Kumar",
		Set:   map[string]string{common.PropPhone: "9876543210"},
	})

	boom := errors.New("boom")
	err := s.Update(context.Background(), func(ctx context.Context, tx store.GraphTx) error {
		if _, _, err := tx.MergeNode(ctx, store.NodeMerge{
			Label: common.LabelPerson,
			Key:   "Ravi Kumar",
			Set:   map[string]string{common.PropPhone: "1111111111"},
		}); err != nil {
			return err
		}
		c, _, err := tx.MergeNode(ctx, store.NodeMerge{Label: common.LabelCase, Key: "FIR_9"})
		if err != nil {
			return err
		}
		if _, err := tx.MergeEdge(ctx, store.EdgeMerge{Type: common.RelHasSuspect, SourceID: c.ID, TargetID: existing.ID}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error {
		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		if stats.Nodes != 1 || stats.Edges != 0 {
			t.Fatalf("expected rollback to leave 1 node and 0 edges, got %+v", stats)
		}
		if _, err := tx.GetNode(ctx, common.LabelCase, "FIR_9"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected rolled back case to be gone, got %v", err)
		}
		person, err := tx.GetNode(ctx, common.LabelPerson, "Ravi Kumar")
		if err != nil {
			return err
		}
		if got := person.Prop(common.PropPhone); got != "9876543210" {
			t.Fatalf("expected phone to be restored, got %q", got)
		}
		neighbors, err := tx.Neighbors(ctx, person.ID, store.NeighborFilter{})
		if err != nil {
			return err
		}
		if len(neighbors) != 0 {
			t.Fatalf("expected adjacency to be restored, got %v", neighbors)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestReturnedNodesAreCopies(t *testing.T) {
	s := NewGraphMemoryStorage()
	n, _ := mergeNode(t, s, store.NodeMerge{Label: common.LabelPerson, Key: "A", Set: map[string]string{"x": "1"}})
	n.Properties["x"] = "mutated"

	_ = s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error {
		got, err := tx.GetNodeByID(ctx, n.ID)
		if err != nil {
			t.Fatalf("GetNodeByID() error = %v", err)
		}
		if got.Prop("x") != "1" {
			t.Fatalf("store state leaked through returned node: %q", got.Prop("x"))
		}
		return nil
	})
}

func TestReachableAndNeighbors(t *testing.T) {
	s := NewGraphMemoryStorage()
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

	err := s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error {
		persons, err := tx.Reachable(ctx, c.ID, store.TraversalFilter{
			RelTypes: common.CaseScopeRelTypes,
			MaxHops:  2,
			Label:    common.LabelPerson,
		})
		if err != nil {
			return err
		}
		var keys []string
		for _, p := range persons {
			keys = append(keys, p.Key)
		}
		if !reflect.DeepEqual(keys, []string{"A", "B"}) {
			t.Fatalf("Reachable persons = %v, want [A B]", keys)
		}

		assets, err := tx.Neighbors(ctx, a.ID, store.NeighborFilter{
			ExcludeLabels: []string{common.LabelCase, common.LabelPerson},
		})
		if err != nil {
			return err
		}
		if len(assets) != 1 || assets[0].ID != v.ID {
			t.Fatalf("Neighbors assets = %v, want vehicle", assets)
		}

		cases, err := tx.Neighbors(ctx, a.ID, store.NeighborFilter{
			RelTypes: common.CaseLinkRelTypes,
			Labels:   []string{common.LabelCase},
		})
		if err != nil {
			return err
		}
		if len(cases) != 1 || cases[0].Key != "FIR_1" {
			t.Fatalf("Neighbors cases = %v, want FIR_1", cases)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestFindNodesByKeyMatch(t *testing.T) {
	s := NewGraphMemoryStorage()
	mergeNode(t, s, store.NodeMerge{Label: common.LabelVehicle, Key: "MH12AB1234"})
	mergeNode(t, s, store.NodeMerge{Label: common.LabelPerson, Key: "Ravi"})

	_ = s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error {
		got, _ := tx.FindNodesByKeyMatch(ctx, common.LabelVehicle, "XMH12AB1234Y", store.KeyOverlaps)
		if len(got) != 1 {
			t.Fatalf("expected overlap match, got %v", got)
		}
		got, _ = tx.FindNodesByKeyMatch(ctx, common.LabelVehicle, "AB12", store.KeyOverlaps)
		if len(got) != 1 {
			t.Fatalf("expected fragment match, got %v", got)
		}
		got, _ = tx.FindNodesByKeyMatch(ctx, common.LabelPerson, "UPI to Ravi", store.KeyContainedIn)
		if len(got) != 1 {
			t.Fatalf("expected contained match, got %v", got)
		}
		got, _ = tx.FindNodesByKeyMatch(ctx, common.LabelPerson, "UPI to ravi", store.KeyContainedIn)
		if len(got) != 0 {
			t.Fatalf("expected case-sensitive miss, got %v", got)
		}
		return nil
	})
}

func TestWipeAndClose(t *testing.T) {
	s := NewGraphMemoryStorage()
	mergeNode(t, s, store.NodeMerge{Label: common.LabelPerson, Key: "A"})

	if err := s.Wipe(context.Background()); err != nil {
		t.Fatalf("Wipe() error = %v", err)
	}
	_ = s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error {
		stats, _ := tx.Stats(ctx)
		if stats.Nodes != 0 || stats.Edges != 0 {
			t.Fatalf("expected empty graph after wipe, got %+v", stats)
		}
		return nil
	})

	_ = s.Close()
	err := s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error { return nil })
	if !errors.Is(err, store.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestConcurrentMergeCreatesOneNode(t *testing.T) {
	s := NewGraphMemoryStorage()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(context.Background(), func(ctx context.Context, tx store.GraphTx) error {
				_, _, err := tx.MergeNode(ctx, store.NodeMerge{Label: common.LabelPerson, Key: "Ravi Kumar"})
				return err
			})
		}()
	}
	wg.Wait()

	_ = s.View(context.Background(), func(ctx context.Context, tx store.GraphReader) error {
		nodes, _ := tx.ListNodes(ctx, common.LabelPerson)
		if len(nodes) != 1 {
			t.Fatalf("expected exactly one node, got %d", len(nodes))
		}
		return nil
	})
}
