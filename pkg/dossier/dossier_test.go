package dossier

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/graph"
	"github.com/intellicase/backend/pkg/store"
	"github.com/intellicase/backend/pkg/store/memory"
)

func seed(t *testing.T) *Service {
	t.Helper()
	s := memory.NewGraphMemoryStorage()
	e, err := graph.NewMergeEngine(graph.NewMergeEngineParams{Store: s})
	if err != nil {
		t.Fatalf("NewMergeEngine() error = %v", err)
	}
	ctx := context.Background()
	reports := []common.CaseReport{
		{CaseID: "FIR_1", CrimeType: "Theft", Station: "Kothrud", Suspects: common.StringList{"Ravi Kumar"}, Vehicles: common.StringList{"MH12HG9999"}, VehicleModel: "Swift", Phones: common.StringList{"9876543210"}},
		{CaseID: "FIR_2", Suspects: common.StringList{"Ravi Kumar"}, Vehicles: common.StringList{"MH12HG9999"}},
		{CaseID: "FIR_3", Suspects: common.StringList{"Amit", "Bala"}, Phones: common.StringList{"9000000001"}},
	}
	for _, rec := range reports {
		if _, err := e.MergeCaseReport(ctx, rec, graph.MergeOptions{}); err != nil {
			t.Fatalf("MergeCaseReport() error = %v", err)
		}
	}
	if _, err := e.MergeCallRecord(ctx, common.CallRecord{Source: "9876543210", Destination: "9123456789"}, graph.MergeOptions{}); err != nil {
		t.Fatalf("MergeCallRecord() error = %v", err)
	}
	return NewService(s)
}

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Person", common.LabelPerson},
		{"suspect", common.LabelPerson},
		{"VEHICLE", common.LabelVehicle},
		{"phone", common.LabelPhone},
		{"Case", common.LabelCase},
	}
	for _, tc := range tests {
		got, err := ParseEntityType(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("ParseEntityType(%q) = %q, %v", tc.in, got, err)
		}
	}
	if _, err := ParseEntityType("Location"); !errors.Is(err, ErrUnknownEntityType) {
		t.Fatalf("expected ErrUnknownEntityType, got %v", err)
	}
}

func TestPersonDossier(t *testing.T) {
	svc := seed(t)
	d, err := svc.Get(context.Background(), "Person", "  Ravi   Kumar ")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.Title != "Ravi Kumar" || d.Badge == nil || *d.Badge != BadgeRepeatOffender {
		t.Fatalf("unexpected dossier %+v", d)
	}
	want := map[string]string{
		"Full Name":       "Ravi Kumar",
		"Criminal Record": "Linked to 2 case(s)",
		"Case IDs":        "FIR_1, FIR_2",
		"Key Assets":      "MH12HG9999, 9123456789",
		"Phone":           "9876543210",
	}
	if !reflect.DeepEqual(d.Details, want) {
		t.Fatalf("Details = %v, want %v", d.Details, want)
	}

	amit, err := svc.Get(context.Background(), "Suspect", "Amit")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *amit.Badge != BadgeActiveSuspect || amit.Details["Key Assets"] != "None" {
		t.Fatalf("unexpected dossier %+v", amit)
	}
}

func TestVehicleDossier(t *testing.T) {
	svc := seed(t)
	d, err := svc.Get(context.Background(), "Vehicle", "mh-12-hg-9999")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *d.Badge != BadgeMultipleCrimes {
		t.Fatalf("badge = %q", *d.Badge)
	}
	if d.Details["FIR References"] != "FIR_1, FIR_2" || d.Details["Drivers/Users"] != "Ravi Kumar" || d.Details["Model"] != "Swift" {
		t.Fatalf("unexpected details %v", d.Details)
	}
}

func TestPhoneDossier(t *testing.T) {
	svc := seed(t)

	linked, err := svc.Get(context.Background(), "Phone", "+91 90000 00001")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *linked.Badge != BadgeLinkedToCase || linked.Details["Linked Cases"] != "FIR_3" {
		t.Fatalf("unexpected dossier %+v", linked)
	}

	placeholder, err := svc.Get(context.Background(), "Phone", "9123456789")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *placeholder.Badge != BadgeUnlinked || placeholder.Details["Call Contacts"] != "Ravi Kumar" {
		t.Fatalf("unexpected dossier %+v", placeholder)
	}
}

func TestCaseDossier(t *testing.T) {
	svc := seed(t)
	d, err := svc.Get(context.Background(), "Case", "FIR_1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.Badge != nil {
		t.Fatalf("case dossier must not carry a badge, got %q", *d.Badge)
	}
	want := map[string]string{
		"FIR ID":         "FIR_1",
		"Incident Date":  "N/A",
		"Police Station": "Kothrud",
		"Primary Crime":  "Theft",
		"Status":         common.CaseStatusActive,
	}
	if !reflect.DeepEqual(d.Details, want) {
		t.Fatalf("Details = %v, want %v", d.Details, want)
	}
}

func TestGetUnknownEntity(t *testing.T) {
	svc := seed(t)
	tests := []struct {
		name, typ, id string
		want          error
	}{
		{"MissingPerson", "Person", "Nobody", store.ErrNotFound},
		{"RejectedPlate", "Vehicle", "ABCDEF", store.ErrNotFound},
		{"ServiceNumber", "Phone", "100", store.ErrNotFound},
		{"UnknownType", "Crime", "FIR_1", ErrUnknownEntityType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Get(context.Background(), tc.typ, tc.id); !errors.Is(err, tc.want) {
				t.Fatalf("Get() error = %v, want %v", err, tc.want)
			}
		})
	}
}
