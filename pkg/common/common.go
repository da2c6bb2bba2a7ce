package common

// Node labels of the case-hub schema.
const (
	LabelCase        = "Case"
	LabelPerson      = "Person"
	LabelPhone       = "Phone"
	LabelVehicle     = "Vehicle"
	LabelTransaction = "Transaction"
	LabelEvidence    = "Evidence"
)

// Relationship types. Edges are directed and unique per
// (source, target, type).
const (
	RelHasSuspect      = "HAS_SUSPECT"
	RelInvolvedVehicle = "INVOLVED_VEHICLE"
	RelLinkedPhone     = "LINKED_PHONE"
	RelCalled          = "CALLED"
	RelOwnsOrDrives    = "OWNS_OR_DRIVES"
	RelCapturedIn      = "CAPTURED_IN"
	RelSentTo          = "SENT_TO"
	RelPartOf          = "PART_OF"
	RelLinkedTo        = "LINKED_TO"
)

// Case statuses. A case only ever moves from active to archived.
const (
	CaseStatusActive   = "ACTIVE"
	CaseStatusArchived = "ARCHIVED"
)

// EvidenceTypeCCTV is the type tag of evidence produced by plate detection.
const EvidenceTypeCCTV = "CCTV_Image"

// Node property keys.
const (
	PropCrimeType   = "crime_type"
	PropDate        = "date"
	PropStation     = "station"
	PropStatus      = "status"
	PropDegraded    = "degraded"
	PropPhone       = "phone"
	PropOrigin      = "origin"
	PropRole        = "role"
	PropModel       = "model"
	PropAmount      = "amount"
	PropDescription = "description"
	PropType        = "type"
	PropText        = "text"
	PropSource      = "source"
	PropTimestamp   = "timestamp"
	PropDuration    = "duration"
)

// Origins record which record type first created a Person or Phone.
const (
	OriginCaseReport = "case_report"
	OriginCallRecord = "call_record"
)

// CaseLinkRelTypes are the relationship types that tie an entity to a case.
var CaseLinkRelTypes = []string{
	RelHasSuspect,
	RelInvolvedVehicle,
	RelLinkedPhone,
	RelPartOf,
	RelLinkedTo,
}

// CaseScopeRelTypes are traversed when collecting the cluster around a case.
var CaseScopeRelTypes = []string{
	RelHasSuspect,
	RelInvolvedVehicle,
	RelLinkedPhone,
	RelPartOf,
	RelLinkedTo,
	RelCalled,
	RelSentTo,
}

// Node is a vertex of the investigation graph. Key is the canonical merge
// key, unique per label.
type Node struct {
	ID         int64             `json:"id"`
	Label      string            `json:"label"`
	Key        string            `json:"key"`
	Properties map[string]string `json:"properties"`
}

// Prop returns a property value or "" when unset.
func (n Node) Prop(key string) string {
	if n.Properties == nil {
		return ""
	}
	return n.Properties[key]
}

// Edge is a directed relationship between two nodes.
type Edge struct {
	ID         int64             `json:"id"`
	Type       string            `json:"type"`
	SourceID   int64             `json:"source_id"`
	TargetID   int64             `json:"target_id"`
	Properties map[string]string `json:"properties"`
}

// GraphStats summarizes the graph contents.
type GraphStats struct {
	Nodes       int64            `json:"nodes"`
	Edges       int64            `json:"edges"`
	NodesByType map[string]int64 `json:"nodes_by_label"`
	EdgesByType map[string]int64 `json:"edges_by_type"`
}

// CallLogEntry is one CALLED edge resolved to its endpoint keys.
type CallLogEntry struct {
	Source      string `json:"source"`
	SourceLabel string `json:"source_label"`
	Target      string `json:"target"`
	TargetLabel string `json:"target_label"`
	Duration    string `json:"duration,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}
