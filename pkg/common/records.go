package common

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// StringList accepts either a single string or a list of strings when
// decoded from JSON or YAML.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = many
	return nil
}

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*l = many
		return nil
	default:
		return fmt.Errorf("expected string or list of strings, got yaml kind %d", value.Kind)
	}
}

// CaseReport is the structured output of report extraction.
type CaseReport struct {
	CaseID       string     `json:"caseId,omitempty" yaml:"caseId"`
	CrimeType    string     `json:"crimeType,omitempty" yaml:"crimeType"`
	Date         string     `json:"date,omitempty" yaml:"date"`
	Station      string     `json:"station,omitempty" yaml:"station"`
	Suspects     StringList `json:"suspects,omitempty" yaml:"suspects"`
	Vehicles     StringList `json:"vehicles,omitempty" yaml:"vehicles"`
	VehicleModel string     `json:"vehicleModel,omitempty" yaml:"vehicleModel"`
	Phones       StringList `json:"phones,omitempty" yaml:"phones"`
}

// CallRecord is one call-detail row.
type CallRecord struct {
	Source          string `json:"source" yaml:"source" validate:"required"`
	Destination     string `json:"destination" yaml:"destination" validate:"required"`
	Timestamp       string `json:"timestamp,omitempty" yaml:"timestamp"`
	DurationSeconds *int   `json:"durationSeconds,omitempty" yaml:"durationSeconds" validate:"omitempty,min=0"`
}

// TransactionRecord is one bank statement row.
type TransactionRecord struct {
	Date        string `json:"date" yaml:"date"`
	Amount      string `json:"amount" yaml:"amount" validate:"required"`
	Description string `json:"description" yaml:"description"`
}

// PlateDetection is the output of image text recognition. Plate wins over
// RawTextFragments when both are set.
type PlateDetection struct {
	Plate            string   `json:"plate,omitempty" yaml:"plate"`
	RawTextFragments []string `json:"rawTextFragments,omitempty" yaml:"rawTextFragments"`
	Source           string   `json:"source,omitempty" yaml:"source"`
}

// RecordBatch groups heterogeneous records that are ingested together,
// optionally anchored to a target case.
type RecordBatch struct {
	LinkCaseID      string              `json:"linkCaseId,omitempty" yaml:"linkCaseId"`
	CaseReports     []CaseReport        `json:"caseReports,omitempty" yaml:"caseReports"`
	CallRecords     []CallRecord        `json:"callRecords,omitempty" yaml:"callRecords"`
	Transactions    []TransactionRecord `json:"transactions,omitempty" yaml:"transactions"`
	PlateDetections []PlateDetection    `json:"plateDetections,omitempty" yaml:"plateDetections"`
}

// Len returns the number of records in the batch.
func (b RecordBatch) Len() int {
	return len(b.CaseReports) + len(b.CallRecords) + len(b.Transactions) + len(b.PlateDetections)
}

// DecodeRecordBatch decodes a batch file. Names ending in .yaml or .yml are
// read as YAML, everything else as JSON.
func DecodeRecordBatch(data []byte, name string) (RecordBatch, error) {
	var batch RecordBatch
	var err error
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &batch)
	default:
		err = json.Unmarshal(data, &batch)
	}
	if err != nil {
		return RecordBatch{}, fmt.Errorf("failed to decode batch %s: %w", name, err)
	}
	return batch, nil
}

// Record kinds reported in MergeResult.
const (
	KindCaseReport     = "case_report"
	KindCallRecord     = "call_record"
	KindTransaction    = "transaction"
	KindPlateDetection = "plate_detection"
)

// MergeStatus is the per-record outcome of a merge.
type MergeStatus string

const (
	// StatusMerged means at least one graph operation was applied.
	StatusMerged MergeStatus = "merged"
	// StatusNoop means nothing valid was left after normalization.
	StatusNoop MergeStatus = "noop"
	// StatusSkipped means the record was malformed.
	StatusSkipped MergeStatus = "skipped"
)

// MergeResult reports what a single record merge did.
type MergeResult struct {
	Kind         string      `json:"kind"`
	Index        int         `json:"index"`
	Status       MergeStatus `json:"status"`
	CaseID       string      `json:"case_id,omitempty"`
	Degraded     bool        `json:"degraded,omitempty"`
	NodesCreated int         `json:"nodes_created"`
	EdgesCreated int         `json:"edges_created"`
	Reason       string      `json:"reason,omitempty"`
}

// SuspectRank is one row of the risk ranking.
type SuspectRank struct {
	Rank        int      `json:"rank"`
	SuspectName string   `json:"suspectName"`
	Score       int      `json:"score"`
	Reasoning   string   `json:"reasoning"`
	CaseCount   int      `json:"caseCount"`
	AssetCount  int      `json:"assetCount"`
	Cases       []string `json:"cases"`
}

// Dossier is the aggregated profile of one entity. Badge is nil when the
// entity carries no severity marker.
type Dossier struct {
	Title   string            `json:"title"`
	Badge   *string           `json:"badge"`
	Details map[string]string `json:"details"`
}
