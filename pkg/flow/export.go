package flow

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ExportVersion is written to every export document.
const ExportVersion = "1.0"

// ExportDocument is the file format used to move flows between installs.
type ExportDocument struct {
	Version    string    `json:"version"`
	ExportDate time.Time `json:"exportDate"`
	Flows      []*Record `json:"flows"`
}

// NewExport wraps flows in an export document stamped with the current time.
func NewExport(flows []*Record) *ExportDocument {
	if flows == nil {
		flows = []*Record{}
	}
	return &ExportDocument{
		Version:    ExportVersion,
		ExportDate: timeNow().UTC(),
		Flows:      flows,
	}
}

// Encode writes the document as indented JSON.
func (d *ExportDocument) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// DecodeExport reads an export document. A document without a flows array
// is rejected.
func DecodeExport(r io.Reader) (*ExportDocument, error) {
	var raw struct {
		Version    string          `json:"version"`
		ExportDate time.Time       `json:"exportDate"`
		Flows      json.RawMessage `json:"flows"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	if len(raw.Flows) == 0 || raw.Flows[0] != '[' {
		return nil, fmt.Errorf("invalid export file: flows array is missing")
	}

	doc := &ExportDocument{Version: raw.Version, ExportDate: raw.ExportDate}
	if err := json.Unmarshal(raw.Flows, &doc.Flows); err != nil {
		return nil, fmt.Errorf("failed to decode exported flows: %w", err)
	}
	return doc, nil
}

// MergeImport returns the incoming records whose IDs are not already in
// existing, preserving incoming order. Duplicate IDs within incoming are
// only taken once, and records failing validation are skipped.
func MergeImport(existing, incoming []*Record) []*Record {
	seen := make(map[string]bool, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.ID] = true
	}
	var added []*Record
	for _, r := range incoming {
		if r == nil || r.Validate() != nil || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		added = append(added, r)
	}
	return added
}
