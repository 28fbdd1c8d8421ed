package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/entrhq/formflow/pkg/flow"
)

// Export writes every flow in s as an export document, newest first.
func Export(ctx context.Context, s FlowStore, w io.Writer) (int, error) {
	flows, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	Sort(flows, SortRecent)
	if err := flow.NewExport(flows).Encode(w); err != nil {
		return 0, err
	}
	return len(flows), nil
}

// Import reads an export document and creates the flows whose IDs are not
// already stored. It returns the flows it added.
func Import(ctx context.Context, s FlowStore, r io.Reader) ([]*flow.Record, error) {
	doc, err := flow.DecodeExport(r)
	if err != nil {
		return nil, err
	}
	existing, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var added []*flow.Record
	for _, rec := range flow.MergeImport(existing, doc.Flows) {
		if rec.Actions == nil {
			rec.Actions = flow.Actions{}
		}
		err := s.Create(ctx, rec)
		if errors.Is(err, ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("import flow %s: %w", rec.ID, err)
		}
		added = append(added, rec)
	}
	return added, nil
}
