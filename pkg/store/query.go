package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/entrhq/formflow/pkg/flow"
)

// SortOrder selects how Query orders flows.
type SortOrder string

const (
	SortRecent SortOrder = "recent" // createdAt, newest first
	SortName   SortOrder = "name"
	SortUsage  SortOrder = "usage" // playCount, highest first
)

// ParseSortOrder validates a sort order name. The empty string means
// SortRecent.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(s)) {
	case "", SortRecent:
		return SortRecent, nil
	case SortName:
		return SortName, nil
	case SortUsage:
		return SortUsage, nil
	default:
		return "", fmt.Errorf("unknown sort order %q (want recent, name or usage)", s)
	}
}

// ListOptions narrows and orders a listing.
type ListOptions struct {
	Sort SortOrder
	// Domain is a glob over the flow's domain with '.' as separator, so
	// "*.example.com" matches one subdomain level and "**.example.com"
	// any depth.
	Domain string
	// Search is a case-insensitive substring matched against name or
	// domain.
	Search string
}

// Query lists the flows in s that match opts, ordered by opts.Sort.
func Query(ctx context.Context, s FlowStore, opts ListOptions) ([]*flow.Record, error) {
	order, err := ParseSortOrder(string(opts.Sort))
	if err != nil {
		return nil, err
	}
	var domain glob.Glob
	if opts.Domain != "" {
		domain, err = glob.Compile(strings.ToLower(opts.Domain), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid domain pattern '%s': %w", opts.Domain, err)
		}
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(opts.Search))
	out := make([]*flow.Record, 0, len(all))
	for _, r := range all {
		if domain != nil && !domain.Match(strings.ToLower(r.Domain)) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Name), search) &&
			!strings.Contains(strings.ToLower(r.Domain), search) {
			continue
		}
		out = append(out, r)
	}
	Sort(out, order)
	return out, nil
}

// Sort orders flows in place. Ties fall back to ID so output is stable
// across directory orderings.
func Sort(flows []*flow.Record, order SortOrder) {
	var less func(a, b *flow.Record) int
	switch order {
	case SortName:
		col := collate.New(language.Und, collate.IgnoreCase)
		less = func(a, b *flow.Record) int { return col.CompareString(a.Name, b.Name) }
	case SortUsage:
		less = func(a, b *flow.Record) int { return b.PlayCount - a.PlayCount }
	default:
		less = func(a, b *flow.Record) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
	sort.SliceStable(flows, func(i, j int) bool {
		if c := less(flows[i], flows[j]); c != 0 {
			return c < 0
		}
		return flows[i].ID < flows[j].ID
	})
}

// FindByName resolves ref to a flow. An exact ID wins, then a
// case-insensitive exact name, then the best fuzzy name match.
func FindByName(ctx context.Context, s FlowStore, ref string) (*flow.Record, error) {
	if ref == "" {
		return nil, ErrNotFound
	}
	if !strings.ContainsAny(ref, "/\\") {
		r, err := s.Get(ctx, ref)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	Sort(all, SortRecent)
	for _, r := range all {
		if strings.EqualFold(r.Name, ref) {
			return r, nil
		}
	}

	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name
	}
	matches := fuzzy.Find(ref, names)
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return all[matches[0].Index], nil
}

// MatchURL returns the flows whose domain occurs in pageURL, most used
// first.
func MatchURL(flows []*flow.Record, pageURL string) []*flow.Record {
	out := []*flow.Record{}
	for _, r := range flows {
		if r.Domain != "" && strings.Contains(pageURL, r.Domain) {
			out = append(out, r)
		}
	}
	Sort(out, SortUsage)
	return out
}

// SecondsPerAction is the manual effort one replayed action saves.
const SecondsPerAction = 2

// Stats summarizes a flow library.
type Stats struct {
	TotalFlows   int `json:"totalFlows"`
	TotalActions int `json:"totalActions"`
	TotalPlays   int `json:"totalPlays"`
	MinutesSaved int `json:"minutesSaved"`
}

// Summarize computes library statistics. Time saved counts every action
// of every play of each flow.
func Summarize(flows []*flow.Record) Stats {
	var st Stats
	seconds := 0
	for _, r := range flows {
		st.TotalFlows++
		st.TotalActions += len(r.Actions)
		st.TotalPlays += r.PlayCount
		seconds += len(r.Actions) * r.PlayCount * SecondsPerAction
	}
	st.MinutesSaved = int(math.Round(float64(seconds) / 60))
	return st
}
