package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/edgelog/internal/models"
)

// Filter narrows a record list before analysis. Zero values match everything.
type Filter struct {
	From      *time.Time                  `form:"from" time_format:"2006-01-02" json:"from,omitempty"`
	To        *time.Time                  `form:"to" time_format:"2006-01-02" json:"to,omitempty"`
	Setups    []string                    `form:"setup" json:"setups,omitempty"`
	Sessions  []string                    `form:"session" json:"sessions,omitempty"`
	Symbols   []string                    `form:"symbol" json:"symbols,omitempty"`
	Direction models.Direction            `form:"direction" json:"direction,omitempty"`
	Source    Source                      `form:"source" json:"source,omitempty"`
	MinStatus models.ClassificationStatus `form:"min_status" json:"min_status,omitempty"`
}

// Apply returns the records matching every set criterion. To is inclusive of
// the whole day when it carries no time component.
func (f Filter) Apply(records []TradeRecord) []TradeRecord {
	to := f.To
	if to != nil && to.Hour() == 0 && to.Minute() == 0 && to.Second() == 0 {
		end := to.Add(24 * time.Hour)
		to = &end
	}

	setups := toSet(f.Setups)
	sessions := toSet(f.Sessions)
	symbols := toSet(f.Symbols)

	out := make([]TradeRecord, 0, len(records))
	for _, r := range records {
		if f.From != nil && r.EntryTime.Before(*f.From) {
			continue
		}
		if to != nil && !r.EntryTime.Before(*to) {
			continue
		}
		if len(setups) > 0 && !setups[strings.ToLower(r.Setup)] {
			continue
		}
		if len(sessions) > 0 && !sessions[strings.ToLower(r.Session)] {
			continue
		}
		if len(symbols) > 0 && !symbols[strings.ToLower(r.Symbol)] {
			continue
		}
		if f.Direction != "" && r.Direction != f.Direction {
			continue
		}
		if f.Source != "" && r.Source != f.Source {
			continue
		}
		if f.MinStatus != "" && r.Status.Rank() < f.MinStatus.Rank() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Key is a canonical string for the filter, stable across slice ordering
func (f Filter) Key() string {
	var b strings.Builder
	if f.From != nil {
		fmt.Fprintf(&b, "from=%d;", f.From.Unix())
	}
	if f.To != nil {
		fmt.Fprintf(&b, "to=%d;", f.To.Unix())
	}
	writeList(&b, "setup", f.Setups)
	writeList(&b, "session", f.Sessions)
	writeList(&b, "symbol", f.Symbols)
	if f.Direction != "" {
		fmt.Fprintf(&b, "dir=%s;", f.Direction)
	}
	if f.Source != "" {
		fmt.Fprintf(&b, "src=%s;", f.Source)
	}
	if f.MinStatus != "" {
		fmt.Fprintf(&b, "status=%s;", f.MinStatus)
	}
	return b.String()
}

func writeList(b *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	sorted := make([]string, len(values))
	for i, v := range values {
		sorted[i] = strings.ToLower(v)
	}
	sort.Strings(sorted)
	fmt.Fprintf(b, "%s=%s;", name, strings.Join(sorted, ","))
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[strings.ToLower(v)] = true
		}
	}
	return set
}
