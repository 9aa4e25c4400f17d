// Package analytics computes journal statistics over in-memory trade lists.
// Every function here is pure: no storage, no clocks, no globals.
package analytics

import (
	"sort"
	"time"

	"github.com/edgelog/internal/models"
)

// Source tells which journal schema a record came from
type Source string

const (
	SourceLegacy Source = "legacy"
	SourceElite  Source = "elite"
)

// TradeRecord is the schema-independent view analytics work on
type TradeRecord struct {
	ID        uint
	Source    Source
	Symbol    string
	Direction models.Direction
	Setup     string
	Grade     string
	Session   string
	EntryTime time.Time
	ExitTime  *time.Time
	Result    models.TradeResult
	R         float64
	Status    models.ClassificationStatus

	Conditions     map[string]*bool
	Mistakes       []string
	EmotionalState string
	Confidence     *int
	RulesFollowed  *bool
	FOMO           bool
	Hesitation     bool
	RevengeTrade   bool
	Fatigue        bool
	MAER           *float64
	MFER           *float64
}

// Closed reports whether the record has a realised outcome
func (r TradeRecord) Closed() bool {
	return r.Result != models.ResultOpen && r.Result != ""
}

// Classified reports whether the record carries Elite metadata
func (r TradeRecord) Classified() bool {
	return r.Status.Rank() >= models.StatusPartiallyClassified.Rank()
}

// FromTrade converts a legacy trade
func FromTrade(t *models.Trade) TradeRecord {
	rec := TradeRecord{
		ID:             t.ID,
		Source:         SourceLegacy,
		Symbol:         t.Symbol,
		Direction:      t.Direction,
		Setup:          t.Setup,
		Session:        t.Session,
		EntryTime:      t.EntryTime,
		ExitTime:       t.ExitTime,
		Result:         t.Result,
		Status:         t.ClassificationStatus,
		EmotionalState: t.EmotionalState,
	}
	if rec.Status == "" {
		rec.Status = models.StatusLegacyUnclassified
	}
	if t.RMultiple != nil {
		rec.R = *t.RMultiple
	}
	return rec
}

// FromEliteTrade converts an Elite trade
func FromEliteTrade(t *models.EliteTrade) TradeRecord {
	rec := TradeRecord{
		ID:             t.ID,
		Source:         SourceElite,
		Symbol:         t.Symbol,
		Direction:      t.Direction,
		Setup:          t.SetupName,
		Grade:          t.SetupGrade,
		Session:        t.Session,
		EntryTime:      t.EntryTime,
		ExitTime:       t.ExitTime,
		Result:         t.Result,
		Status:         t.ClassificationStatus,
		Conditions:     t.Conditions(),
		Mistakes:       append([]string(nil), t.Mistakes...),
		EmotionalState: t.EmotionalStateBefore,
		Confidence:     t.ConfidenceLevel,
		RulesFollowed:  t.RulesFollowed,
		FOMO:           isTrue(t.FOMO),
		Hesitation:     isTrue(t.Hesitation),
		RevengeTrade:   isTrue(t.RevengeTrade),
		Fatigue:        isTrue(t.Fatigue),
		MAER:           t.MAER,
		MFER:           t.MFER,
	}
	if t.RMultiple != nil {
		rec.R = *t.RMultiple
	}
	return rec
}

// FromTrades converts both schemas into one chronologically sorted list
func FromTrades(legacy []models.Trade, elite []models.EliteTrade) []TradeRecord {
	out := make([]TradeRecord, 0, len(legacy)+len(elite))
	for i := range legacy {
		out = append(out, FromTrade(&legacy[i]))
	}
	for i := range elite {
		out = append(out, FromEliteTrade(&elite[i]))
	}
	return Chronological(out)
}

// Chronological returns a copy sorted by entry time. Ties keep input order.
func Chronological(records []TradeRecord) []TradeRecord {
	out := append([]TradeRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EntryTime.Before(out[j].EntryTime)
	})
	return out
}

// ClosedOnly drops open trades
func ClosedOnly(records []TradeRecord) []TradeRecord {
	out := make([]TradeRecord, 0, len(records))
	for _, r := range records {
		if r.Closed() {
			out = append(out, r)
		}
	}
	return out
}

// ClassifiedOnly keeps partially and fully classified records
func ClassifiedOnly(records []TradeRecord) []TradeRecord {
	out := make([]TradeRecord, 0, len(records))
	for _, r := range records {
		if r.Classified() {
			out = append(out, r)
		}
	}
	return out
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
