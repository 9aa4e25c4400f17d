package analytics

import (
	"sort"
	"time"

	"github.com/edgelog/internal/models"
)

// RevengeWindow is how soon after a loss a new entry counts as revenge
const RevengeWindow = 30 * time.Minute

// MistakeStat is the frequency and cost of one mistake tag
type MistakeStat struct {
	Tag       string  `json:"tag"`
	Count     int     `json:"count"`
	Frequency float64 `json:"frequency"` // percent of classified trades
	TotalR    float64 `json:"total_r"`
	AvgR      float64 `json:"avg_r"`
}

// TradeRef identifies a trade across both journal schemas
type TradeRef struct {
	ID     uint   `json:"id"`
	Source Source `json:"source"`
}

// OvertradingDay is a day on which the trade cap was exceeded
type OvertradingDay struct {
	Day    string `json:"day"`
	Trades int    `json:"trades"`
}

// MistakeReport gathers the behavioural error patterns in a journal
type MistakeReport struct {
	ClassifiedTrades   int              `json:"classified_trades"`
	TradesWithMistakes int              `json:"trades_with_mistakes"`
	Mistakes           []MistakeStat    `json:"mistakes"`
	CleanExpectancy    float64          `json:"clean_expectancy"`
	MistakeExpectancy  float64          `json:"mistake_expectancy"`
	CostR              float64          `json:"cost_r"` // R given up by trades with mistakes
	RevengeTrades      []TradeRef       `json:"revenge_trades"`
	OvertradingDays    []OvertradingDay `json:"overtrading_days"`
	RuleBreakRate      float64          `json:"rule_break_rate"`
	RuleBreakR         float64          `json:"rule_break_r"`
}

// DetectMistakes reports tag frequency and R cost over classified trades,
// and revenge entries and overtrading days over all trades. maxPerDay <= 0
// disables the overtrading check.
func DetectMistakes(records []TradeRecord, maxPerDay int, loc *time.Location) MistakeReport {
	if loc == nil {
		loc = time.UTC
	}
	rep := MistakeReport{RevengeTrades: []TradeRef{}, OvertradingDays: []OvertradingDay{}, Mistakes: []MistakeStat{}}

	classified := ClassifiedOnly(ClosedOnly(records))
	rep.ClassifiedTrades = len(classified)

	tags := make(map[string]*MistakeStat)
	var clean, dirty []TradeRecord
	var ruleKnown, ruleBroken int
	var ruleBreakR float64
	for _, r := range classified {
		if len(r.Mistakes) == 0 {
			clean = append(clean, r)
		} else {
			dirty = append(dirty, r)
			seen := make(map[string]bool, len(r.Mistakes))
			for _, tag := range r.Mistakes {
				if tag == "" || seen[tag] {
					continue
				}
				seen[tag] = true
				st, ok := tags[tag]
				if !ok {
					st = &MistakeStat{Tag: tag}
					tags[tag] = st
				}
				st.Count++
				st.TotalR += r.R
			}
		}

		if r.RulesFollowed != nil {
			ruleKnown++
			if !*r.RulesFollowed {
				ruleBroken++
				ruleBreakR += r.R
			}
		}
	}

	for _, st := range tags {
		st.Frequency = round2(safeDiv(float64(st.Count), float64(len(classified))) * 100)
		st.AvgR = round4(safeDiv(st.TotalR, float64(st.Count)))
		st.TotalR = round4(st.TotalR)
		rep.Mistakes = append(rep.Mistakes, *st)
	}
	sort.Slice(rep.Mistakes, func(i, j int) bool {
		if rep.Mistakes[i].TotalR != rep.Mistakes[j].TotalR {
			return rep.Mistakes[i].TotalR < rep.Mistakes[j].TotalR
		}
		return rep.Mistakes[i].Tag < rep.Mistakes[j].Tag
	})

	rep.TradesWithMistakes = len(dirty)
	cleanEdge, dirtyEdge := Edge(clean), Edge(dirty)
	rep.CleanExpectancy = cleanEdge.Expectancy
	rep.MistakeExpectancy = dirtyEdge.Expectancy
	if len(dirty) > 0 {
		rep.CostR = round4((cleanEdge.AvgR - dirtyEdge.AvgR) * float64(len(dirty)))
	}
	rep.RuleBreakRate = round2(safeDiv(float64(ruleBroken), float64(ruleKnown)) * 100)
	rep.RuleBreakR = round4(ruleBreakR)

	rep.RevengeTrades = revengeTrades(records)
	rep.OvertradingDays = overtradingDays(records, maxPerDay, loc)
	return rep
}

// revengeTrades returns trades entered within RevengeWindow of a losing
// trade's exit, plus those self-reported as revenge.
func revengeTrades(records []TradeRecord) []TradeRef {
	ordered := Chronological(records)
	ids := []TradeRef{}
	var lastLossExit *time.Time
	for _, r := range ordered {
		flagged := r.RevengeTrade
		if lastLossExit != nil && !r.EntryTime.Before(*lastLossExit) && r.EntryTime.Sub(*lastLossExit) <= RevengeWindow {
			flagged = true
		}
		if flagged {
			ids = append(ids, TradeRef{ID: r.ID, Source: r.Source})
		}
		if r.Result == models.ResultLoss {
			exit := r.EntryTime
			if r.ExitTime != nil {
				exit = *r.ExitTime
			}
			lastLossExit = &exit
		}
	}
	return ids
}

func overtradingDays(records []TradeRecord, maxPerDay int, loc *time.Location) []OvertradingDay {
	days := []OvertradingDay{}
	if maxPerDay <= 0 {
		return days
	}
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.EntryTime.In(loc).Format("2006-01-02")]++
	}
	for day, n := range counts {
		if n > maxPerDay {
			days = append(days, OvertradingDay{Day: day, Trades: n})
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days
}
