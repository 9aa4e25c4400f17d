package analytics

import (
	"sort"
)

// MinConditionSample is the smallest group size a verdict is issued for
const MinConditionSample = 5

// Verdict classifies the expectancy delta a condition produces
type Verdict string

const (
	VerdictNonNegotiable Verdict = "Non-Negotiable"
	VerdictStrongEdge    Verdict = "Strong Edge"
	VerdictHelpful       Verdict = "Helpful"
	VerdictNeutral       Verdict = "Neutral"
	VerdictHarmful       Verdict = "Harmful"
	VerdictAvoid         Verdict = "Avoid"
	VerdictInsufficient  Verdict = "Insufficient Data"
)

// Verdict thresholds in R. Bands are half-open and do not overlap.
const (
	nonNegotiableDelta = 0.30
	strongEdgeDelta    = 0.15
	helpfulDelta       = 0.05
	neutralFloor       = -0.05
	harmfulFloor       = -0.15
)

// VerdictFor buckets an expectancy delta (present minus absent, in R)
func VerdictFor(delta float64) Verdict {
	switch {
	case delta >= nonNegotiableDelta:
		return VerdictNonNegotiable
	case delta >= strongEdgeDelta:
		return VerdictStrongEdge
	case delta >= helpfulDelta:
		return VerdictHelpful
	case delta > neutralFloor:
		return VerdictNeutral
	case delta > harmfulFloor:
		return VerdictHarmful
	default:
		return VerdictAvoid
	}
}

// VerdictRank orders verdicts from worst (0) to best. Insufficient data is -1.
func VerdictRank(v Verdict) int {
	switch v {
	case VerdictAvoid:
		return 0
	case VerdictHarmful:
		return 1
	case VerdictNeutral:
		return 2
	case VerdictHelpful:
		return 3
	case VerdictStrongEdge:
		return 4
	case VerdictNonNegotiable:
		return 5
	default:
		return -1
	}
}

// ConditionResult compares trades with and without one condition
type ConditionResult struct {
	Condition         string  `json:"condition"`
	PresentTrades     int     `json:"present_trades"`
	AbsentTrades      int     `json:"absent_trades"`
	PresentWinRate    float64 `json:"present_win_rate"`
	AbsentWinRate     float64 `json:"absent_win_rate"`
	PresentExpectancy float64 `json:"present_expectancy"`
	AbsentExpectancy  float64 `json:"absent_expectancy"`
	Delta             float64 `json:"delta"`
	Verdict           Verdict `json:"verdict"`
}

// DefaultConditions lists the condition keys analysed when none are given
var DefaultConditions = []string{
	"rules_followed",
	"confirmation_present",
	"liquidity_sweep",
	"bias_aligned",
	"inducement_present",
	"kill_zone",
	"news_day",
	"high_impact_news",
	"entered_early",
	"entered_late",
	"moved_stop",
	"exited_early",
	"scaled_out",
	"fomo",
	"hesitation",
	"revenge_trade",
	"fatigue",
}

// ConditionImpact splits classified, closed records on each condition and
// issues a verdict for the expectancy delta. Records that did not record a
// condition are left out of both groups for that condition. Results are
// sorted best verdict first; insufficient samples go last.
func ConditionImpact(records []TradeRecord, conditions []string) []ConditionResult {
	if len(conditions) == 0 {
		conditions = DefaultConditions
	}
	eligible := ClassifiedOnly(ClosedOnly(records))

	results := make([]ConditionResult, 0, len(conditions))
	for _, name := range conditions {
		var present, absent []TradeRecord
		for _, r := range eligible {
			v, ok := r.Conditions[name]
			if !ok || v == nil {
				continue
			}
			if *v {
				present = append(present, r)
			} else {
				absent = append(absent, r)
			}
		}

		p, a := Edge(present), Edge(absent)
		res := ConditionResult{
			Condition:         name,
			PresentTrades:     p.TotalTrades,
			AbsentTrades:      a.TotalTrades,
			PresentWinRate:    p.WinRate,
			AbsentWinRate:     a.WinRate,
			PresentExpectancy: p.Expectancy,
			AbsentExpectancy:  a.Expectancy,
			Delta:             round4(p.Expectancy - a.Expectancy),
		}
		if p.TotalTrades < MinConditionSample || a.TotalTrades < MinConditionSample {
			res.Verdict = VerdictInsufficient
		} else {
			res.Verdict = VerdictFor(res.Delta)
		}
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := VerdictRank(results[i].Verdict), VerdictRank(results[j].Verdict)
		if ri != rj {
			return ri > rj
		}
		return results[i].Delta > results[j].Delta
	})
	return results
}
