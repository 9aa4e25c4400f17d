package analytics

import (
	"sort"
	"strings"
)

// EmotionStat is the edge of trades taken in one emotional state
type EmotionStat struct {
	State      string  `json:"state"`
	Trades     int     `json:"trades"`
	WinRate    float64 `json:"win_rate"`
	Expectancy float64 `json:"expectancy"`
	TotalR     float64 `json:"total_r"`
}

// FlagImpact compares trades with and without a psychological flag
type FlagImpact struct {
	Flag              string  `json:"flag"`
	Trades            int     `json:"trades"`
	WithExpectancy    float64 `json:"with_expectancy"`
	WithoutExpectancy float64 `json:"without_expectancy"`
	Delta             float64 `json:"delta"`
}

// PsychologyReport correlates mental state with results
type PsychologyReport struct {
	ByEmotion             []EmotionStat `json:"by_emotion"`
	BestState             string        `json:"best_state,omitempty"`
	WorstState            string        `json:"worst_state,omitempty"`
	ConfidenceCorrelation float64       `json:"confidence_correlation"`
	ConfidenceSamples     int           `json:"confidence_samples"`
	Flags                 []FlagImpact  `json:"flags"`
}

// BuildPsychologyReport groups closed trades by emotional state (either
// schema), correlates confidence with R and measures the FOMO, hesitation,
// revenge and fatigue flags on classified trades.
func BuildPsychologyReport(records []TradeRecord) PsychologyReport {
	closed := ClosedOnly(records)
	rep := PsychologyReport{ByEmotion: []EmotionStat{}, Flags: []FlagImpact{}}

	groups := make(map[string][]TradeRecord)
	for _, r := range closed {
		state := strings.ToLower(strings.TrimSpace(r.EmotionalState))
		if state == "" {
			continue
		}
		groups[state] = append(groups[state], r)
	}
	for state, recs := range groups {
		e := Edge(recs)
		rep.ByEmotion = append(rep.ByEmotion, EmotionStat{
			State:      state,
			Trades:     e.TotalTrades,
			WinRate:    e.WinRate,
			Expectancy: e.Expectancy,
			TotalR:     e.TotalR,
		})
	}
	sort.Slice(rep.ByEmotion, func(i, j int) bool {
		if rep.ByEmotion[i].Expectancy != rep.ByEmotion[j].Expectancy {
			return rep.ByEmotion[i].Expectancy > rep.ByEmotion[j].Expectancy
		}
		return rep.ByEmotion[i].State < rep.ByEmotion[j].State
	})
	if n := len(rep.ByEmotion); n > 0 {
		rep.BestState = rep.ByEmotion[0].State
		rep.WorstState = rep.ByEmotion[n-1].State
	}

	classified := ClassifiedOnly(closed)
	var xs, ys []float64
	for _, r := range classified {
		if r.Confidence == nil {
			continue
		}
		xs = append(xs, float64(*r.Confidence))
		ys = append(ys, r.R)
	}
	rep.ConfidenceSamples = len(xs)
	rep.ConfidenceCorrelation = Pearson(xs, ys)

	flags := []struct {
		name string
		get  func(TradeRecord) bool
	}{
		{"fomo", func(r TradeRecord) bool { return r.FOMO }},
		{"hesitation", func(r TradeRecord) bool { return r.Hesitation }},
		{"revenge_trade", func(r TradeRecord) bool { return r.RevengeTrade }},
		{"fatigue", func(r TradeRecord) bool { return r.Fatigue }},
	}
	for _, f := range flags {
		var with, without []TradeRecord
		for _, r := range classified {
			if f.get(r) {
				with = append(with, r)
			} else {
				without = append(without, r)
			}
		}
		w, wo := Edge(with), Edge(without)
		rep.Flags = append(rep.Flags, FlagImpact{
			Flag:              f.name,
			Trades:            w.TotalTrades,
			WithExpectancy:    w.Expectancy,
			WithoutExpectancy: wo.Expectancy,
			Delta:             round4(w.Expectancy - wo.Expectancy),
		})
	}
	return rep
}
