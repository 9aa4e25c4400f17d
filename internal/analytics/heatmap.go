package analytics

import (
	"fmt"
	"time"

	"github.com/edgelog/internal/models"
)

// HeatmapOffset is the distance from the mean score that marks a bucket
// strong or weak
const HeatmapOffset = 0.10

// Strength classifies a heatmap bucket against the sample mean
type Strength string

const (
	StrengthStrong  Strength = "strong"
	StrengthNeutral Strength = "neutral"
	StrengthWeak    Strength = "weak"
	StrengthNoData  Strength = "no_data"
)

// HeatmapCell is one time, weekday or session bucket
type HeatmapCell struct {
	Key        string   `json:"key"`
	Trades     int      `json:"trades"`
	WinRate    float64  `json:"win_rate"`
	Expectancy float64  `json:"expectancy"`
	TotalR     float64  `json:"total_r"`
	Score      float64  `json:"score"`
	Strength   Strength `json:"strength"`
}

// Heatmap is a scored set of buckets along one dimension
type Heatmap struct {
	Dimension string        `json:"dimension"`
	Cells     []HeatmapCell `json:"cells"`
	MeanScore float64       `json:"mean_score"`
	Best      string        `json:"best,omitempty"`
	Worst     string        `json:"worst,omitempty"`
}

// HeatmapSet bundles the three dominance heatmaps
type HeatmapSet struct {
	Time    Heatmap `json:"time"`
	Weekday Heatmap `json:"weekday"`
	Session Heatmap `json:"session"`
}

// Heatmaps builds all three heatmaps in the given location
func Heatmaps(records []TradeRecord, loc *time.Location) HeatmapSet {
	return HeatmapSet{
		Time:    TimeHeatmap(records, loc),
		Weekday: WeekdayHeatmap(records, loc),
		Session: SessionHeatmap(records),
	}
}

// TimeHeatmap buckets closed trades into 48 half-hour slots by entry time
func TimeHeatmap(records []TradeRecord, loc *time.Location) Heatmap {
	if loc == nil {
		loc = time.UTC
	}
	keys := make([]string, 48)
	for i := range keys {
		keys[i] = fmt.Sprintf("%02d:%02d", i/2, (i%2)*30)
	}
	return buildHeatmap("time", keys, records, func(r TradeRecord) string {
		t := r.EntryTime.In(loc)
		return keys[t.Hour()*2+t.Minute()/30]
	})
}

// WeekdayHeatmap buckets closed trades by entry weekday, Monday first
func WeekdayHeatmap(records []TradeRecord, loc *time.Location) Heatmap {
	if loc == nil {
		loc = time.UTC
	}
	keys := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	return buildHeatmap("weekday", keys, records, func(r TradeRecord) string {
		return r.EntryTime.In(loc).Weekday().String()
	})
}

// SessionHeatmap buckets closed trades by trading session. Records without a
// session are placed by their UTC entry hour.
func SessionHeatmap(records []TradeRecord) Heatmap {
	keys := []string{models.SessionAsia, models.SessionLondon, models.SessionNewYork, models.SessionOffHours}
	return buildHeatmap("session", keys, records, func(r TradeRecord) string {
		if r.Session != "" {
			return r.Session
		}
		return models.SessionFor(r.EntryTime)
	})
}

// buildHeatmap scores each bucket as 0.5*winRate + 0.5*normalised
// expectancy, where expectancy is min-max scaled across populated buckets.
func buildHeatmap(dimension string, keys []string, records []TradeRecord, bucket func(TradeRecord) string) Heatmap {
	groups := make(map[string][]TradeRecord, len(keys))
	for _, r := range ClosedOnly(records) {
		k := bucket(r)
		groups[k] = append(groups[k], r)
	}

	hm := Heatmap{Dimension: dimension, Cells: make([]HeatmapCell, 0, len(keys))}
	stats := make([]EdgeStats, len(keys))
	minExp, maxExp := 0.0, 0.0
	populated := 0
	for i, k := range keys {
		stats[i] = Edge(groups[k])
		if stats[i].TotalTrades == 0 {
			continue
		}
		if populated == 0 || stats[i].Expectancy < minExp {
			minExp = stats[i].Expectancy
		}
		if populated == 0 || stats[i].Expectancy > maxExp {
			maxExp = stats[i].Expectancy
		}
		populated++
	}

	var scoreSum float64
	for i, k := range keys {
		s := stats[i]
		cell := HeatmapCell{
			Key:        k,
			Trades:     s.TotalTrades,
			WinRate:    s.WinRate,
			Expectancy: s.Expectancy,
			TotalR:     s.TotalR,
			Strength:   StrengthNoData,
		}
		if s.TotalTrades > 0 {
			norm := 0.5
			if maxExp > minExp {
				norm = (s.Expectancy - minExp) / (maxExp - minExp)
			}
			cell.Score = round4(0.5*(s.WinRate/100) + 0.5*norm)
			scoreSum += cell.Score
		}
		hm.Cells = append(hm.Cells, cell)
	}

	if populated == 0 {
		return hm
	}
	hm.MeanScore = round4(scoreSum / float64(populated))

	var best, worst *HeatmapCell
	for i := range hm.Cells {
		c := &hm.Cells[i]
		if c.Trades == 0 {
			continue
		}
		switch {
		case c.Score > hm.MeanScore+HeatmapOffset:
			c.Strength = StrengthStrong
		case c.Score < hm.MeanScore-HeatmapOffset:
			c.Strength = StrengthWeak
		default:
			c.Strength = StrengthNeutral
		}
		if best == nil || c.Score > best.Score {
			best = c
		}
		if worst == nil || c.Score < worst.Score {
			worst = c
		}
	}
	hm.Best = best.Key
	hm.Worst = worst.Key
	return hm
}
