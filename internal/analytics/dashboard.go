package analytics

import (
	"time"

	"github.com/edgelog/internal/models"
)

// DashboardOptions tune the parts of the dashboard that depend on the user
type DashboardOptions struct {
	Location        *time.Location
	MaxTradesPerDay int
}

// StatusBreakdown counts records per classification status
type StatusBreakdown struct {
	LegacyUnclassified  int `json:"legacy_unclassified"`
	PartiallyClassified int `json:"partially_classified"`
	FullyClassified     int `json:"fully_classified"`
	Open                int `json:"open"`
}

// Dashboard is the full analytics view of one journal
type Dashboard struct {
	Edge       EdgeStats         `json:"edge"`
	Streaks    Streaks           `json:"streaks"`
	Equity     []EquityPoint     `json:"equity"`
	Validation ValidationResult  `json:"validation"`
	Conditions []ConditionResult `json:"conditions"`
	Heatmaps   HeatmapSet        `json:"heatmaps"`
	Setups     SetupMatrix       `json:"setups"`
	Mistakes   MistakeReport     `json:"mistakes"`
	Psychology PsychologyReport  `json:"psychology"`
	Status     StatusBreakdown   `json:"status"`
}

// BuildDashboard runs every analysis over the same record list
func BuildDashboard(records []TradeRecord, opts DashboardOptions) Dashboard {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return Dashboard{
		Edge:       Edge(records),
		Streaks:    ComputeStreaks(records),
		Equity:     EquityCurve(records),
		Validation: ValidateStrategy(records),
		Conditions: ConditionImpact(records, nil),
		Heatmaps:   Heatmaps(records, loc),
		Setups:     SetupGradeMatrix(records),
		Mistakes:   DetectMistakes(records, opts.MaxTradesPerDay, loc),
		Psychology: BuildPsychologyReport(records),
		Status:     CountStatuses(records),
	}
}

// CountStatuses tallies classification statuses and open trades
func CountStatuses(records []TradeRecord) StatusBreakdown {
	var b StatusBreakdown
	for _, r := range records {
		if !r.Closed() {
			b.Open++
		}
		switch r.Status {
		case models.StatusFullyClassified:
			b.FullyClassified++
		case models.StatusPartiallyClassified:
			b.PartiallyClassified++
		default:
			b.LegacyUnclassified++
		}
	}
	return b
}
