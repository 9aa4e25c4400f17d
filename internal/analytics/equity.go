package analytics

import (
	"math"
	"time"

	"github.com/edgelog/internal/models"
)

// EquityPoint is one step of the cumulative-R curve
type EquityPoint struct {
	Index      int       `json:"index"`
	TradeID    uint      `json:"trade_id"`
	Source     Source    `json:"source"`
	Time       time.Time `json:"time"`
	R          float64   `json:"r"`
	Cumulative float64   `json:"cumulative"`
	Drawdown   float64   `json:"drawdown"`
}

// EquityCurve returns cumulative R over closed trades in entry order
func EquityCurve(records []TradeRecord) []EquityPoint {
	closed := Chronological(ClosedOnly(records))
	points := make([]EquityPoint, 0, len(closed))

	var cum, peak float64
	for i, r := range closed {
		cum += r.R
		if cum > peak {
			peak = cum
		}
		points = append(points, EquityPoint{
			Index:      i + 1,
			TradeID:    r.ID,
			Source:     r.Source,
			Time:       r.EntryTime,
			R:          r.R,
			Cumulative: round4(cum),
			Drawdown:   round4(peak - cum),
		})
	}
	return points
}

// EquitySlope is the least-squares slope of cumulative R against trade index
func EquitySlope(records []TradeRecord) float64 {
	curve := EquityCurve(records)
	ys := make([]float64, len(curve))
	for i, p := range curve {
		ys[i] = p.Cumulative
	}
	return RegressionSlope(ys)
}

// RegressionSlope fits y = a + b*x with x = 0..n-1 and returns b. Fewer than
// two points yield 0.
func RegressionSlope(ys []float64) float64 {
	n := float64(len(ys))
	if len(ys) < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	return round4((n*sumXY - sumX*sumY) / den)
}

// Pearson returns the correlation coefficient of xs and ys, 0 when undefined
func Pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	n := float64(len(xs))
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return round4(cov / math.Sqrt(vx*vy))
}

// Streaks summarises consecutive wins and losses
type Streaks struct {
	Current     int                `json:"current"`
	CurrentType models.TradeResult `json:"current_type,omitempty"`
	LongestWin  int                `json:"longest_win"`
	LongestLoss int                `json:"longest_loss"`
}

// ComputeStreaks walks closed trades in entry order. Breakevens end neither
// streak and are skipped.
func ComputeStreaks(records []TradeRecord) Streaks {
	var s Streaks
	for _, r := range Chronological(ClosedOnly(records)) {
		if r.Result != models.ResultWin && r.Result != models.ResultLoss {
			continue
		}
		if r.Result == s.CurrentType {
			s.Current++
		} else {
			s.CurrentType = r.Result
			s.Current = 1
		}
		if s.CurrentType == models.ResultWin && s.Current > s.LongestWin {
			s.LongestWin = s.Current
		}
		if s.CurrentType == models.ResultLoss && s.Current > s.LongestLoss {
			s.LongestLoss = s.Current
		}
	}
	return s
}
