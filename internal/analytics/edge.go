package analytics

import (
	"math"

	"github.com/edgelog/internal/models"
)

// ProfitFactorCap stands in for an infinite profit factor (profit, no loss)
const ProfitFactorCap = 999.0

// EdgeStats is the expectancy summary of a set of closed trades
type EdgeStats struct {
	TotalTrades  int     `json:"total_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Breakevens   int     `json:"breakevens"`
	WinRate      float64 `json:"win_rate"` // percent of decided trades
	AvgR         float64 `json:"avg_r"`
	AvgWinR      float64 `json:"avg_win_r"`
	AvgLossR     float64 `json:"avg_loss_r"` // magnitude
	Expectancy   float64 `json:"expectancy"`
	ProfitFactor float64 `json:"profit_factor"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
	TotalR       float64 `json:"total_r"`
}

// Edge computes win rate, expectancy, profit factor and drawdown over the
// closed records. Open trades are ignored.
func Edge(records []TradeRecord) EdgeStats {
	closed := Chronological(ClosedOnly(records))

	var s EdgeStats
	var cum, peak float64
	for _, r := range closed {
		s.TotalTrades++
		s.TotalR += r.R

		switch r.Result {
		case models.ResultWin:
			s.Wins++
			s.GrossProfit += r.R
		case models.ResultLoss:
			s.Losses++
			s.GrossLoss += math.Abs(r.R)
		default:
			s.Breakevens++
		}

		cum += r.R
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
		}
	}

	decided := s.Wins + s.Losses
	winFrac := safeDiv(float64(s.Wins), float64(decided))
	lossFrac := safeDiv(float64(s.Losses), float64(decided))

	s.WinRate = round2(winFrac * 100)
	s.AvgR = round4(safeDiv(s.TotalR, float64(s.TotalTrades)))
	s.AvgWinR = round4(safeDiv(s.GrossProfit, float64(s.Wins)))
	s.AvgLossR = round4(safeDiv(s.GrossLoss, float64(s.Losses)))
	s.Expectancy = round4(winFrac*s.AvgWinR - lossFrac*s.AvgLossR)
	s.ProfitFactor = profitFactor(s.GrossProfit, s.GrossLoss)
	s.MaxDrawdown = round4(s.MaxDrawdown)
	s.GrossProfit = round4(s.GrossProfit)
	s.GrossLoss = round4(s.GrossLoss)
	s.TotalR = round4(s.TotalR)
	return s
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	switch {
	case grossLoss == 0 && grossProfit > 0:
		return ProfitFactorCap
	case grossLoss == 0:
		return 0
	default:
		return round4(math.Min(grossProfit/grossLoss, ProfitFactorCap))
	}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
