package models

import (
	"errors"
	"math"
)

// Direction is the side of a discretionary trade
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// TradeResult is the derived outcome of a trade
type TradeResult string

const (
	ResultOpen      TradeResult = "open"
	ResultWin       TradeResult = "win"
	ResultLoss      TradeResult = "loss"
	ResultBreakeven TradeResult = "breakeven"
)

// BreakevenBandR is the R-multiple band around zero treated as breakeven
const BreakevenBandR = 0.05

var (
	ErrInvalidDirection = errors.New("direction must be long or short")
	ErrZeroRisk         = errors.New("entry and stop loss must differ")
	ErrInvalidPrice     = errors.New("prices must be positive")
)

// Outcome holds the auto-computed outcome fields of a trade
type Outcome struct {
	Result    TradeResult
	RMultiple *float64
	PnL       *float64
	MAER      *float64
	MFER      *float64
	PlannedRR *float64
}

// OutcomeInput carries the prices needed to derive an outcome
type OutcomeInput struct {
	Direction         Direction
	EntryPrice        float64
	StopLoss          float64
	TakeProfit        *float64
	ExitPrice         *float64
	PositionSize      float64
	Fees              float64
	MaxAdversePrice   *float64
	MaxFavorablePrice *float64
}

// ComputeOutcome derives result, R-multiple, PnL, MAE/MFE and planned R:R.
// Without an exit price the trade is open and only planned R:R is set.
func ComputeOutcome(in OutcomeInput) (Outcome, error) {
	if in.Direction != DirectionLong && in.Direction != DirectionShort {
		return Outcome{}, ErrInvalidDirection
	}
	if in.EntryPrice <= 0 || in.StopLoss <= 0 {
		return Outcome{}, ErrInvalidPrice
	}

	risk := math.Abs(in.EntryPrice - in.StopLoss)
	if risk == 0 {
		return Outcome{}, ErrZeroRisk
	}

	out := Outcome{Result: ResultOpen}

	if in.TakeProfit != nil && *in.TakeProfit > 0 {
		rr := round4(math.Abs(*in.TakeProfit-in.EntryPrice) / risk)
		out.PlannedRR = &rr
	}

	if in.ExitPrice == nil || *in.ExitPrice <= 0 {
		return out, nil
	}

	move := *in.ExitPrice - in.EntryPrice
	if in.Direction == DirectionShort {
		move = -move
	}

	r := round4(move / risk)
	out.RMultiple = &r
	out.Result = ResultFromR(r)

	if in.PositionSize > 0 {
		pnl := round4(move*in.PositionSize - in.Fees)
		out.PnL = &pnl
	}

	if in.MaxAdversePrice != nil && *in.MaxAdversePrice > 0 {
		mae := round4(excursion(in.Direction, in.EntryPrice, *in.MaxAdversePrice, false) / risk)
		out.MAER = &mae
	}
	if in.MaxFavorablePrice != nil && *in.MaxFavorablePrice > 0 {
		mfe := round4(excursion(in.Direction, in.EntryPrice, *in.MaxFavorablePrice, true) / risk)
		out.MFER = &mfe
	}

	return out, nil
}

// ResultFromR classifies an R-multiple into win, loss or breakeven
func ResultFromR(r float64) TradeResult {
	switch {
	case r > BreakevenBandR:
		return ResultWin
	case r < -BreakevenBandR:
		return ResultLoss
	default:
		return ResultBreakeven
	}
}

// excursion returns the non-negative distance price moved against (favorable=false)
// or in favour of (favorable=true) the position.
func excursion(dir Direction, entry, price float64, favorable bool) float64 {
	d := price - entry
	if dir == DirectionShort {
		d = -d
	}
	if !favorable {
		d = -d
	}
	if d < 0 {
		return 0
	}
	return d
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
