package analytics

// Forward-testing gate thresholds
const (
	MinExpectancyR  = 0.20
	MinProfitFactor = 1.3
	MinSampleSize   = 300
	MinEquitySlope  = 0.02
)

// Criterion is one check of the forward-testing gate
type Criterion struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
}

// ValidationResult reports whether a strategy is ready for forward testing
type ValidationResult struct {
	Ready        bool        `json:"ready"`
	Criteria     []Criterion `json:"criteria"`
	SampleSize   int         `json:"sample_size"`
	Expectancy   float64     `json:"expectancy"`
	ProfitFactor float64     `json:"profit_factor"`
	EquitySlope  float64     `json:"equity_slope"`
	TradesNeeded int         `json:"trades_needed"`
}

// ValidateStrategy applies the four-criterion gate: expectancy above 0.20R,
// profit factor of at least 1.3, 300 closed trades and an equity-curve slope
// above 0.02R per trade.
func ValidateStrategy(records []TradeRecord) ValidationResult {
	edge := Edge(records)
	slope := EquitySlope(records)

	criteria := []Criterion{
		{Name: "expectancy", Value: edge.Expectancy, Threshold: MinExpectancyR, Passed: edge.Expectancy > MinExpectancyR},
		{Name: "profit_factor", Value: edge.ProfitFactor, Threshold: MinProfitFactor, Passed: edge.ProfitFactor >= MinProfitFactor},
		{Name: "sample_size", Value: float64(edge.TotalTrades), Threshold: MinSampleSize, Passed: edge.TotalTrades >= MinSampleSize},
		{Name: "equity_slope", Value: slope, Threshold: MinEquitySlope, Passed: slope > MinEquitySlope},
	}

	ready := true
	for _, c := range criteria {
		ready = ready && c.Passed
	}

	needed := MinSampleSize - edge.TotalTrades
	if needed < 0 {
		needed = 0
	}

	return ValidationResult{
		Ready:        ready,
		Criteria:     criteria,
		SampleSize:   edge.TotalTrades,
		Expectancy:   edge.Expectancy,
		ProfitFactor: edge.ProfitFactor,
		EquitySlope:  slope,
		TradesNeeded: needed,
	}
}
