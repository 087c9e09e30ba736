package domain

// StatsReport holds standard performance metrics computed from one value
// series and its log-return series. Computed fresh per series pair, never
// mutated. Annualization uses 365 calendar days; the risk-free rate is
// implicitly zero.
type StatsReport struct {
	TotalReturn      float64
	AnnualizedReturn float64
	Sharpe           float64
	Sortino          float64
	MaxDrawdown      float64 // peak-to-trough decline, <= 0
	Calmar           float64

	// CalmarDefined is false when max drawdown is zero (monotonically
	// non-decreasing series): Calmar is then +Inf, flagged rather than
	// propagated as an unexplained value.
	CalmarDefined bool
}
