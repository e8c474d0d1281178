package analytics

// Confidence is a coarse qualitative rating derived from sample size and
// date coverage, not a statistical confidence interval.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// RealTimeMetrics is the cached snapshot of today's trading, derived from a
// single aggregate query over approved transactions.
type RealTimeMetrics struct {
	Date           string  `json:"date"`
	SalesCount     int64   `json:"sales_count"`
	ExpensesCount  int64   `json:"expenses_count"`
	SalesTotal     float64 `json:"sales_total"`
	ExpensesTotal  float64 `json:"expenses_total"`
	SalesAverage   float64 `json:"sales_average"`
	SalesMax       float64 `json:"sales_max"`
	Profit         float64 `json:"profit"`
	SalesLastHour  int64   `json:"sales_last_hour"`
	SalesLast15Min int64   `json:"sales_last_15_min"`
	SalesVelocity  float64 `json:"sales_velocity"`
	Timestamp      string  `json:"timestamp"`
}

// HourlyProfileEntry is the historical average for one hour-of-day.
// DataPoints counts the (day, hour) buckets that contributed to the average.
type HourlyProfileEntry struct {
	AvgTransactions float64 `json:"avg_transactions"`
	AvgAmount       float64 `json:"avg_amount"`
	DataPoints      int     `json:"data_points"`
}

// HourlyProfile maps hour-of-day (0–23) to its historical averages. A
// well-formed profile always carries all 24 hours, zero-valued where no
// history exists.
type HourlyProfile map[int]HourlyProfileEntry

// ForecastPoint is the projection for a single remaining hour of today.
type ForecastPoint struct {
	Hour                  int     `json:"hour"`
	PredictedTransactions int64   `json:"predicted_transactions"`
	PredictedAmount       float64 `json:"predicted_amount"`
	Confidence            string  `json:"confidence"`
}

// ForecastResult bundles the same-day forecast with the historical profile
// it was derived from and an overall confidence rating.
type ForecastResult struct {
	Forecast       []ForecastPoint `json:"forecast"`
	HistoricalData HourlyProfile   `json:"historical_data"`
	Confidence     string          `json:"confidence"`
}

// HourStat is one hour-of-day ranked by transaction volume.
type HourStat struct {
	Hour             int     `json:"hour"`
	TransactionCount int64   `json:"transaction_count"`
	AvgAmount        float64 `json:"avg_amount"`
	TotalAmount      float64 `json:"total_amount"`
}

// PeakHoursAnalysis ranks hours by transaction count. PeakHours holds the
// busiest quartile (at least one hour when any data exists); AllHours is the
// full ranking.
type PeakHoursAnalysis struct {
	PeakHours []HourStat `json:"peak_hours"`
	AllHours  []HourStat `json:"all_hours"`
}

// CacheStats reports in-process cache effectiveness counters.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}
