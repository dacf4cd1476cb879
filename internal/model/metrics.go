package model

// MetricMatch is one raw pattern hit for a financial metric: the numeric
// string as it appeared in the document plus an optional scale suffix
// ("million", "billion", "thousand"). Values are kept verbatim; callers
// parse or aggregate as needed.
type MetricMatch struct {
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// FinancialMetrics maps a metric name (revenue, net_income, total_assets)
// to its matches in document order, at most three per metric. An absent key
// means the metric was not found; empty slices are never stored.
type FinancialMetrics map[string][]MetricMatch
