// Package metrics pulls candidate financial figures out of normalized
// document text. Matching is deliberately loose: values are kept as raw
// strings in document order for downstream analysis to parse or discard.
package metrics

import (
	"regexp"
	"strings"

	"github.com/finsight-ai/finsight/internal/model"
)

// maxMatches caps how many hits are kept per metric.
const maxMatches = 3

// category holds an ordered pattern list for one metric. The first pattern
// that yields any match wins the category; later patterns are not tried.
// Each pattern captures (numeric string, optional scale suffix).
type category struct {
	name     string
	patterns []*regexp.Regexp
}

var categories = []category{
	{
		name: "revenue",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:total\s+)?(?:net\s+)?(?:revenue|sales)[^\n$]*\$?\s*([\d,.]+)\s*(million|billion|thousand)?`),
			regexp.MustCompile(`(?i)revenues?[^\n$]*\$?\s*([\d,.]+)\s*(million|billion|thousand)?`),
		},
	},
	{
		name: "net_income",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)net\s+income[^\n$]*\$?\s*([\d,.]+)\s*(million|billion|thousand)?`),
			regexp.MustCompile(`(?i)net\s+earnings[^\n$]*\$?\s*([\d,.]+)\s*(million|billion|thousand)?`),
		},
	},
	{
		name: "total_assets",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)total\s+assets[^\n$]*\$?\s*([\d,.]+)\s*(million|billion|thousand)?`),
		},
	},
}

// Extract scans text for known financial metrics. It never fails: empty or
// unmatchable text yields an empty map, and a metric with no hits is simply
// absent (never present with an empty slice).
func Extract(text string) model.FinancialMetrics {
	found := model.FinancialMetrics{}
	if strings.TrimSpace(text) == "" {
		return found
	}

	for _, cat := range categories {
		for _, re := range cat.patterns {
			groups := re.FindAllStringSubmatch(text, maxMatches)
			if len(groups) == 0 {
				continue
			}
			matches := make([]model.MetricMatch, 0, len(groups))
			for _, g := range groups {
				matches = append(matches, model.MetricMatch{Value: g[1], Unit: g[2]})
			}
			found[cat.name] = matches
			break
		}
	}
	return found
}
