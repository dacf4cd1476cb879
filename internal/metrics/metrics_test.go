package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/internal/model"
)

func TestExtractRevenue(t *testing.T) {
	got := Extract("Total revenue was $1,234 million in fiscal 2025.")
	require.Contains(t, got, "revenue")
	assert.Equal(t, []model.MetricMatch{{Value: "1,234", Unit: "million"}}, got["revenue"])
}

func TestExtractAllCategories(t *testing.T) {
	text := strings.Join([]string{
		"Net revenue reached $2.5 billion.",
		"Net income was $310 million.",
		"Total assets stood at $9,876 million.",
	}, "\n")

	got := Extract(text)
	require.Len(t, got, 3)
	assert.Equal(t, "2.5", got["revenue"][0].Value)
	assert.Equal(t, "billion", got["revenue"][0].Unit)
	assert.Equal(t, "310", got["net_income"][0].Value)
	assert.Equal(t, "9,876", got["total_assets"][0].Value)
}

func TestExtractMissingUnit(t *testing.T) {
	got := Extract("Total assets: $500")
	require.Contains(t, got, "total_assets")
	assert.Equal(t, model.MetricMatch{Value: "500", Unit: ""}, got["total_assets"][0])
}

func TestExtractSecondPatternFallback(t *testing.T) {
	// "net earnings" only matches the second net_income pattern.
	got := Extract("Net earnings of $42 million were reported.")
	require.Contains(t, got, "net_income")
	assert.Equal(t, "42", got["net_income"][0].Value)
}

func TestExtractCapsMatches(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteString("Net income was $100 million.\n")
	}
	got := Extract(b.String())
	require.Contains(t, got, "net_income")
	assert.Len(t, got["net_income"], 3)
}

func TestExtractEmptyText(t *testing.T) {
	assert.Empty(t, Extract(""))
	assert.Empty(t, Extract("   \n\t "))
}

func TestExtractNoMetrics(t *testing.T) {
	got := Extract("This memo contains no figures of interest.")
	assert.Empty(t, got)
	assert.NotContains(t, got, "revenue")
}
