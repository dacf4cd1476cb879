package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Search failures never fail a run; stages that want web context get a
// note they can reason about instead.
const searchUnavailable = "Web search is unavailable for this analysis; rely on the document contents."

const maxSearchResults = 5

// searchContext fetches web context for the query. It degrades to an
// explanatory note when no search client is configured or the call fails.
func (p *Pipeline) searchContext(ctx context.Context, query string) string {
	if p.search == nil {
		return searchUnavailable
	}

	resp, err := p.search.Search(ctx, query)
	if err != nil {
		zap.L().Warn("pipeline: web search failed", zap.Error(err))
		return searchUnavailable
	}
	if len(resp.Organic) == 0 {
		return "Web search returned no results for this query."
	}

	var b strings.Builder
	for i, r := range resp.Organic {
		if i >= maxSearchResults {
			break
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, r.Title, r.Link, r.Snippet)
	}
	return b.String()
}
