package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/finsight-ai/finsight/internal/model"
	"github.com/finsight-ai/finsight/internal/store"
)

// Scorer assigns a confidence score in [0, 1] to a finished run.
type Scorer interface {
	Score(run model.PipelineRun) float64
}

// stageCompletionScorer scores a run by the fraction of stages that
// produced non-empty output.
type stageCompletionScorer struct{}

func (stageCompletionScorer) Score(run model.PipelineRun) float64 {
	if len(run.Stages) == 0 {
		return 0
	}
	done := 0
	for _, s := range run.Stages {
		if s.OK && fmt.Sprintf("%v", s.Output) != "" {
			done++
		}
	}
	return float64(done) / float64(len(run.Stages))
}

// Assembler turns a finished run into a durable analysis record and moves
// the document to its terminal status.
type Assembler struct {
	store  store.Store
	scorer Scorer
}

// NewAssembler creates an Assembler. A nil scorer selects the stage
// completion scorer.
func NewAssembler(st store.Store, scorer Scorer) *Assembler {
	if scorer == nil {
		scorer = stageCompletionScorer{}
	}
	return &Assembler{store: st, scorer: scorer}
}

// Complete persists a successful run. The payload must survive a JSON
// round trip before anything is written; a payload that cannot is a bug
// and surfaces as an error rather than a truncated record.
func (a *Assembler) Complete(ctx context.Context, run model.PipelineRun) (*model.AnalysisRecord, error) {
	results := make(map[string]any, len(run.Stages)+3)
	for _, s := range run.Stages {
		results[s.StageName] = jsonSafe(s.Output)
	}
	results["query_used"] = run.Query
	results["source"] = filepath.Base(run.FilePath)
	results["generated_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := verifyRoundTrip(results); err != nil {
		return nil, err
	}

	finished := run.StartedAt
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}

	rec := &model.AnalysisRecord{
		DocumentID:            run.DocumentID,
		UserID:                run.UserID,
		Query:                 run.Query,
		Results:               results,
		ProcessingTimeSeconds: finished.Sub(run.StartedAt).Seconds(),
		ConfidenceScore:       a.scorer.Score(run),
	}
	if err := a.store.SaveAnalysis(ctx, rec); err != nil {
		return nil, eris.Wrap(err, "assemble: save analysis")
	}

	if err := a.store.UpdateDocumentStatus(ctx, run.DocumentID, model.DocumentStatusCompleted, &finished, ""); err != nil {
		return nil, eris.Wrap(err, "assemble: mark document completed")
	}
	return rec, nil
}

// Fail records a failed run: the document moves to failed with the error
// message verbatim, and a failure record preserves whatever stages did
// finish.
func (a *Assembler) Fail(ctx context.Context, run model.PipelineRun) error {
	now := time.Now().UTC()
	if run.FinishedAt != nil {
		now = *run.FinishedAt
	}

	if err := a.store.UpdateDocumentStatus(ctx, run.DocumentID, model.DocumentStatusFailed, &now, run.Error); err != nil {
		return eris.Wrap(err, "assemble: mark document failed")
	}

	results := map[string]any{
		"error":        run.Error,
		"query_used":   run.Query,
		"source":       filepath.Base(run.FilePath),
		"generated_at": now.Format(time.RFC3339),
	}
	for _, s := range run.Stages {
		results[s.StageName] = jsonSafe(s.Output)
	}

	rec := &model.AnalysisRecord{
		DocumentID:            run.DocumentID,
		UserID:                run.UserID,
		Query:                 run.Query,
		Results:               results,
		ProcessingTimeSeconds: now.Sub(run.StartedAt).Seconds(),
		ConfidenceScore:       0,
	}
	return eris.Wrap(a.store.SaveAnalysis(ctx, rec), "assemble: save failure record")
}

// jsonSafe passes serializable values through unchanged and coerces
// anything else to its string representation.
func jsonSafe(v any) any {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return v
}

// verifyRoundTrip confirms the payload survives marshal plus unmarshal
// intact enough to store and serve.
func verifyRoundTrip(results map[string]any) error {
	data, err := json.Marshal(results)
	if err != nil {
		return eris.Wrap(err, "assemble: payload not serializable")
	}
	var check map[string]any
	if err := json.Unmarshal(data, &check); err != nil {
		return eris.Wrap(err, "assemble: payload failed round trip")
	}
	if len(check) != len(results) {
		keys := make([]string, 0, len(results))
		for k := range results {
			if _, ok := check[k]; !ok {
				keys = append(keys, k)
			}
		}
		return eris.Errorf("assemble: keys lost in round trip: %s", strings.Join(keys, ", "))
	}
	return nil
}
