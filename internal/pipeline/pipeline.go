// Package pipeline runs the sequential multi-stage financial document
// analysis: extract once, then verification, financial analysis, risk
// assessment and investment recommendation in strict order. Each stage's
// prompt is built from the outputs of the stages before it, so stages are
// never reordered or parallelized.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/config"
	"github.com/finsight-ai/finsight/internal/metrics"
	"github.com/finsight-ai/finsight/internal/model"
	"github.com/finsight-ai/finsight/internal/store"
	"github.com/finsight-ai/finsight/pkg/anthropic"
	"github.com/finsight-ai/finsight/pkg/serper"
)

// ErrStageExecution marks a delegated stage's failure. The run aborts at
// the first failing stage; no stage-level retry happens here.
var ErrStageExecution = eris.New("pipeline: stage execution failed")

// Reader extracts normalized text from a document file.
type Reader interface {
	Extract(ctx context.Context, path, declaredExt string) (*model.ExtractedDocument, error)
}

// Pipeline orchestrates one document analysis run end to end.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	reader    Reader
	anthropic anthropic.Client
	search    serper.Client
	stages    []Stage
	assembler *Assembler
}

// New creates a Pipeline with all dependencies. A nil search client is
// allowed; stages then receive an unavailability note instead of web
// context.
func New(
	cfg *config.Config,
	st store.Store,
	reader Reader,
	aiClient anthropic.Client,
	searchClient serper.Client,
	stages []Stage,
) *Pipeline {
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		reader:    reader,
		anthropic: aiClient,
		search:    searchClient,
		stages:    stages,
		assembler: NewAssembler(st, nil),
	}
}

// Run executes the full analysis for one document and persists the result.
// The returned record is nil when the run failed; the failure is still
// durably recorded before the error propagates.
func (p *Pipeline) Run(ctx context.Context, query, filePath, userID, documentID string) (*model.AnalysisRecord, error) {
	log := zap.L().With(
		zap.String("document_id", documentID),
		zap.String("user_id", userID),
	)

	run := model.PipelineRun{
		ID:         uuid.New().String(),
		Query:      query,
		DocumentID: documentID,
		UserID:     userID,
		FilePath:   filePath,
		Status:     model.RunStatusPending,
		StartedAt:  time.Now().UTC(),
	}
	log.Info("pipeline: starting analysis", zap.String("run_id", run.ID))
	run.Start()

	doc, err := p.reader.Extract(ctx, filePath, "")
	if err != nil {
		return nil, p.fail(ctx, run, eris.Wrap(err, "pipeline: extract document"))
	}
	run.Document = doc
	log.Info("pipeline: document extracted",
		zap.String("method", doc.ExtractionMethod),
		zap.Int("pages", doc.PageCount),
		zap.Int("chars", len(doc.RawText)),
	)

	docText := truncate(doc.RawText, p.cfg.Pipeline.MaxDocumentChars)
	metricsBlock := formatMetricsBlock(metrics.Extract(doc.RawText))

	// Web context is best-effort and fetched at most once per run.
	var searchBlock string
	searched := false

	for _, stage := range p.stages {
		if stage.UseSearch && !searched {
			searchBlock = p.searchContext(ctx, query)
			searched = true
		}

		start := time.Now()
		output, stageErr := p.runStage(ctx, stage, run, docText, metricsBlock, searchBlock)
		if stageErr != nil {
			log.Error("pipeline: stage failed",
				zap.String("stage", stage.Name),
				zap.Duration("duration", time.Since(start)),
				zap.Error(stageErr),
			)
			return nil, p.fail(ctx, run, stageErr)
		}

		run.Stages = append(run.Stages, model.StageResult{
			StageName: stage.Name,
			Output:    output,
			OK:        true,
		})
		log.Info("pipeline: stage complete",
			zap.String("stage", stage.Name),
			zap.Duration("duration", time.Since(start)),
		)
	}

	now := time.Now().UTC()
	run.Status = model.RunStatusCompleted
	run.FinishedAt = &now

	rec, err := p.assembler.Complete(ctx, run)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: assemble result")
	}

	log.Info("pipeline: analysis complete",
		zap.String("run_id", run.ID),
		zap.Float64("processing_seconds", rec.ProcessingTimeSeconds),
		zap.Float64("confidence", rec.ConfidenceScore),
	)
	return rec, nil
}

// runStage invokes one stage's delegated work under the configured
// per-stage deadline.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, run model.PipelineRun, docText, metricsBlock, searchBlock string) (string, error) {
	if p.cfg.Pipeline.StageTimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.Pipeline.StageTimeoutSecs)*time.Second)
		defer cancel()
	}

	temp := p.cfg.Anthropic.Temperature
	resp, err := p.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.cfg.Anthropic.Model,
		MaxTokens:   p.cfg.Anthropic.MaxTokens,
		System:      fmt.Sprintf("You are a %s. %s.", stage.Role, stage.Goal),
		Messages:    []anthropic.Message{{Role: "user", Content: buildPrompt(stage, run, docText, metricsBlock, searchBlock)}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrapf(ErrStageExecution, "%s: %s", stage.Name, err.Error())
	}
	resp.Usage.LogUsage(resp.Model, stage.Name)

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", eris.Wrapf(ErrStageExecution, "%s: empty response", stage.Name)
	}
	return text, nil
}

// buildPrompt assembles the stage's task description with the run context:
// user query, extracted document text, metric candidates, prior stage
// outputs, and optional web context. The run itself is never mutated.
func buildPrompt(stage Stage, run model.PipelineRun, docText, metricsBlock, searchBlock string) string {
	var b strings.Builder

	b.WriteString(stage.Task)
	b.WriteString("\n\nUser query: ")
	b.WriteString(run.Query)

	if stage.UseMetrics && metricsBlock != "" {
		b.WriteString("\n\nCandidate financial figures detected in the document:\n")
		b.WriteString(metricsBlock)
	}

	for _, prior := range run.Stages {
		fmt.Fprintf(&b, "\n\n--- Output of %s stage ---\n%v", prior.StageName, prior.Output)
	}

	if stage.UseSearch && searchBlock != "" {
		b.WriteString("\n\n--- Web context ---\n")
		b.WriteString(searchBlock)
	}

	fmt.Fprintf(&b, "\n\n--- Document (%s) ---\n%s", run.FilePath, docText)

	b.WriteString("\n\nExpected output:\n")
	b.WriteString(stage.ExpectedOutput)

	return b.String()
}

// fail marks the run terminal, records the failure durably, and returns
// the triggering error.
func (p *Pipeline) fail(ctx context.Context, run model.PipelineRun, cause error) error {
	now := time.Now().UTC()
	run.Status = model.RunStatusFailed
	run.FinishedAt = &now
	run.Error = cause.Error()

	if recErr := p.assembler.Fail(ctx, run); recErr != nil {
		zap.L().Warn("pipeline: failed to record failure",
			zap.String("run_id", run.ID),
			zap.Error(recErr),
		)
	}
	return cause
}

// formatMetricsBlock renders extracted metrics as a stable, human-readable
// block for prompt injection. Returns "" when nothing was found.
func formatMetricsBlock(found model.FinancialMetrics) string {
	if len(found) == 0 {
		return ""
	}
	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(": ")
		for i, m := range found[name] {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.Value)
			if m.Unit != "" {
				b.WriteByte(' ')
				b.WriteString(m.Unit)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// truncate caps s at max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
