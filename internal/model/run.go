package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// StageResult is the immutable outcome of one analysis stage.
type StageResult struct {
	StageName string `json:"stage_name"`
	Output    any    `json:"output"`
	OK        bool   `json:"ok"`
}

// PipelineRun tracks one document analysis from start to finish. It is
// owned by the orchestrator for the duration of the run and handed to the
// assembler by value on completion. Stages are appended in execution order;
// status moves one way: pending -> running -> completed|failed.
type PipelineRun struct {
	ID         string             `json:"id"`
	Query      string             `json:"query"`
	DocumentID string             `json:"document_id"`
	UserID     string             `json:"user_id"`
	FilePath   string             `json:"file_path"`
	Document   *ExtractedDocument `json:"document,omitempty"`
	Stages     []StageResult      `json:"stages"`
	Status     RunStatus          `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Start moves a pending run into the running state. Any other state is
// left untouched.
func (r *PipelineRun) Start() {
	if r.Status == RunStatusPending {
		r.Status = RunStatusRunning
	}
}

// StageOutput returns the output of the named stage, or nil if the stage
// never ran.
func (r *PipelineRun) StageOutput(name string) any {
	for _, s := range r.Stages {
		if s.StageName == name {
			return s.Output
		}
	}
	return nil
}

// AnalysisRecord is the persisted, immutable result of one pipeline run.
// Re-running a document produces a new record; existing records are never
// updated.
type AnalysisRecord struct {
	ID                    string         `json:"id"`
	DocumentID            string         `json:"document_id"`
	UserID                string         `json:"user_id"`
	Query                 string         `json:"query"`
	Results               map[string]any `json:"results"`
	ProcessingTimeSeconds float64        `json:"processing_time_seconds"`
	ConfidenceScore       float64        `json:"confidence_score"`
	CreatedAt             time.Time      `json:"created_at"`
}
