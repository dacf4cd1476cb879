package store

import (
	"context"
	"time"

	"github.com/finsight-ai/finsight/internal/model"
)

// DocumentFilter specifies criteria for listing documents.
type DocumentFilter struct {
	UploadedBy string               `json:"uploaded_by,omitempty"`
	Status     model.DocumentStatus `json:"status,omitempty"`
	Limit      int                  `json:"limit,omitempty"`
	Offset     int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for documents and analysis
// records. Analysis records are write-once: re-analyzing a document creates
// a new record rather than updating an old one.
type Store interface {
	// Documents
	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status model.DocumentStatus, processedAt *time.Time, errMsg string) error

	// Analyses
	SaveAnalysis(ctx context.Context, rec *model.AnalysisRecord) error
	GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, documentID string) ([]model.AnalysisRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
