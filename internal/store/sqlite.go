package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/finsight-ai/finsight/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY,
	original_filename TEXT NOT NULL,
	filename          TEXT NOT NULL,
	file_path         TEXT NOT NULL,
	file_size         INTEGER NOT NULL,
	content_type      TEXT NOT NULL,
	uploaded_by       TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'uploaded',
	upload_date       DATETIME NOT NULL DEFAULT (datetime('now')),
	processed_date    DATETIME,
	error             TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS analyses (
	id                      TEXT PRIMARY KEY,
	document_id             TEXT NOT NULL REFERENCES documents(id),
	user_id                 TEXT NOT NULL,
	query                   TEXT NOT NULL,
	results                 TEXT NOT NULL,
	processing_time_seconds REAL NOT NULL,
	confidence_score        REAL NOT NULL,
	created_at              DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_documents_uploaded_by ON documents(uploaded_by);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_analyses_document_id ON analyses(document_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadDate.IsZero() {
		doc.UploadDate = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = model.DocumentStatusUploaded
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, original_filename, filename, file_path, file_size, content_type, uploaded_by, status, upload_date, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.OriginalFilename, doc.Filename, doc.FilePath, doc.FileSize,
		doc.ContentType, doc.UploadedBy, string(doc.Status), doc.UploadDate, doc.Error,
	)
	return eris.Wrap(err, "sqlite: insert document")
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, original_filename, filename, file_path, file_size, content_type, uploaded_by, status, upload_date, processed_date, error
		 FROM documents WHERE id = ?`,
		id,
	)
	return scanDocument(row)
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT id, original_filename, filename, file_path, file_size, content_type, uploaded_by, status, upload_date, processed_date, error
	          FROM documents WHERE 1=1`
	var args []any

	if filter.UploadedBy != "" {
		query += ` AND uploaded_by = ?`
		args = append(args, filter.UploadedBy)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY upload_date DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: iterate documents")
}

func (s *SQLiteStore) UpdateDocumentStatus(ctx context.Context, id string, status model.DocumentStatus, processedAt *time.Time, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, processed_date = ?, error = ? WHERE id = ?`,
		string(status), processedAt, errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update document status %s", id)
	}
	return checkRowsAffected(res, "document", id)
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	resultsJSON, err := json.Marshal(rec.Results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal results")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, document_id, user_id, query, results, processing_time_seconds, confidence_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DocumentID, rec.UserID, rec.Query, string(resultsJSON),
		rec.ProcessingTimeSeconds, rec.ConfidenceScore, rec.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert analysis")
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, user_id, query, results, processing_time_seconds, confidence_score, created_at
		 FROM analyses WHERE id = ?`,
		id,
	)
	return scanAnalysis(row)
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, documentID string) ([]model.AnalysisRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, user_id, query, results, processing_time_seconds, confidence_score, created_at
		 FROM analyses WHERE document_id = ? ORDER BY created_at DESC`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var recs []model.AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: iterate analyses")
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*model.Document, error) {
	var doc model.Document
	var status string
	var processed sql.NullTime
	err := row.Scan(
		&doc.ID, &doc.OriginalFilename, &doc.Filename, &doc.FilePath, &doc.FileSize,
		&doc.ContentType, &doc.UploadedBy, &status, &doc.UploadDate, &processed, &doc.Error,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(err, "store: document not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan document")
	}
	doc.Status = model.DocumentStatus(status)
	if processed.Valid {
		t := processed.Time
		doc.ProcessedDate = &t
	}
	return &doc, nil
}

func scanAnalysis(row scanner) (*model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var resultsJSON string
	err := row.Scan(
		&rec.ID, &rec.DocumentID, &rec.UserID, &rec.Query, &resultsJSON,
		&rec.ProcessingTimeSeconds, &rec.ConfidenceScore, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(err, "store: analysis not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan analysis")
	}
	if err := json.Unmarshal([]byte(resultsJSON), &rec.Results); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal results")
	}
	return &rec, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "store: rows affected for %s %s", entity, id)
	}
	if n == 0 {
		return eris.Errorf("store: %s %s not found", entity, id)
	}
	return nil
}
