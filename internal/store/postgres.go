package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/finsight-ai/finsight/internal/model"
)

// pgxPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool pgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY,
	original_filename TEXT NOT NULL,
	filename          TEXT NOT NULL,
	file_path         TEXT NOT NULL,
	file_size         BIGINT NOT NULL,
	content_type      TEXT NOT NULL,
	uploaded_by       TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'uploaded',
	upload_date       TIMESTAMPTZ NOT NULL DEFAULT now(),
	processed_date    TIMESTAMPTZ,
	error             TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS analyses (
	id                      TEXT PRIMARY KEY,
	document_id             TEXT NOT NULL REFERENCES documents(id),
	user_id                 TEXT NOT NULL,
	query                   TEXT NOT NULL,
	results                 JSONB NOT NULL,
	processing_time_seconds DOUBLE PRECISION NOT NULL,
	confidence_score        DOUBLE PRECISION NOT NULL,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_uploaded_by ON documents(uploaded_by);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_analyses_document_id ON analyses(document_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadDate.IsZero() {
		doc.UploadDate = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = model.DocumentStatusUploaded
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, original_filename, filename, file_path, file_size, content_type, uploaded_by, status, upload_date, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.OriginalFilename, doc.Filename, doc.FilePath, doc.FileSize,
		doc.ContentType, doc.UploadedBy, string(doc.Status), doc.UploadDate, doc.Error,
	)
	return eris.Wrap(err, "postgres: insert document")
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, original_filename, filename, file_path, file_size, content_type, uploaded_by, status, upload_date, processed_date, error
		 FROM documents WHERE id = $1`,
		id,
	)
	return scanPgDocument(row)
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT id, original_filename, filename, file_path, file_size, content_type, uploaded_by, status, upload_date, processed_date, error
	          FROM documents WHERE 1=1`
	var args []any

	if filter.UploadedBy != "" {
		args = append(args, filter.UploadedBy)
		query += ` AND uploaded_by = $1`
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY upload_date DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanPgDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: iterate documents")
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id string, status model.DocumentStatus, processedAt *time.Time, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET status = $1, processed_date = $2, error = $3 WHERE id = $4`,
		string(status), processedAt, errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update document status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: document %s not found", id)
	}
	return nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	resultsJSON, err := json.Marshal(rec.Results)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal results")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, document_id, user_id, query, results, processing_time_seconds, confidence_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.DocumentID, rec.UserID, rec.Query, resultsJSON,
		rec.ProcessingTimeSeconds, rec.ConfidenceScore, rec.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert analysis")
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, document_id, user_id, query, results, processing_time_seconds, confidence_score, created_at
		 FROM analyses WHERE id = $1`,
		id,
	)
	return scanPgAnalysis(row)
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, documentID string) ([]model.AnalysisRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, user_id, query, results, processing_time_seconds, confidence_score, created_at
		 FROM analyses WHERE document_id = $1 ORDER BY created_at DESC`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var recs []model.AnalysisRecord
	for rows.Next() {
		rec, err := scanPgAnalysis(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: iterate analyses")
}

func scanPgDocument(row pgx.Row) (*model.Document, error) {
	var doc model.Document
	var status string
	var processed *time.Time
	err := row.Scan(
		&doc.ID, &doc.OriginalFilename, &doc.Filename, &doc.FilePath, &doc.FileSize,
		&doc.ContentType, &doc.UploadedBy, &status, &doc.UploadDate, &processed, &doc.Error,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "store: document not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan document")
	}
	doc.Status = model.DocumentStatus(status)
	doc.ProcessedDate = processed
	return &doc, nil
}

func scanPgAnalysis(row pgx.Row) (*model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var resultsJSON []byte
	err := row.Scan(
		&rec.ID, &rec.DocumentID, &rec.UserID, &rec.Query, &resultsJSON,
		&rec.ProcessingTimeSeconds, &rec.ConfidenceScore, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "store: analysis not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan analysis")
	}
	if err := json.Unmarshal(resultsJSON, &rec.Results); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal results")
	}
	return &rec, nil
}

