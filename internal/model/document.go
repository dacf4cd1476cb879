package model

import "time"

// DocumentStatus represents the lifecycle state of an uploaded document.
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is the persisted record for an uploaded file.
type Document struct {
	ID               string         `json:"id"`
	OriginalFilename string         `json:"original_filename"`
	Filename         string         `json:"filename"`
	FilePath         string         `json:"file_path"`
	FileSize         int64          `json:"file_size"`
	ContentType      string         `json:"content_type"`
	UploadedBy       string         `json:"uploaded_by"`
	Status           DocumentStatus `json:"status"`
	UploadDate       time.Time      `json:"upload_date"`
	ProcessedDate    *time.Time     `json:"processed_date,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// SourceFormat identifies the declared format of an ingested document.
type SourceFormat string

const (
	FormatPDF  SourceFormat = "pdf"
	FormatDOCX SourceFormat = "docx"
	FormatTXT  SourceFormat = "txt"
)

// ExtractedDocument holds the normalized text produced by one extraction.
// RawText is non-empty whenever extraction succeeds; a sub-threshold or
// corrupt result fails the whole extraction instead of being returned.
type ExtractedDocument struct {
	RawText          string       `json:"raw_text"`
	SourceFormat     SourceFormat `json:"source_format"`
	ExtractionMethod string       `json:"extraction_method"`
	PageCount        int          `json:"page_count,omitempty"`
}
