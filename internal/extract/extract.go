// Package extract turns uploaded financial documents (PDF, DOCX, TXT) into
// normalized plain text. PDF extraction runs a prioritized cascade of
// strategies: a strategy that errors is skipped, and a strategy wins only if
// its output clears the minimum-viable-content threshold. Different readers
// fail on different malformed, encrypted, or scanned files, so trying the
// richer extractors first maximizes successful extraction.
package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/config"
	"github.com/finsight-ai/finsight/internal/model"
)

// Sentinel errors for extraction failures. Boundary layers discriminate
// with errors.Is.
var (
	ErrNotFound          = eris.New("extract: document not found")
	ErrUnsupportedFormat = eris.New("extract: unsupported format")
	ErrSizeLimit         = eris.New("extract: file exceeds size limit")
	ErrExtractionFailed  = eris.New("extract: no strategy produced viable content")
)

// Strategy is one concrete algorithm for turning a PDF into plain text.
// It returns the raw tagged text and the number of pages it saw. Adding a
// new strategy means appending it to the cascade; no other code changes.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, path string) (string, int, error)
}

// Extractor extracts normalized text from supported document formats.
type Extractor struct {
	cfg        config.ExtractConfig
	strategies []Strategy
}

// New creates an Extractor with the default PDF strategy cascade:
// table-aware layout extraction, plain structural text, then the poppler
// pdftotext tool as a last resort.
func New(cfg config.ExtractConfig) *Extractor {
	return &Extractor{
		cfg: cfg,
		strategies: []Strategy{
			newPDFLayoutStrategy(),
			newPDFTextStrategy(),
			newPdfToTextStrategy(cfg.PdfToTextPath),
		},
	}
}

// NewWithStrategies creates an Extractor with a custom PDF cascade.
func NewWithStrategies(cfg config.ExtractConfig, strategies ...Strategy) *Extractor {
	return &Extractor{cfg: cfg, strategies: strategies}
}

// Extract reads the file at path and returns its normalized text. The
// declared extension takes precedence over the filename extension when
// non-empty. Extraction either fully succeeds with above-threshold content
// or fails; partial text is never returned.
func (e *Extractor) Extract(ctx context.Context, path, declaredExt string) (*model.ExtractedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, eris.Wrapf(err, "extract: stat %s", path)
	}
	if e.cfg.MaxFileSize > 0 && info.Size() > e.cfg.MaxFileSize {
		return nil, eris.Wrapf(ErrSizeLimit, "%s: %d bytes (max %d)", path, info.Size(), e.cfg.MaxFileSize)
	}

	ext := normalizeExt(declaredExt)
	if ext == "" {
		ext = normalizeExt(filepath.Ext(path))
	}
	if !e.allowed(ext) {
		return nil, eris.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}

	switch ext {
	case "pdf":
		return e.extractPDF(ctx, path)
	case "docx":
		text, err := extractDocx(path)
		return e.finish(text, err, model.FormatDOCX, "docx", 0)
	case "txt":
		text, err := extractTxt(path)
		return e.finish(text, err, model.FormatTXT, "txt", 0)
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}
}

// extractPDF walks the strategy cascade. Strategy errors are non-fatal;
// the next strategy is tried. Sub-threshold output counts as a failure.
func (e *Extractor) extractPDF(ctx context.Context, path string) (*model.ExtractedDocument, error) {
	log := zap.L().With(zap.String("path", path))

	// Preflight page count via pdfcpu. Failure here is informational only:
	// some PDFs that pdfcpu rejects are still readable by a cascade strategy.
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		log.Debug("extract: pdfcpu page count failed", zap.Error(err))
		pageCount = 0
	}

	for _, s := range e.strategies {
		text, pages, err := s.Extract(ctx, path)
		if err != nil {
			log.Debug("extract: strategy failed",
				zap.String("strategy", s.Name()),
				zap.Error(err),
			)
			continue
		}
		if len(strings.TrimSpace(text)) <= e.minContent() {
			log.Debug("extract: strategy output below threshold",
				zap.String("strategy", s.Name()),
				zap.Int("chars", len(strings.TrimSpace(text))),
			)
			continue
		}
		if pageCount == 0 {
			pageCount = pages
		}
		return e.finish(text, nil, model.FormatPDF, s.Name(), pageCount)
	}

	return nil, eris.Wrapf(ErrExtractionFailed, "%s", path)
}

// finish applies the shared normalization pass and threshold check.
func (e *Extractor) finish(text string, err error, format model.SourceFormat, method string, pages int) (*model.ExtractedDocument, error) {
	if err != nil {
		return nil, eris.Wrapf(ErrExtractionFailed, "%s: %s", method, err.Error())
	}
	if len(strings.TrimSpace(text)) <= e.minContent() {
		return nil, eris.Wrapf(ErrExtractionFailed, "%s: content below %d chars", method, e.minContent())
	}
	cleaned := CleanFinancialText(text)
	if cleaned == "" {
		return nil, eris.Wrapf(ErrExtractionFailed, "%s: empty after normalization", method)
	}
	return &model.ExtractedDocument{
		RawText:          cleaned,
		SourceFormat:     format,
		ExtractionMethod: method,
		PageCount:        pages,
	}, nil
}

func (e *Extractor) minContent() int {
	if e.cfg.MinContentChars > 0 {
		return e.cfg.MinContentChars
	}
	return 50
}

func (e *Extractor) allowed(ext string) bool {
	exts := e.cfg.AllowedExtensions
	if len(exts) == 0 {
		exts = []string{".pdf", ".docx", ".txt"}
	}
	for _, a := range exts {
		if normalizeExt(a) == ext {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
