package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// Cell grouping thresholds in PDF points. Fragments closer than wordGap
// belong to the same word; a horizontal jump larger than cellGap starts a
// new table cell.
const (
	wordGap = 1.5
	cellGap = 18.0
)

// recoverPDFPanic converts reader panics into errors. The underlying PDF
// library panics on some malformed cross-reference tables and streams; the
// cascade must treat that as a failed strategy, not a crashed run.
func recoverPDFPanic(err *error) {
	if r := recover(); r != nil {
		*err = eris.Errorf("extract: pdf reader panic: %v", r)
	}
}

// pdfLayoutStrategy is the table-aware extractor: it reconstructs each
// page's lines from positioned text fragments and re-renders runs of
// multi-cell lines as tagged tables with pipe-separated cells.
type pdfLayoutStrategy struct{}

func newPDFLayoutStrategy() *pdfLayoutStrategy { return &pdfLayoutStrategy{} }

func (s *pdfLayoutStrategy) Name() string { return "pdf_layout" }

func (s *pdfLayoutStrategy) Extract(ctx context.Context, path string) (text string, pages int, err error) {
	defer recoverPDFPanic(&err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, eris.Wrapf(err, "extract: open pdf %s", path)
	}
	defer f.Close()

	total := r.NumPage()
	var b strings.Builder
	for i := 1; i <= total; i++ {
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, rowErr := p.GetTextByRow()
		if rowErr != nil {
			return "", 0, eris.Wrapf(rowErr, "extract: page %d rows", i)
		}
		lines := make([][]string, 0, len(rows))
		for _, row := range rows {
			if cells := splitCells(row.Content); len(cells) > 0 {
				lines = append(lines, cells)
			}
		}
		b.WriteString(renderPage(i, lines))
	}
	return b.String(), total, nil
}

// splitCells groups positioned fragments into cells: a gap wider than
// cellGap starts a new cell, a gap wider than wordGap inserts a space.
func splitCells(texts []pdf.Text) []string {
	var cells []string
	var cur strings.Builder
	prevEnd := 0.0
	for i, t := range texts {
		if t.S == "" {
			continue
		}
		if i > 0 {
			gap := t.X - prevEnd
			switch {
			case gap > cellGap:
				cells = append(cells, strings.TrimSpace(cur.String()))
				cur.Reset()
			case gap > wordGap:
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	if cur.Len() > 0 {
		cells = append(cells, strings.TrimSpace(cur.String()))
	}
	return cells
}

// renderPage emits the page text under a [Page N] tag, followed by one
// [Table K] block per detected table. A table is a run of two or more
// consecutive lines that each split into two or more cells. Cells are
// joined with " | "; empty cells stay as empty strings so column positions
// survive.
func renderPage(pageNum int, lines [][]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n[Page %d]\n", pageNum)
	for _, line := range lines {
		b.WriteString(strings.Join(line, " "))
		b.WriteByte('\n')
	}

	tableNum := 0
	start := -1
	flush := func(end int) {
		if start < 0 || end-start < 2 {
			start = -1
			return
		}
		tableNum++
		fmt.Fprintf(&b, "\n[Table %d]\n", tableNum)
		for _, row := range lines[start:end] {
			b.WriteString(strings.Join(row, " | "))
			b.WriteByte('\n')
		}
		start = -1
	}
	for i, line := range lines {
		if len(line) >= 2 {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(lines))

	return b.String()
}

// pdfTextStrategy extracts plain structural text page by page.
type pdfTextStrategy struct{}

func newPDFTextStrategy() *pdfTextStrategy { return &pdfTextStrategy{} }

func (s *pdfTextStrategy) Name() string { return "pdf_text" }

func (s *pdfTextStrategy) Extract(ctx context.Context, path string) (text string, pages int, err error) {
	defer recoverPDFPanic(&err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, eris.Wrapf(err, "extract: open pdf %s", path)
	}
	defer f.Close()

	total := r.NumPage()
	var b strings.Builder
	for i := 1; i <= total; i++ {
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, textErr := p.GetPlainText(nil)
		if textErr != nil {
			return "", 0, eris.Wrapf(textErr, "extract: page %d text", i)
		}
		fmt.Fprintf(&b, "\n[Page %d]\n%s\n", i, pageText)
	}
	return b.String(), total, nil
}

// pdfToTextStrategy shells out to poppler's pdftotext as the legacy
// fallback. Pages arrive separated by form feeds.
type pdfToTextStrategy struct {
	binPath string
}

func newPdfToTextStrategy(binPath string) *pdfToTextStrategy {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &pdfToTextStrategy{binPath: binPath}
}

func (s *pdfToTextStrategy) Name() string { return "pdftotext" }

func (s *pdfToTextStrategy) Extract(ctx context.Context, path string) (string, int, error) {
	cmd := exec.CommandContext(ctx, s.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", 0, eris.Wrapf(err, "extract: pdftotext failed for %s: %s", path, stderr.String())
	}

	pageTexts := strings.Split(strings.TrimRight(stdout.String(), "\f"), "\f")
	var b strings.Builder
	for i, pageText := range pageTexts {
		fmt.Fprintf(&b, "\n[Page %d]\n%s\n", i+1, pageText)
	}
	return b.String(), len(pageTexts), nil
}
