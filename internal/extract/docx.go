package extract

import (
	"archive/zip"
	"encoding/xml"
	"strings"

	"github.com/rotisserie/eris"
)

// docxDocument mirrors the parts of word/document.xml we care about:
// paragraphs containing text runs.
type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

// extractDocx reads a DOCX file (a zip archive) and joins the text of its
// non-empty paragraphs with newlines.
func extractDocx(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", eris.Wrapf(err, "extract: open docx %s", path)
	}
	defer zr.Close()

	var doc *docxDocument
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", eris.Wrap(err, "extract: open document.xml")
		}
		var d docxDocument
		decodeErr := xml.NewDecoder(rc).Decode(&d)
		rc.Close()
		if decodeErr != nil {
			return "", eris.Wrap(decodeErr, "extract: parse document.xml")
		}
		doc = &d
		break
	}
	if doc == nil {
		return "", eris.Errorf("extract: %s has no word/document.xml", path)
	}

	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range p.Runs {
			b.WriteString(r.Text)
		}
		if text := b.String(); strings.TrimSpace(text) != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}
