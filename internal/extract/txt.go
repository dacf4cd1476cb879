package extract

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

// extractTxt reads a plain-text file with best-effort decoding. Files that
// are not valid UTF-8 are re-decoded as Windows-1252 (the usual culprit for
// exported financial statements); anything still invalid is dropped rather
// than failing the extraction.
func extractTxt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "extract: read %s", path)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, decErr := charmap.Windows1252.NewDecoder().Bytes(data)
	if decErr == nil {
		return string(decoded), nil
	}
	return strings.ToValidUTF8(string(data), ""), nil
}
