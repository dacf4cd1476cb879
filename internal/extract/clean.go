package extract

import (
	"regexp"
	"strings"
)

// Normalization passes applied in order. The sequence is idempotent:
// running the result through again yields the same string.
var (
	reLineEndings = regexp.MustCompile(`\r\n?`)
	reSpaceRuns   = regexp.MustCompile(`[ \t]+`)
	reNewlineRuns = regexp.MustCompile(`\n\s*\n\s*\n`)
	reCurrencyGap = regexp.MustCompile(`\$\s+`)
	reSplitComma  = regexp.MustCompile(`(\d)\s+,\s*(\d)`)
	rePageFooter  = regexp.MustCompile(`(?i)Page \d+ of \d+`)
	reDoubleBlank = regexp.MustCompile(`\n\s*\n`)
)

// CleanFinancialText normalizes extracted document text regardless of the
// source format: line endings become \n, space/tab runs collapse to one
// space, 3+ blank-separated newlines collapse to exactly two, whitespace
// after a currency symbol and inside thousands-separated numbers is
// removed, and "Page N of M" footers are stripped. The pass list runs until
// the text stops changing: a stripped footer or collapsed separator can
// expose new work for an earlier pass, and a second application must be a
// no-op.
func CleanFinancialText(text string) string {
	for {
		cleaned := cleanPass(text)
		if cleaned == text {
			return cleaned
		}
		text = cleaned
	}
}

func cleanPass(text string) string {
	if text == "" {
		return ""
	}
	text = reLineEndings.ReplaceAllString(text, "\n")
	text = reSpaceRuns.ReplaceAllString(text, " ")
	text = reNewlineRuns.ReplaceAllString(text, "\n\n")
	text = reCurrencyGap.ReplaceAllString(text, "$")
	text = reSplitComma.ReplaceAllString(text, "$1,$2")
	text = rePageFooter.ReplaceAllString(text, "")
	text = reDoubleBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
