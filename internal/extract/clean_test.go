package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanFinancialText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf line endings", "a\r\nb\rc", "a\nb\nc"},
		{"space and tab runs", "a \t  b", "a b"},
		{"newline runs collapse to two", "a\n\n\n\nb", "a\n\nb"},
		{"currency gap", "revenue of $   100 million", "revenue of $100 million"},
		{"split thousands separator", "1 ,234 and 5 , 678", "1,234 and 5,678"},
		{"page footer stripped", "intro\npage 3 of 12\noutro", "intro\n\noutro"},
		{"inline page footer leaves one space", "intro Page 1 of 2 outro", "intro outro"},
		{"chained spaced commas", "1 , 2 , 3", "1,2,3"},
		{"surrounding whitespace trimmed", "  \n body \n ", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanFinancialText(tt.in))
		})
	}
}

func TestCleanFinancialTextIdempotent(t *testing.T) {
	inputs := []string{
		"Revenue\r\n\r\nwas  $ 1 ,234 million\r\nPage 1 of 9\r\nend",
		"a\n\n\n\n\n\nb",
		"intro Page 1 of 2 outro",
		"totals were 1 , 2 , 3 across segments",
		"plain text with no anomalies",
	}
	for _, in := range inputs {
		once := CleanFinancialText(in)
		assert.Equal(t, once, CleanFinancialText(once), "input %q", in)
	}
}
