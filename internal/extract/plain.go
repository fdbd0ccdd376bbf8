package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns data as text with CRLF line endings normalized and
// invalid UTF-8 replaced.
func extractPlain(data []byte) string {
	s := string(data)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ReplaceAll(s, "\r\n", "\n")
}
