package notion

import (
	"fmt"
	"strings"
)

const idLen = 32

// NormalizeID converts a Notion id in compact, hyphenated, or URL form to the
// canonical lowercase 8-4-4-4-12 form.
func NormalizeID(raw string) (string, error) {
	compact, err := CompactID(raw)
	if err != nil {
		return "", err
	}
	return compact[:8] + "-" + compact[8:12] + "-" + compact[12:16] + "-" + compact[16:20] + "-" + compact[20:], nil
}

// CompactID returns the 32-character lowercase hex form of raw.
func CompactID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, "/") {
		s = idFromURL(s)
	}
	s = strings.ToLower(strings.ReplaceAll(s, "-", ""))
	if len(s) != idLen || !isHex(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return s, nil
}

// idFromURL pulls the trailing id out of a Notion URL such as
// https://www.notion.so/workspace/My-Page-0123456789abcdef0123456789abcdef?v=...
func idFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		u = u[i+1:]
	}
	if len(u) > idLen {
		tail := u[len(u)-idLen:]
		if isHex(strings.ToLower(tail)) {
			return tail
		}
	}
	return u
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
