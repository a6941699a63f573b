package ingest

import "strings"

// minBodyLength is the default admission threshold of spec.md §4.1.
const minBodyLength = 10

var removalPlaceholders = []string{
	"[deleted]", "[removed]", "[deleted by user]",
}

// FilterPolicy decides whether an envelope is worth delivering to
// admission: reject placeholders, link-only posts, and anything below the
// minimum body length.
type FilterPolicy struct {
	MinBodyLength int
}

// DefaultFilterPolicy applies spec.md §4.1's defaults.
func DefaultFilterPolicy() FilterPolicy {
	return FilterPolicy{MinBodyLength: minBodyLength}
}

// Admit reports whether envelope passes the filter.
func (p FilterPolicy) Admit(e PostEnvelope) bool {
	text := strings.TrimSpace(e.Text)

	if len(text) < p.MinBodyLength {
		return false
	}

	lower := strings.ToLower(text)
	for _, placeholder := range removalPlaceholders {
		if lower == placeholder {
			return false
		}
	}

	if isLinkOnly(text) {
		return false
	}

	return true
}

// isLinkOnly reports whether text is nothing but a single URL (no other
// meaningful content beyond whitespace).
func isLinkOnly(text string) bool {
	fields := strings.Fields(text)
	if len(fields) != 1 {
		return false
	}
	return strings.HasPrefix(fields[0], "http://") || strings.HasPrefix(fields[0], "https://")
}
