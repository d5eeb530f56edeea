package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// sessionIdFragmentLen bounds the query fragment embedded in session ids.
const sessionIdFragmentLen = 30

// makeSessionId builds a session id from a timestamp, a sanitized
// fragment of the query, and a random suffix, e.g.
// "20250101120000_what_is_the_euro_rate_1a2b3c4d". The suffix keeps
// same-second sessions for the same query from overwriting each other's
// log, since Save is an upsert.
func makeSessionId(at time.Time, query string) string {
	return fmt.Sprintf("%s_%s_%s",
		at.UTC().Format("20060102150405"), sanitizeFragment(query), uuid.NewString()[:8])
}

// sanitizeFragment keeps the first 30 characters of the query, drops
// anything that is not alphanumeric, space, dash, or underscore, and
// replaces spaces with underscores.
func sanitizeFragment(query string) string {
	if len(query) > sessionIdFragmentLen {
		query = query[:sessionIdFragmentLen]
	}

	var b strings.Builder
	for _, r := range query {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return b.String()
}
