// Package match normalizes human-entered channel names into canonical
// comparison keys. The playlist and the EPG are authored independently and
// rarely agree on spelling ("RAI 1" vs "Rai.1" vs "rai_1"), so both exact
// lookup and substring search go through the same key.
package match

import (
	"strings"
	"unicode"
)

// Normalize returns the canonical comparison key for a channel name.
//
// Underscores and other separators become token breaks, runs of whitespace
// collapse, dots are deleted outright so sub-channel numbering joins into one
// numeral ("102.5" and "102 5" both key as "1025"), and the final key is the
// lowercased tokens joined with no separator. Whitespace is insignificant in
// the key: "RAI 1" and "Rai.1" compare equal, while "Rete 4" and "Rete 44"
// stay distinct.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.':
			// deleted, not a token break: "102.5" -> "1025"
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), "")
}

// Equal reports whether two names normalize to the same key.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// ContainsQuery reports whether the normalized query is a substring of the
// candidate's normalized key. An empty query matches everything.
func ContainsQuery(candidate, query string) bool {
	q := Normalize(query)
	if q == "" {
		return true
	}
	return strings.Contains(Normalize(candidate), q)
}
