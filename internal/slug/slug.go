// Package slug derives topic-safe identifiers from display names
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is returned when normalization empties a non-empty name.
const Fallback = "sensor"

// Make converts a free-text device name into an identifier safe for use in
// MQTT topics and Home Assistant unique IDs. Accented characters are reduced
// to their ASCII base, everything else outside [a-z0-9_] becomes a single
// underscore. Make is idempotent: Make(Make(x)) == Make(x).
func Make(name string) string {
	if name == "" {
		return ""
	}

	// NFD splits accented characters into base + combining mark, the marks
	// are then dropped. Chain transformers are stateful, so build per call.
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(stripAccents, name)
	if err != nil {
		ascii = name
	}

	var b strings.Builder
	b.Grow(len(ascii))
	pendingSep := false

	for _, r := range strings.ToLower(ascii) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pendingSep = false
		default:
			// Covers spaces, punctuation, leftover non-ASCII and literal
			// underscores; runs collapse to one separator.
			pendingSep = true
		}
	}

	out := b.String()
	if out == "" {
		return Fallback
	}
	return out
}
