// Package transform converts source records into destination payloads. Every
// transformer is a pure function over its inputs and the current ID-map
// snapshot, so the whole layer is testable without network access.
package transform

import (
	"strings"

	"golang.org/x/text/width"
)

// SplitName splits a personal name into surname and given name. The source
// platform stores names as one field with the parts separated by a space,
// half-width or ideographic. A name with no separator is entirely surname.
func SplitName(full string) (lastName, firstName string) {
	s := strings.TrimSpace(full)
	s = strings.ReplaceAll(s, "　", " ")
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// phoneStripper removes the separators found in source phone fields after
// width folding. The katakana long vowel mark shows up as a hyphen stand-in
// in real exports; width folding turns it into its halfwidth form ｰ (U+FF70),
// so both forms are listed.
var phoneStripper = strings.NewReplacer(
	"-", "",
	" ", "",
	"(", "",
	")", "",
	"ー", "",
	"ｰ", "",
)

// NormalizePhone normalizes a phone number for the destination platform.
// Separators (including full-width variants) are stripped; a number already
// carrying an international prefix is kept as-is; the domestic trunk "0" is
// replaced with countryCode. Empty input returns "" and callers omit the
// field entirely rather than sending an empty string.
func NormalizePhone(raw, countryCode string) string {
	s := width.Narrow.String(strings.TrimSpace(raw))
	s = phoneStripper.Replace(s)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "+") {
		return s
	}
	if strings.HasPrefix(s, "0") {
		return countryCode + s[1:]
	}
	return s
}

// FormatPostal reformats a 7-digit postal code as NNN-NNNN. Anything else
// passes through unchanged, which makes the formatting idempotent.
func FormatPostal(raw string) string {
	s := width.Narrow.String(strings.TrimSpace(raw))
	if len(s) != 7 {
		return s
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	return s[:3] + "-" + s[3:]
}

// SplitAddress splits a street-address string on the first ideographic space
// into the primary line and a building/unit line. Without the delimiter the
// secondary line is empty.
func SplitAddress(street string) (line1, line2 string) {
	s := strings.TrimSpace(street)
	if i := strings.Index(s, "　"); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len("　"):])
	}
	return s, ""
}
