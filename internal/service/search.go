package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips diacritics so "Nguyễn Đức" matches "nguyen duc"
func Fold(s string) string {
	// A chain keeps state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	// Đ/đ are distinct letters, not a base letter plus a combining mark.
	out = strings.NewReplacer("Đ", "D", "đ", "d").Replace(out)
	return strings.ToLower(out)
}

// participantSource adapts participant rows to fuzzy.Source
type participantSource []string

func (p participantSource) String(i int) string { return p[i] }
func (p participantSource) Len() int            { return len(p) }
