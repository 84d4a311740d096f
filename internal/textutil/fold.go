package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fold returns the case-folded, whitespace-trimmed form of value.
func Fold(value string) string {
	return cases.Fold().String(strings.TrimSpace(value))
}

// FoldEqual reports whether a and b are equal under Unicode case folding,
// ignoring surrounding whitespace.
func FoldEqual(a, b string) bool {
	return Fold(a) == Fold(b)
}

// FoldSet builds a lookup set of folded values. Empty values are dropped.
func FoldSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if folded := Fold(v); folded != "" {
			set[folded] = struct{}{}
		}
	}
	return set
}

// DisplayCategory renders a damage category for tables and reports.
func DisplayCategory(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Unknown"
	}
	return cases.Title(language.Und).String(value)
}
