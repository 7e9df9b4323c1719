package taxonomy

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	separatorReplacer = strings.NewReplacer("_", " ", "-", " ", "/", " ")
	digitRun          = regexp.MustCompile(`\d+`)
	spaceRun          = regexp.MustCompile(`\s+`)
)

// ParseLineage turns a raw semicolon-delimited lineage string into cleaned
// taxon terms, root first. Empty and "unassigned" tokens are dropped, as
// are tokens shorter than two characters after cleaning.
func ParseLineage(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	cleaned := separatorReplacer.Replace(raw)

	var names []string
	for _, name := range strings.Split(cleaned, ";") {
		name = strings.TrimSpace(name)
		if name == "" || strings.EqualFold(name, "unassigned") {
			continue
		}
		name = strings.ReplaceAll(name, " sp.", "")
		name = strings.ReplaceAll(name, " spp.", "")
		if strings.ContainsFunc(name, unicode.IsDigit) {
			name = digitRun.ReplaceAllString(name, "")
		}
		if strings.Contains(name, "  ") {
			name = spaceRun.ReplaceAllString(name, " ")
		}
		name = strings.TrimSpace(name)
		if utf8.RuneCountInString(name) > 1 {
			names = append(names, name)
		}
	}
	return names
}

// cleanVerbatim trims whitespace and trailing semicolons; used by the fast
// path to spot empty and kingdom-only inputs before any parsing.
func cleanVerbatim(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, ";")
	return strings.TrimSpace(s)
}

func isTrulyEmpty(cleaned string) bool {
	switch strings.ToLower(cleaned) {
	case "", "unassigned", "nan", "none":
		return true
	}
	return false
}
