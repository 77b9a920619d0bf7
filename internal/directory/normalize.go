// Package directory holds helpers shared by student directory backends.
package directory

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/attendance/internal/database"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for comparison (lowercase, no diacritics, spaces for dashes).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// Search returns students whose normalized name or code contains every word of
// the query. Prefix matches on the name sort first; an empty query matches all.
func Search(students []database.Student, query string, limit int) []database.Student {
	words := strings.Fields(NormalizePersonName(query))

	type hit struct {
		student database.Student
		prefix  bool
	}
	var hits []hit
	for _, s := range students {
		name := NormalizePersonName(s.Name)
		code := strings.ToLower(s.Code)
		matched := true
		for _, w := range words {
			if !strings.Contains(name, w) && !strings.Contains(code, w) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		prefix := len(words) > 0 && strings.HasPrefix(name, words[0])
		hits = append(hits, hit{student: s, prefix: prefix})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].prefix && !hits[j].prefix
	})

	result := make([]database.Student, 0, len(hits))
	for _, h := range hits {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, h.student)
	}
	return result
}
