package catalog

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/beaconhillfe/bhfe-web/internal/prose"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

// MaxCredits is the largest numeric credit value of c. ok is false when no
// credit parses.
func MaxCredits(c *wp.Course) (best float64, ok bool) {
	for _, cr := range c.Credits {
		v, parsed := parseCredits(cr.Credits)
		if !parsed {
			continue
		}
		if !ok || v > best {
			best, ok = v, true
		}
	}
	return best, ok
}

// parseCredits reads the leading number of s, so "4 CPE" and "2.5" parse.
func parseCredits(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || unicode.IsDigit(rune(s[end]))) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func matchesSearch(c *wp.Course, q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(c.Title), q) ||
		strings.Contains(strings.ToLower(c.CourseNumber), q) ||
		strings.Contains(strings.ToLower(prose.PlainText(c.Description)), q)
}

// Result is a filtered, sorted course list.
type Result struct {
	Courses []wp.Course
	Total   int
	Filter  Filter
}

// Apply filters and sorts courses. The input is not modified.
func Apply(courses []wp.Course, f Filter) Result {
	out := make([]wp.Course, 0, len(courses))
	for i := range courses {
		if f.Keep(&courses[i]) {
			out = append(out, courses[i])
		}
	}
	sortCourses(out, f.Sort)
	return Result{Courses: out, Total: len(courses), Filter: f}
}

// sortCourses sorts in place and is stable. Collators are not safe for
// concurrent use, so each call builds its own.
func sortCourses(cs []wp.Course, s Sort) {
	switch s {
	case SortTitleDesc:
		col := collate.New(language.English)
		slices.SortStableFunc(cs, func(a, b wp.Course) int { return col.CompareString(b.Title, a.Title) })
	case SortNumberAsc:
		col := collate.New(language.English, collate.Numeric)
		slices.SortStableFunc(cs, func(a, b wp.Course) int { return col.CompareString(a.CourseNumber, b.CourseNumber) })
	case SortCreditsDesc:
		slices.SortStableFunc(cs, func(a, b wp.Course) int { return cmp.Compare(credits(&b), credits(&a)) })
	case SortCreditsAsc:
		slices.SortStableFunc(cs, func(a, b wp.Course) int { return cmp.Compare(credits(&a), credits(&b)) })
	default:
		col := collate.New(language.English)
		slices.SortStableFunc(cs, func(a, b wp.Course) int { return col.CompareString(a.Title, b.Title) })
	}
}

func credits(c *wp.Course) float64 {
	v, _ := MaxCredits(c)
	return v
}
