package catalog

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

type Sort string

const (
	SortTitleAsc    Sort = "title-asc"
	SortTitleDesc   Sort = "title-desc"
	SortNumberAsc   Sort = "number-asc"
	SortCreditsDesc Sort = "credits-desc"
	SortCreditsAsc  Sort = "credits-asc"
)

// SortOptions in display order.
var SortOptions = []struct {
	Sort  Sort
	Label string
}{
	{SortTitleAsc, "Title (A-Z)"},
	{SortTitleDesc, "Title (Z-A)"},
	{SortNumberAsc, "Course Number"},
	{SortCreditsDesc, "Most Credits"},
	{SortCreditsAsc, "Fewest Credits"},
}

func validSort(s Sort) bool {
	for _, o := range SortOptions {
		if o.Sort == s {
			return true
		}
	}
	return false
}

const (
	DefaultMinCredits = 1
	DefaultMaxCredits = 50
)

// Filter is the catalog query. The zero value is not the default; use
// DefaultFilter or ParseFilter.
type Filter struct {
	Search       string
	Designations []string
	MinCredits   int
	MaxCredits   int
	Sort         Sort
}

func DefaultFilter() Filter {
	return Filter{MinCredits: DefaultMinCredits, MaxCredits: DefaultMaxCredits, Sort: SortTitleAsc}
}

// ParseFilter reads a Filter from query values. Unknown designations and
// sorts are dropped; unparsable or out of range credits fall back to the
// defaults.
func ParseFilter(q url.Values) Filter {
	f := DefaultFilter()
	f.Search = strings.TrimSpace(q.Get("q"))

	for _, s := range strings.Split(q.Get("d"), ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if _, ok := DesignationBySlug(s); ok && !slices.Contains(f.Designations, s) {
			f.Designations = append(f.Designations, s)
		}
	}
	if n, err := strconv.Atoi(q.Get("min")); err == nil && n >= DefaultMinCredits && n <= DefaultMaxCredits {
		f.MinCredits = n
	}
	if n, err := strconv.Atoi(q.Get("max")); err == nil && n >= DefaultMinCredits && n <= DefaultMaxCredits {
		f.MaxCredits = n
	}
	if s := Sort(q.Get("sort")); validSort(s) {
		f.Sort = s
	}
	return f
}

// Query encodes f, omitting default values.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("q", f.Search)
	}
	if len(f.Designations) > 0 {
		q.Set("d", strings.Join(f.Designations, ","))
	}
	if f.MinCredits > DefaultMinCredits {
		q.Set("min", strconv.Itoa(f.MinCredits))
	}
	if f.MaxCredits > 0 && f.MaxCredits < DefaultMaxCredits {
		q.Set("max", strconv.Itoa(f.MaxCredits))
	}
	if f.Sort != "" && f.Sort != SortTitleAsc {
		q.Set("sort", string(f.Sort))
	}
	return q
}

// defaultRange reports whether the credit range is untouched.
func (f Filter) defaultRange() bool {
	return f.MinCredits <= DefaultMinCredits && f.MaxCredits >= DefaultMaxCredits
}

// Active reports whether anything narrows the list. Sort alone does not.
func (f Filter) Active() bool {
	return f.Search != "" || len(f.Designations) > 0 || !f.defaultRange()
}

func (f Filter) HasDesignation(slug string) bool {
	return slices.Contains(f.Designations, slug)
}

// Keep reports whether c passes every filter except sort.
func (f Filter) Keep(c *wp.Course) bool {
	if f.Search != "" && !matchesSearch(c, f.Search) {
		return false
	}
	if len(f.Designations) > 0 {
		ok := false
		for _, slug := range f.Designations {
			if d, found := DesignationBySlug(slug); found && d.Matches(c) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	credits, has := MaxCredits(c)
	if !has {
		return f.defaultRange()
	}
	return credits >= float64(f.MinCredits) && credits <= float64(f.MaxCredits)
}
