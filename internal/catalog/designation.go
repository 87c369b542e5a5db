package catalog

import (
	"strings"

	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

// Designation is a professional credential a course may award credit for.
type Designation struct {
	Slug  string
	Label string
	// Terms are matched as substrings of lowercased credit names.
	Terms []string
}

var Designations = []Designation{
	{Slug: "cpa", Label: "CPA", Terms: []string{"cpa", "cpe"}},
	{Slug: "cfp", Label: "CFP", Terms: []string{"cfp"}},
	{Slug: "ea-otrp", Label: "EA/OTRP", Terms: []string{"ea", "otrp", "irs"}},
	{Slug: "erpa", Label: "ERPA", Terms: []string{"erpa"}},
	{Slug: "cdfa", Label: "CDFA", Terms: []string{"cdfa"}},
	{Slug: "iwi-cima", Label: "IWI/CIMA", Terms: []string{"iwi", "cima"}},
	{Slug: "iar", Label: "IAR", Terms: []string{"iar"}},
}

func DesignationBySlug(slug string) (Designation, bool) {
	for _, d := range Designations {
		if d.Slug == slug {
			return d, true
		}
	}
	return Designation{}, false
}

// Matches reports whether any credit of c names the designation.
func (d Designation) Matches(c *wp.Course) bool {
	for _, cr := range c.Credits {
		name := strings.ToLower(cr.Name)
		if name == "" {
			continue
		}
		for _, term := range d.Terms {
			if strings.Contains(name, term) {
				return true
			}
		}
	}
	return false
}
