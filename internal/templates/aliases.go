package templates

import (
	"errors"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/beaconhillfe/bhfe-web/internal/wp"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// LoadAliases reads a YAML document of the form
//
//	Page:
//	  template-landing-v2: template-landing
//
// and registers each alias against an existing override. It returns the
// number of aliases applied; every bad entry is reported in the error.
func (r *Registry) LoadAliases(rd io.Reader) (int, error) {
	raw, err := io.ReadAll(rd)
	if err != nil {
		return 0, xerrors.Wrap(err, "read template aliases")
	}
	var doc map[string]map[string]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return 0, xerrors.Wrap(err, "parse template aliases")
	}

	types := make([]string, 0, len(doc))
	for ct := range doc {
		types = append(types, ct)
	}
	sort.Strings(types)

	var (
		n    int
		errs []error
	)
	for _, ct := range types {
		aliases := make([]string, 0, len(doc[ct]))
		for a := range doc[ct] {
			aliases = append(aliases, a)
		}
		sort.Strings(aliases)
		for _, a := range aliases {
			if err := r.Alias(wp.ContentType(ct), a, doc[ct][a]); err != nil {
				errs = append(errs, err)
				continue
			}
			n++
		}
	}
	return n, errors.Join(errs...)
}
