package templates

import (
	"context"
	"html/template"
	"strings"
	"testing"

	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

func stub(name string) *Template {
	return &Template{
		Name: name,
		Render: func(context.Context, wp.Node) (template.HTML, error) {
			return template.HTML("<p>" + name + "</p>"), nil
		},
	}
}

// --- Register

func TestRegister_DefaultAndOverride(t *testing.T) {
	r := NewRegistry()
	page, landing := stub("page"), stub("landing")
	r.Register(wp.TypePage, page)
	r.Register(wp.TypePage, landing, "template-landing", "Landing Page")

	if !r.Has(wp.TypePage) {
		t.Fatal("Page should be registered")
	}
	for _, name := range []string{"template-landing", "Landing Page"} {
		if !r.HasTemplate(wp.TypePage, name) {
			t.Errorf("HasTemplate(%q) = false", name)
		}
	}
	if got, _ := r.lookup(wp.TypePage, ""); got != page {
		t.Fatalf("default = %v, want page", got.Name)
	}
	if got, _ := r.lookup(wp.TypePage, "Landing Page"); got != landing {
		t.Fatalf("override = %v, want landing", got.Name)
	}
}

func TestRegister_FirstOverrideBecomesDefault(t *testing.T) {
	r := NewRegistry()
	landing := stub("landing")
	r.Register(wp.TypePage, landing, "template-landing")

	got, ok := r.lookup(wp.TypePage, "")
	if !ok || got != landing {
		t.Fatal("a new entry should take its first template as default")
	}

	page := stub("page")
	r.Register(wp.TypePage, page)
	if got, _ := r.lookup(wp.TypePage, ""); got != page {
		t.Fatal("a later default registration should replace it")
	}
	if got, _ := r.lookup(wp.TypePage, "template-landing"); got != landing {
		t.Fatal("override lost after default replaced")
	}
}

func TestRegister_LastWins(t *testing.T) {
	r := NewRegistry()
	r.Register(wp.TypePost, stub("a"))
	b := stub("b")
	r.Register(wp.TypePost, b)
	if got, _ := r.lookup(wp.TypePost, ""); got != b {
		t.Fatalf("got %s, want b", got.Name)
	}
}

func TestRegister_IgnoresEmpty(t *testing.T) {
	r := NewRegistry()
	r.Register("", stub("x"))
	r.Register(wp.TypePost, nil)
	if len(r.Types()) != 0 {
		t.Fatalf("Types = %v, want none", r.Types())
	}
}

func TestLookup_UnknownHintFallsBack(t *testing.T) {
	r := NewRegistry()
	page := stub("page")
	r.Register(wp.TypePage, page)
	if got, ok := r.lookup(wp.TypePage, "unknown-template"); !ok || got != page {
		t.Fatal("unknown override should fall back to the default")
	}
	if _, ok := r.lookup(wp.TypeCourse, ""); ok {
		t.Fatal("unregistered type should report !ok")
	}
}

func TestTypes_Sorted(t *testing.T) {
	r := NewRegistry()
	r.Register(wp.TypeTag, stub("c"))
	r.Register(wp.TypePage, stub("p"))
	r.Register(wp.TypeCourse, stub("k"))
	got := r.Types()
	want := []wp.ContentType{wp.TypeCourse, wp.TypePage, wp.TypeTag}
	if len(got) != len(want) {
		t.Fatalf("Types = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Types = %v, want %v", got, want)
		}
	}
}

// --- Alias

func TestAlias(t *testing.T) {
	r := NewRegistry()
	r.Register(wp.TypePage, stub("page"))
	landing := stub("landing")
	r.Register(wp.TypePage, landing, "template-landing")

	if err := r.Alias(wp.TypePage, "template-landing-v2", "template-landing"); err != nil {
		t.Fatalf("Alias: %v", err)
	}
	if got, _ := r.lookup(wp.TypePage, "template-landing-v2"); got != landing {
		t.Fatal("alias should select the landing template")
	}
}

func TestAlias_Errors(t *testing.T) {
	r := NewRegistry()
	r.Register(wp.TypePage, stub("page"))

	tests := []struct {
		name        string
		ct          wp.ContentType
		alias, to   string
		errContains string
	}{
		{"empty alias", wp.TypePage, "", "template-landing", "empty alias"},
		{"unregistered type", wp.TypeCourse, "x", "y", "no templates registered"},
		{"unknown target", wp.TypePage, "x", "template-landing", `no template named "template-landing"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Alias(tt.ct, tt.alias, tt.to)
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Fatalf("err = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

// --- LoadAliases

func TestLoadAliases(t *testing.T) {
	r := NewRegistry()
	r.Register(wp.TypePage, stub("page"))
	contact := stub("contact")
	r.Register(wp.TypePage, contact, "template-contact")

	doc := `
Page:
  template-contact-us: template-contact
  Contact Us Page: template-contact
`
	n, err := r.LoadAliases(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadAliases: %v", err)
	}
	if n != 2 {
		t.Fatalf("applied = %d, want 2", n)
	}
	if got, _ := r.lookup(wp.TypePage, "Contact Us Page"); got != contact {
		t.Fatal("alias from yaml not applied")
	}
}

func TestLoadAliases_ReportsEveryBadEntry(t *testing.T) {
	r := NewRegistry()
	r.Register(wp.TypePage, stub("landing"), "template-landing")

	doc := `
Page:
  good: template-landing
  bad: template-missing
FlmsCourse:
  course-v2: course
`
	n, err := r.LoadAliases(strings.NewReader(doc))
	if n != 1 {
		t.Fatalf("applied = %d, want 1", n)
	}
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{`"bad"`, `"course-v2"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadAliases_EmptyAndInvalid(t *testing.T) {
	r := NewRegistry()
	if n, err := r.LoadAliases(strings.NewReader("")); n != 0 || err != nil {
		t.Fatalf("empty doc: n=%d err=%v", n, err)
	}
	if _, err := r.LoadAliases(strings.NewReader("Page: [not, a, map]")); err == nil {
		t.Fatal("expected a parse error")
	}
}
