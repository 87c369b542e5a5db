package wp

import (
	"github.com/beaconhillfe/bhfe-web/internal/blocks"
)

// ContentType is the GraphQL __typename of a content node.
type ContentType string

const (
	TypePage     ContentType = "Page"
	TypePost     ContentType = "Post"
	TypeCourse   ContentType = "FlmsCourse"
	TypeCategory ContentType = "Category"
	TypeTag      ContentType = "Tag"
)

// Node is a content node fetched from WordPress. The variants are Page, Post,
// Course, Term and Unknown.
type Node interface {
	Type() ContentType
	ID() string
	URI() string
	TemplateHint() Hints
	isNode()
}

// Hints are the places a node may name its page template. Which one wins is
// up to the caller.
type Hints struct {
	TemplateName    string // template.templateName
	Template        string // template as a bare string
	PageTemplate    string
	ACFTemplateType string // acfPageFields.templateType
}

// Base holds the fields every node carries.
type Base struct {
	Typename   ContentType `json:"__typename"`
	NodeID     string      `json:"id"`
	DatabaseID int         `json:"databaseId"`
	NodeURI    string      `json:"uri"`
	Slug       string      `json:"slug"`
	Status     string      `json:"status"`
	Date       string      `json:"date"`
	Modified   string      `json:"modified"`
}

func (b *Base) Type() ContentType { return b.Typename }
func (b *Base) ID() string        { return b.NodeID }
func (b *Base) URI() string       { return b.NodeURI }
func (b *Base) isNode()           {}

// TemplateHint is empty unless the variant overrides it.
func (b *Base) TemplateHint() Hints { return Hints{} }

type Edge[T any] struct {
	Node *T `json:"node"`
}

type Connection[T any] struct {
	Nodes []T `json:"nodes"`
}

type MediaDetails struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Image struct {
	SourceURL    string        `json:"sourceUrl"`
	AltText      string        `json:"altText"`
	MediaDetails *MediaDetails `json:"mediaDetails"`
}

type Link struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type Page struct {
	Base
	Title         string           `json:"title"`
	Content       string           `json:"content"`
	FeaturedImage Edge[Image]      `json:"featuredImage"`
	Template      TemplateRef      `json:"template"`
	PageTemplate  string           `json:"pageTemplate"`
	ACF           *PageFields      `json:"acfPageFields"`
	Contact       *ContactFields   `json:"acfContactFields"`
	Parent        Edge[Link]       `json:"parent"`
	Children      Connection[Link] `json:"children"`
	Blocks        []blocks.Block   `json:"-"`
}

func (p *Page) TemplateHint() Hints {
	h := Hints{
		TemplateName: p.Template.Name,
		Template:     p.Template.Legacy,
		PageTemplate: p.PageTemplate,
	}
	if p.ACF != nil {
		h.ACFTemplateType = p.ACF.TemplateType
	}
	return h
}

type PageFields struct {
	TemplateType    string       `json:"templateType"`
	FlexibleContent []FlexLayout `json:"flexibleContent"`
}

// FlexLayout is one ACF flexible content row. Typename selects which of the
// fields are meaningful.
type FlexLayout struct {
	Typename        string          `json:"__typename"`
	BandID          string          `json:"bandId"`
	BandClasses     string          `json:"bandClasses"`
	Heading         string          `json:"heading"`
	Subheading      string          `json:"subheading"`
	Content         string          `json:"content"`
	TextAlignment   string          `json:"textAlignment"`
	BackgroundImage Edge[Image]     `json:"backgroundImage"`
	Image           Edge[Image]     `json:"image"`
	Caption         string          `json:"caption"`
	Buttons         []ButtonRow     `json:"buttons"`
	AccordionItems  []AccordionItem `json:"accordionItems"`
}

type ButtonRow struct {
	Button *ACFLink `json:"button"`
}

type ACFLink struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Target string `json:"target"`
}

type AccordionItem struct {
	Heading      string `json:"heading"`
	Content      string `json:"content"`
	DefaultState string `json:"defaultState"`
}

type ContactFields struct {
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Hours    string `json:"hours"`
	MapEmbed string `json:"mapEmbed"`
}

type Term struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	URI  string `json:"uri"`
}

type Avatar struct {
	URL string `json:"url"`
}

type Author struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Avatar *Avatar `json:"avatar"`
}

type Post struct {
	Base
	Title         string           `json:"title"`
	Excerpt       string           `json:"excerpt"`
	Content       string           `json:"content"`
	FeaturedImage Edge[Image]      `json:"featuredImage"`
	Categories    Connection[Term] `json:"categories"`
	Author        Edge[Author]     `json:"author"`
	Blocks        []blocks.Block   `json:"-"`
}

type Credit struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Credits string `json:"credits"`
}

type Material struct {
	Title string `json:"title"`
	File  string `json:"file"`
}

type MasterListFields struct {
	IARApprovalDate string `json:"iarApprovalDate"`
	Notes           string `json:"notes"`
}

type Course struct {
	Base
	Title        string            `json:"title"`
	CourseNumber string            `json:"courseNumber"`
	Description  string            `json:"courseDescription"`
	Preview      string            `json:"coursePreview"`
	WooProductID int               `json:"wooProductId"`
	Credits      []Credit          `json:"courseCredits"`
	Materials    []Material        `json:"courseMaterials"`
	MasterList   *MasterListFields `json:"masterCourseListFields"`
}

// Taxonomy is a category or tag archive node.
type Taxonomy struct {
	Base
	Name        string `json:"name"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// Unknown is a node whose __typename has no variant here. Its type tag is
// kept as received.
type Unknown struct {
	Base
	Title   string `json:"title"`
	Content string `json:"content"`
}

var (
	_ Node = (*Page)(nil)
	_ Node = (*Post)(nil)
	_ Node = (*Course)(nil)
	_ Node = (*Taxonomy)(nil)
	_ Node = (*Unknown)(nil)
)

// Title returns the display title of n, or "" for nil.
func Title(n Node) string {
	if IsNil(n) {
		return ""
	}
	switch v := n.(type) {
	case *Page:
		return v.Title
	case *Post:
		return v.Title
	case *Course:
		return v.Title
	case *Taxonomy:
		return v.Name
	case *Unknown:
		return v.Title
	}
	return ""
}

// IsNil reports whether n is nil or a nil pointer of one of the variants.
func IsNil(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *Page:
		return v == nil
	case *Post:
		return v == nil
	case *Course:
		return v == nil
	case *Taxonomy:
		return v == nil
	case *Unknown:
		return v == nil
	}
	return false
}
