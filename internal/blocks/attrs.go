package blocks

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Attributes is the typed payload of a block. The set of implementations is
// closed: one struct per core block, Generic for blocks registered without
// a schema, and Unknown for blocks that carry nothing but HTML.
type Attributes interface{ isAttributes() }

type Paragraph struct {
	Content         string `json:"content"`
	DropCap         bool   `json:"dropCap"`
	Align           string `json:"align"`
	FontSize        string `json:"fontSize"`
	TextColor       string `json:"textColor"`
	BackgroundColor string `json:"backgroundColor"`
	ClassName       string `json:"className"`
	Style           Style  `json:"style"`
}

type Heading struct {
	Content         string `json:"content"`
	Level           int    `json:"level"`
	TextAlign       string `json:"textAlign"`
	Anchor          string `json:"anchor"`
	TextColor       string `json:"textColor"`
	BackgroundColor string `json:"backgroundColor"`
	ClassName       string `json:"className"`
	Style           Style  `json:"style"`
}

type List struct {
	Ordered   bool   `json:"ordered"`
	Values    string `json:"values"`
	Start     *int   `json:"start"`
	Reversed  bool   `json:"reversed"`
	ClassName string `json:"className"`
	Style     Style  `json:"style"`
}

type ListItem struct {
	Content   string `json:"content"`
	ClassName string `json:"className"`
	Style     Style  `json:"style"`
}

type Quote struct {
	Value     string `json:"value"`
	Citation  string `json:"citation"`
	Align     string `json:"align"`
	ClassName string `json:"className"`
	Style     Style  `json:"style"`
}

type Image struct {
	URL        string  `json:"url"`
	Alt        string  `json:"alt"`
	Caption    string  `json:"caption"`
	Width      FlexInt `json:"width"`
	Height     FlexInt `json:"height"`
	Align      string  `json:"align"`
	Href       string  `json:"href"`
	LinkTarget string  `json:"linkTarget"`
	Title      string  `json:"title"`
	ClassName  string  `json:"className"`
	Style      Style   `json:"style"`
}

type GalleryImage struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
	ID      int    `json:"id"`
	Link    string `json:"link"`
}

type Gallery struct {
	Images    []GalleryImage `json:"images"`
	Columns   int            `json:"columns"`
	Caption   string         `json:"caption"`
	ImageCrop *bool          `json:"imageCrop"`
	LinkTo    string         `json:"linkTo"`
	Align     string         `json:"align"`
	ClassName string         `json:"className"`
}

type Embed struct {
	URL              string `json:"url"`
	Caption          string `json:"caption"`
	Type             string `json:"type"`
	ProviderNameSlug string `json:"providerNameSlug"`
	Responsive       *bool  `json:"responsive"`
	Align            string `json:"align"`
	ClassName        string `json:"className"`
}

type Columns struct {
	VerticalAlignment string `json:"verticalAlignment"`
	IsStackedOnMobile *bool  `json:"isStackedOnMobile"`
	ClassName         string `json:"className"`
	Style             Style  `json:"style"`
}

type Column struct {
	Width             string `json:"width"`
	VerticalAlignment string `json:"verticalAlignment"`
	ClassName         string `json:"className"`
	Style             Style  `json:"style"`
}

type Layout struct {
	Type           string `json:"type"`
	JustifyContent string `json:"justifyContent"`
	Orientation    string `json:"orientation"`
}

type Buttons struct {
	Layout    Layout `json:"layout"`
	ClassName string `json:"className"`
	Style     Style  `json:"style"`
}

type Button struct {
	Text            string  `json:"text"`
	URL             string  `json:"url"`
	LinkTarget      string  `json:"linkTarget"`
	Rel             string  `json:"rel"`
	BackgroundColor string  `json:"backgroundColor"`
	TextColor       string  `json:"textColor"`
	Gradient        string  `json:"gradient"`
	Width           FlexInt `json:"width"`
	ClassName       string  `json:"className"`
	Style           Style   `json:"style"`
}

type Separator struct {
	Opacity   string `json:"opacity"`
	ClassName string `json:"className"`
	Style     Style  `json:"style"`
}

type Spacer struct {
	Height    Length `json:"height"`
	ClassName string `json:"className"`
}

// Generic holds the raw attribute bag of a block with no schema here, for
// renderers registered outside this package.
type Generic map[string]any

// Unknown is the attribute variant of blocks that carry only HTML.
type Unknown struct{}

func (Paragraph) isAttributes() {}
func (Heading) isAttributes()   {}
func (List) isAttributes()      {}
func (ListItem) isAttributes()  {}
func (Quote) isAttributes()     {}
func (Image) isAttributes()     {}
func (Gallery) isAttributes()   {}
func (Embed) isAttributes()     {}
func (Columns) isAttributes()   {}
func (Column) isAttributes()    {}
func (Buttons) isAttributes()   {}
func (Button) isAttributes()    {}
func (Separator) isAttributes() {}
func (Spacer) isAttributes()    {}
func (Generic) isAttributes()   {}
func (Unknown) isAttributes()   {}

// String returns the value for key when it is a string.
func (g Generic) String(key string) string {
	s, _ := g[key].(string)
	return s
}

type Style struct {
	Color      ColorStyle      `json:"color"`
	Typography TypographyStyle `json:"typography"`
	Spacing    SpacingStyle    `json:"spacing"`
	Border     BorderStyle     `json:"border"`
}

type ColorStyle struct {
	Text       string `json:"text"`
	Background string `json:"background"`
}

type TypographyStyle struct {
	FontSize   string `json:"fontSize"`
	LineHeight string `json:"lineHeight"`
	FontWeight string `json:"fontWeight"`
}

type SpacingStyle struct {
	BlockGap Gap `json:"blockGap"`
	Padding  Box `json:"padding"`
}

type Box struct {
	Top    string `json:"top"`
	Right  string `json:"right"`
	Bottom string `json:"bottom"`
	Left   string `json:"left"`
}

type BorderStyle struct {
	Radius string `json:"radius"`
	Width  string `json:"width"`
	Color  string `json:"color"`
}

// Gap is a block gap. The editor stores it either as a single length or as
// {"top":..,"left":..}; the horizontal component wins for the latter.
type Gap string

func (g *Gap) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*g = Gap(s)
		return nil
	}
	var axes struct {
		Top  string `json:"top"`
		Left string `json:"left"`
	}
	if err := json.Unmarshal(b, &axes); err != nil {
		return err
	}
	if axes.Left != "" {
		*g = Gap(axes.Left)
	} else {
		*g = Gap(axes.Top)
	}
	return nil
}

// FlexInt accepts a JSON number or a numeric string such as "640" or "640px".
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	}
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// unparseable sizes are treated as unset
		return nil
	}
	*n = FlexInt(f)
	return nil
}

// Length is a CSS length. Bare numbers from older editor versions are
// pixels.
type Length string

func (l *Length) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Length(s)
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*l = Length(strconv.FormatFloat(f, 'f', -1, 64) + "px")
	return nil
}

var schemas = map[string]func(json.RawMessage) (Attributes, error){
	"core/paragraph":     decodeAs[Paragraph],
	"core/heading":       decodeAs[Heading],
	"core/list":          decodeAs[List],
	"core/list-item":     decodeAs[ListItem],
	"core/quote":         decodeAs[Quote],
	"core/image":         decodeAs[Image],
	"core/gallery":       decodeAs[Gallery],
	"core/embed":         decodeAs[Embed],
	"core-embed/youtube": decodeAs[Embed],
	"core-embed/vimeo":   decodeAs[Embed],
	"core-embed/twitter": decodeAs[Embed],
	"core/columns":       decodeAs[Columns],
	"core/column":        decodeAs[Column],
	"core/buttons":       decodeAs[Buttons],
	"core/button":        decodeAs[Button],
	"core/separator":     decodeAs[Separator],
	"core/spacer":        decodeAs[Spacer],
}

func decodeAs[T Attributes](raw json.RawMessage) (Attributes, error) {
	var v T
	if isEmptyJSON(raw) {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Unknown{}, err
	}
	return v, nil
}

// DecodeAttributes turns the raw attribute JSON of a block into its typed
// variant. Malformed attributes yield Unknown along with the error; callers
// mark such a block BadAttrs so it renders through its HTML fallback.
func DecodeAttributes(name string, raw json.RawMessage) (Attributes, error) {
	if dec, ok := schemas[name]; ok {
		return dec(raw)
	}
	if isEmptyJSON(raw) {
		return Unknown{}, nil
	}
	var g Generic
	if err := json.Unmarshal(raw, &g); err != nil {
		return Unknown{}, err
	}
	return g, nil
}

// HasSchema reports whether name decodes to a typed attribute struct.
func HasSchema(name string) bool {
	_, ok := schemas[name]
	return ok
}

func isEmptyJSON(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || string(t) == "null" || string(t) == "{}"
}

// The GraphQL schema exposes object-valued attributes such as style and
// layout as JSON-encoded strings. Both shapes decode.

func (s *Style) UnmarshalJSON(b []byte) error {
	type plain Style
	return unmarshalEncoded(b, (*plain)(s))
}

func (l *Layout) UnmarshalJSON(b []byte) error {
	type plain Layout
	return unmarshalEncoded(b, (*plain)(l))
}

func unmarshalEncoded(b []byte, v any) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			return nil
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, v)
}
