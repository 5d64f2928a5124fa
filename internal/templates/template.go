package templates

// A Field is one name/value pair inside an embed
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// An Embed is one structured message block inside a template.
// Color is either a configured color name (primary, success, error, warning)
// or a hex literal like "0xffb612"
type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Image       string  `json:"image,omitempty"`
	Footer      string  `json:"footer,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// A Template is a named message body loaded from the templates directory.
// String fields may contain {{name}} placeholder tokens.
// Templates are values: the store hands out copies, so nobody mutates
// what other readers see
type Template struct {
	Name    string  `json:"-"`
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Clone returns a deep copy of the template.
// The embeds slice is the only part that needs copying
func (t Template) Clone() Template {
	out := t
	if t.Embeds != nil {
		out.Embeds = make([]Embed, len(t.Embeds))
		for i, embed := range t.Embeds {
			out.Embeds[i] = embed
			if embed.Fields != nil {
				out.Embeds[i].Fields = make([]Field, len(embed.Fields))
				copy(out.Embeds[i].Fields, embed.Fields)
			}
		}
	}
	return out
}
