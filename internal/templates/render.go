package templates

import (
	"regexp"
)

// Context maps placeholder names to the values substituted into a template.
// It is scoped to a single render call
type Context map[string]string

var placeholder = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Render substitutes every {{name}} token in the template with the value in
// ctx and returns the rendered copy. A placeholder without a context entry
// fails with MissingVariableError and produces no partial output. Context
// entries that no placeholder uses are ignored. Everything around the
// placeholders, including embed and field order, is preserved as is
func Render(tmpl Template, ctx Context) (Template, error) {
	out := tmpl.Clone()

	var err error
	sub := func(s string) string {
		if err != nil {
			return s
		}
		var rendered string
		rendered, err = substitute(tmpl.Name, s, ctx)
		return rendered
	}

	out.Content = sub(out.Content)
	for i := range out.Embeds {
		embed := &out.Embeds[i]
		embed.Title = sub(embed.Title)
		embed.Description = sub(embed.Description)
		embed.Footer = sub(embed.Footer)
		for j := range embed.Fields {
			embed.Fields[j].Name = sub(embed.Fields[j].Name)
			embed.Fields[j].Value = sub(embed.Fields[j].Value)
		}
	}
	if err != nil {
		return Template{}, err
	}
	return out, nil
}

func substitute(templateName string, s string, ctx Context) (string, error) {
	var missing string
	rendered := placeholder.ReplaceAllStringFunc(s, func(token string) string {
		name := token[2 : len(token)-2]
		value, ok := ctx[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return token
		}
		return value
	})
	if missing != "" {
		return "", &MissingVariableError{Template: templateName, Variable: missing}
	}
	return rendered, nil
}
