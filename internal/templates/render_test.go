package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	tmpl := Template{
		Name:    "welcome",
		Content: "{{user}}",
		Embeds:  []Embed{{Description: "Welcome, {{user}}!"}},
	}

	rendered, err := Render(tmpl, Context{"user": "Alex"})
	require.NoError(t, err)
	assert.Equal(t, "Alex", rendered.Content)
	assert.Equal(t, "Welcome, Alex!", rendered.Embeds[0].Description)
}

func TestRenderIsDeterministic(t *testing.T) {
	tmpl := Template{
		Name:    "greeting",
		Content: "Hallo {{name}}, je bent lid #{{count}}",
	}
	ctx := Context{"name": "Daan", "count": "12"}

	first, err := Render(tmpl, ctx)
	require.NoError(t, err)
	second, err := Render(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotContains(t, first.Content, "{{")
}

func TestRenderMissingVariable(t *testing.T) {
	tmpl := Template{
		Name:   "prompt",
		Embeds: []Embed{{Title: "Ticket {{ticket_id}}", Description: "{{user}}"}},
	}

	rendered, err := Render(tmpl, Context{"ticket_id": "abc"})

	var missing *MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "user", missing.Variable)
	assert.Equal(t, "prompt", missing.Template)
	// No partial output on failure
	assert.Equal(t, Template{}, rendered)
}

func TestRenderIgnoresUnusedContextEntries(t *testing.T) {
	tmpl := Template{Name: "plain", Content: "Hallo {{name}}"}

	rendered, err := Render(tmpl, Context{"name": "Eva", "unused": "whatever"})
	require.NoError(t, err)
	assert.Equal(t, "Hallo Eva", rendered.Content)
}

func TestRenderPreservesFieldOrder(t *testing.T) {
	tmpl := Template{
		Name: "ordered",
		Embeds: []Embed{{
			Fields: []Field{
				{Name: "first", Value: "{{a}}"},
				{Name: "second", Value: "{{b}}"},
				{Name: "third", Value: "{{c}}"},
			},
		}},
	}

	rendered, err := Render(tmpl, Context{"a": "1", "b": "2", "c": "3"})
	require.NoError(t, err)

	names := make([]string, 0, 3)
	values := make([]string, 0, 3)
	for _, field := range rendered.Embeds[0].Fields {
		names = append(names, field.Name)
		values = append(values, field.Value)
	}
	assert.Equal(t, []string{"first", "second", "third"}, names)
	assert.Equal(t, []string{"1", "2", "3"}, values)
}

func TestRenderDoesNotMutateTheInput(t *testing.T) {
	tmpl := Template{
		Name:   "immutable",
		Embeds: []Embed{{Title: "{{x}}", Fields: []Field{{Name: "n", Value: "{{x}}"}}}},
	}

	_, err := Render(tmpl, Context{"x": "changed"})
	require.NoError(t, err)
	assert.Equal(t, "{{x}}", tmpl.Embeds[0].Title)
	assert.Equal(t, "{{x}}", tmpl.Embeds[0].Fields[0].Value)
}

func TestRenderStaticTemplate(t *testing.T) {
	tmpl := Template{Name: "static", Content: "No placeholders here"}

	rendered, err := Render(tmpl, Context{})
	require.NoError(t, err)
	assert.Equal(t, tmpl.Content, rendered.Content)
}
