// Package prompts holds the Discord content templates. Each template renders
// caller fields into a single prompt plus the generation options it is sent
// with.
package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/gildcraft/guildgen/pkg/generate"
	"github.com/gildcraft/guildgen/pkg/models"
)

// ErrUnknownTemplate is returned for a template name that is not registered.
var ErrUnknownTemplate = errors.New("unknown template")

// MissingFieldsError lists required fields that were absent or blank, in the
// template's declared order.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing required fields: " + strings.Join(e.Fields, ", ")
}

// Template is one content generator.
type Template struct {
	Name        string
	Description string
	Required    []string
	Optional    []string
	// MaxTokens is the output budget; zero uses the forwarder default.
	MaxTokens int

	body *template.Template
}

// Rendered is a prompt ready for the forwarder.
type Rendered struct {
	Template string
	Prompt   string
	Options  generate.Options
}

var (
	registry = map[string]*Template{}
	order    []string
)

func register(t *Template, text string) {
	t.body = template.Must(template.New(t.Name).Option("missingkey=zero").Parse(text))
	registry[t.Name] = t
	order = append(order, t.Name)
}

// Get returns the named template.
func Get(name string) (*Template, bool) {
	t, ok := registry[name]
	return t, ok
}

// List describes every template in registration order.
func List() []models.TemplateInfo {
	out := make([]models.TemplateInfo, 0, len(order))
	for _, name := range order {
		out = append(out, registry[name].Info())
	}
	return out
}

// Info describes the template.
func (t *Template) Info() models.TemplateInfo {
	return models.TemplateInfo{
		Name:        t.Name,
		Description: t.Description,
		Required:    t.Required,
		Optional:    t.Optional,
		MaxTokens:   t.MaxTokens,
	}
}

// Render fills the template with fields. Unknown fields are ignored.
func (t *Template) Render(fields map[string]string) (Rendered, error) {
	var missing []string
	for _, f := range t.Required {
		if strings.TrimSpace(fields[f]) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return Rendered{}, &MissingFieldsError{Fields: missing}
	}

	var b strings.Builder
	if err := t.body.Execute(&b, fields); err != nil {
		return Rendered{}, fmt.Errorf("render %s: %w", t.Name, err)
	}
	return Rendered{
		Template: t.Name,
		Prompt:   strings.TrimSpace(b.String()),
		Options:  generate.Options{MaxTokens: t.MaxTokens},
	}, nil
}

// Render looks up a template by name and renders it.
func Render(name string, fields map[string]string) (Rendered, error) {
	t, ok := Get(name)
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return t.Render(fields)
}

// Fields flattens decoded JSON into template fields. Non-string scalars are
// formatted; null values are dropped.
func Fields(body map[string]any) map[string]string {
	out := make(map[string]string, len(body))
	for k, v := range body {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case float64, bool:
			out[k] = fmt.Sprint(val)
		default:
			data, err := json.Marshal(val)
			if err == nil {
				out[k] = string(data)
			}
		}
	}
	return out
}
