// Package compose turns a selected company into an outbound data request.
package compose

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/mikey/inbox-data-requests/internal/core"
)

//go:embed templates.yaml
var defaultTemplates []byte

// TemplateData is the value each template is executed against
type TemplateData struct {
	CompanyName string
	UserName    string
}

// Template is one request kind's subject and body
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`

	body *template.Template
}

// Templates holds one Template per request type
type Templates map[core.RequestType]*Template

// DefaultTemplates returns the built-in GDPR request templates
func DefaultTemplates() (Templates, error) {
	return ParseTemplates(defaultTemplates)
}

// LoadTemplates reads templates from a YAML file; an empty path selects the
// built-in set.
func LoadTemplates(path string) (Templates, error) {
	if path == "" {
		return DefaultTemplates()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}
	return ParseTemplates(data)
}

// ParseTemplates decodes YAML keyed by request type. Every request type must
// be present.
func ParseTemplates(data []byte) (Templates, error) {
	var raw map[string]*Template
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	out := make(Templates, len(raw))
	for name, tmpl := range raw {
		rt := core.RequestType(name)
		if !rt.Valid() {
			return nil, fmt.Errorf("unknown request type %q in templates", name)
		}
		if tmpl == nil || strings.TrimSpace(tmpl.Subject) == "" {
			return nil, fmt.Errorf("template %q has no subject", name)
		}
		parsed, err := template.New(name).Option("missingkey=error").Parse(tmpl.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid body for %q: %w", name, err)
		}
		tmpl.body = parsed
		out[rt] = tmpl
	}

	for _, rt := range core.RequestTypes {
		if _, ok := out[rt]; !ok {
			return nil, fmt.Errorf("missing template for %q", rt)
		}
	}
	return out, nil
}

// Render executes the body template
func (t *Template) Render(data TemplateData) (string, error) {
	var sb strings.Builder
	if err := t.body.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
