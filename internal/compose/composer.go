package compose

import (
	"fmt"

	"github.com/mikey/inbox-data-requests/internal/core"
)

// Composer fills request templates for a company row
type Composer struct {
	templates Templates
}

// NewComposer creates a new Composer
func NewComposer(templates Templates) *Composer {
	return &Composer{templates: templates}
}

// Compose renders the subject and body for row's request type. The recipient
// is left empty.
func (c *Composer) Compose(row core.CompanyRow, user core.UserProfile) (*core.Draft, error) {
	if !row.RequestType.Valid() {
		return nil, fmt.Errorf("%w: no request type for %s", core.ErrInvalidSelection, row.CompanyName)
	}
	tmpl, ok := c.templates[row.RequestType]
	if !ok {
		return nil, fmt.Errorf("no template for %q", row.RequestType)
	}

	body, err := tmpl.Render(TemplateData{
		CompanyName: row.CompanyName,
		UserName:    user.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render %q request: %w", row.RequestType, err)
	}

	return &core.Draft{
		Company:     row.CompanyName,
		RequestType: row.RequestType,
		Subject:     tmpl.Subject,
		Body:        body,
	}, nil
}
