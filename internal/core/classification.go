package core

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mikey/inbox-data-requests/internal/utils"
)

// Field names of the classification response schema
const (
	FieldCompanyName     = "company_name"
	FieldInteractionType = "interaction_type"
	FieldWebsite         = "website"
	// FieldCategoryAlias is the name some consumers historically read the
	// interaction value from; it is accepted on input and never emitted.
	FieldCategoryAlias = "category"
)

// RequiredFields lists the fields every classification answer must carry
var RequiredFields = []string{FieldCompanyName, FieldInteractionType, FieldWebsite}

// InteractionEnum lists the allowed interaction values in schema order
var InteractionEnum = []string{string(Interacted), string(NotInteracted)}

// SystemInstruction primes the model for interaction classification
const SystemInstruction = `You are a helpful AI that helps classify emails and extract relevant information.

All emails are classified into one of the following categories: interacted, not interacted.
Interacted emails are triggered directly by a user's action.
They are functional and usually contain important information, such as confirmations (order confirmations,
password resets, account creation), notifications about transactions, or updates on user-initiated requests.

Not interacted emails are not triggered by any specific user action. They are often used to keep users engaged,
provide updates, send offers, or remind users of products/services. Examples include newsletters, promotional emails, and other marketing content.`

const promptFormat = `Based on the following email content, identify the following:
1. The name of the company (if not mentioned explicitly, infer from the context).
2. Classify the email into one of the following categories: interacted, not interacted.
3. Company website (if not mentioned explicitly, infer from the context).

Respond only with a JSON object with the keys company_name, interaction_type and website.

Email content:
%s`

// BuildPrompt embeds a message body into the classification prompt
func BuildPrompt(body string) string {
	return fmt.Sprintf(promptFormat, body)
}

type classificationResponse struct {
	CompanyName     *string `json:"company_name"`
	InteractionType *string `json:"interaction_type"`
	Category        *string `json:"category"`
	Website         *string `json:"website"`
}

// ParseClassification validates a model answer against the response schema.
// Text around the JSON object (code fences, preambles) is tolerated.
func ParseClassification(text string) (*ClassificationResult, error) {
	var resp classificationResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		extracted, ok := utils.ExtractJSON(text)
		if !ok {
			return nil, fmt.Errorf("%w: no JSON object in model response", ErrInvalidClassification)
		}
		resp = classificationResponse{}
		if err := json.Unmarshal([]byte(extracted), &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidClassification, err)
		}
	}

	interaction := resp.InteractionType
	if interaction == nil {
		interaction = resp.Category
	}

	switch {
	case resp.CompanyName == nil:
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidClassification, FieldCompanyName)
	case interaction == nil:
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidClassification, FieldInteractionType)
	case resp.Website == nil:
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidClassification, FieldWebsite)
	}

	kind, err := ParseInteractionType(*interaction)
	if err != nil {
		return nil, err
	}

	company := strings.TrimSpace(*resp.CompanyName)
	if company == "" {
		return nil, fmt.Errorf("%w: empty %s", ErrInvalidClassification, FieldCompanyName)
	}

	return &ClassificationResult{
		CompanyName:     company,
		InteractionType: kind,
		Website:         strings.TrimSpace(*resp.Website),
	}, nil
}

// ParseInteractionType maps loose spellings onto the two interaction values
func ParseInteractionType(s string) (InteractionType, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("_", " ", "-", " ").Replace(normalized)
	switch InteractionType(normalized) {
	case Interacted:
		return Interacted, nil
	case NotInteracted:
		return NotInteracted, nil
	}
	return "", fmt.Errorf("%w: unknown interaction type %q", ErrInvalidClassification, s)
}
