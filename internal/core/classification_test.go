package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification_Valid(t *testing.T) {
	got, err := ParseClassification(`{"company_name":"Acme Corp","interaction_type":"interacted","website":"acme.com"}`)
	require.NoError(t, err)
	assert.Equal(t, &ClassificationResult{
		CompanyName:     "Acme Corp",
		InteractionType: Interacted,
		Website:         "acme.com",
	}, got)
}

func TestParseClassification_FencedResponse(t *testing.T) {
	text := "Here you go:\n```json\n{\"company_name\": \"Shop\", \"interaction_type\": \"not interacted\", \"website\": \"https://shop.example\"}\n```"
	got, err := ParseClassification(text)
	require.NoError(t, err)
	assert.Equal(t, NotInteracted, got.InteractionType)
	assert.Equal(t, "https://shop.example", got.Website)
}

func TestParseClassification_CategoryAlias(t *testing.T) {
	got, err := ParseClassification(`{"company_name":"Acme","category":"not_interacted","website":""}`)
	require.NoError(t, err)
	assert.Equal(t, NotInteracted, got.InteractionType)
	assert.Equal(t, "", got.Website)
}

func TestParseClassification_InteractionTypeWinsOverAlias(t *testing.T) {
	got, err := ParseClassification(`{"company_name":"Acme","interaction_type":"interacted","category":"not interacted","website":"acme.com"}`)
	require.NoError(t, err)
	assert.Equal(t, Interacted, got.InteractionType)
}

func TestParseClassification_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":        "sorry, I cannot help",
		"missing company": `{"interaction_type":"interacted","website":"a.com"}`,
		"missing website": `{"company_name":"A","interaction_type":"interacted"}`,
		"missing kind":    `{"company_name":"A","website":"a.com"}`,
		"unknown kind":    `{"company_name":"A","interaction_type":"maybe","website":"a.com"}`,
		"empty company":   `{"company_name":"  ","interaction_type":"interacted","website":"a.com"}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseClassification(text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidClassification))
		})
	}
}

func TestBuildPrompt_EmbedsBody(t *testing.T) {
	prompt := BuildPrompt("Your order #123 has shipped")
	assert.Contains(t, prompt, "Your order #123 has shipped")
	assert.Contains(t, prompt, "interacted, not interacted")
}

func TestRequestType_Valid(t *testing.T) {
	for _, rt := range RequestTypes {
		assert.True(t, rt.Valid())
	}
	assert.False(t, RequestUnset.Valid())
	assert.False(t, RequestType("Delete Everything").Valid())
}
