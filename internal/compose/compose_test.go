package compose

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-data-requests/internal/core"
)

var testUser = core.UserProfile{Name: "Jane Doe", Email: "jane@example.com"}

func newComposer(t *testing.T) *Composer {
	t.Helper()
	templates, err := DefaultTemplates()
	require.NoError(t, err)
	return NewComposer(templates)
}

func TestDefaultTemplates(t *testing.T) {
	templates, err := DefaultTemplates()
	require.NoError(t, err)
	require.Len(t, templates, 3)

	assert.Equal(t, "GDPR Data Access Request", templates[core.RequestAccess].Subject)
	assert.Equal(t, "GDPR Data Modification Request", templates[core.RequestModify].Subject)
	assert.Equal(t, "GDPR Data Erasure Request", templates[core.RequestErase].Subject)
}

func TestCompose_FillsPlaceholders(t *testing.T) {
	c := newComposer(t)
	row := core.CompanyRow{CompanyName: "Acme Corp", RequestType: core.RequestAccess}

	draft, err := c.Compose(row, testUser)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", draft.Company)
	assert.Equal(t, "GDPR Data Access Request", draft.Subject)
	assert.Contains(t, draft.Body, "Article 15")
	assert.Contains(t, draft.Body, "personal data that Acme Corp have collected")
	assert.True(t, strings.HasSuffix(draft.Body, "Sincerely,\nJane Doe\n"))
	assert.Empty(t, draft.To)

	draft, err = c.Compose(core.CompanyRow{CompanyName: "Acme Corp", RequestType: core.RequestErase}, testUser)
	require.NoError(t, err)
	assert.Contains(t, draft.Body, "Article 17")
	assert.Contains(t, draft.Body, "processed by Acme Corp,")
}

func TestCompose_RejectsUnsetType(t *testing.T) {
	c := newComposer(t)
	_, err := c.Compose(core.CompanyRow{CompanyName: "Acme", RequestType: core.RequestUnset}, testUser)
	assert.ErrorIs(t, err, core.ErrInvalidSelection)
}

func TestLoadTemplates_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `
Request Data:
  subject: Access please
  body: "Hi {{.CompanyName}}, from {{.UserName}}"
Modify Data:
  subject: Fix please
  body: "Fix it"
Erase Data:
  subject: Erase please
  body: "Erase it"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	templates, err := LoadTemplates(path)
	require.NoError(t, err)
	body, err := templates[core.RequestAccess].Render(TemplateData{CompanyName: "Acme", UserName: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Acme, from Jane", body)
}

func TestParseTemplates_Errors(t *testing.T) {
	_, err := ParseTemplates([]byte("Request Data:\n  subject: x\n  body: y\n"))
	assert.ErrorContains(t, err, "missing template")

	_, err = ParseTemplates([]byte("Delete Everything:\n  subject: x\n  body: y\n"))
	assert.ErrorContains(t, err, "unknown request type")

	_, err = ParseTemplates([]byte("Request Data:\n  subject: x\n  body: \"{{.Broken\"\n"))
	assert.Error(t, err)
}

func decodeEnvelope(t *testing.T, env *core.Envelope) (*mail.Reader, string) {
	t.Helper()
	raw, err := base64.URLEncoding.DecodeString(env.Raw)
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	return mr, string(body)
}

func TestBuildEnvelope(t *testing.T) {
	body := "Grüße,\nJane"
	env, err := BuildEnvelope(testUser, "privacy@acme.com", "GDPR Data Access Request", body)
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", env.From)
	assert.Equal(t, "privacy@acme.com", env.To)
	assert.True(t, strings.HasPrefix(env.MessageID, "<"))
	assert.True(t, strings.HasSuffix(env.MessageID, "@example.com>"))

	mr, decoded := decodeEnvelope(t, env)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "GDPR Data Access Request", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "privacy@acme.com", to[0].Address)

	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", from[0].Name)

	mediaType, params, err := mr.Header.ContentType()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mediaType)
	assert.Equal(t, "utf-8", params["charset"])

	assert.Equal(t, body, strings.ReplaceAll(decoded, "\r\n", "\n"))
}

func TestBuildEnvelope_InvalidRecipient(t *testing.T) {
	_, err := BuildEnvelope(testUser, "No email available", "s", "b")
	assert.Error(t, err)
}

type stubLocator struct {
	url   string
	err   error
	calls int
}

func (l *stubLocator) PrivacyURL(ctx context.Context, website string) (string, error) {
	l.calls++
	return l.url, l.err
}

type stubContacts struct {
	byURL map[string]string
}

func (c stubContacts) Extract(ctx context.Context, pageURL string) (string, error) {
	if email, ok := c.byURL[pageURL]; ok {
		return email, nil
	}
	return "", core.ErrNoContact
}

type recordingSender struct {
	sent []*core.Envelope
	err  error
}

func (s *recordingSender) Send(ctx context.Context, env *core.Envelope) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, env)
	return "id-" + env.To, nil
}

func newService(t *testing.T, locator PrivacyLocator, contacts ContactFinder, sender core.MailSender) *RequestService {
	t.Helper()
	return NewRequestService(newComposer(t), locator, contacts, sender, testUser, nil)
}

func TestPrepare_DiscoversContact(t *testing.T) {
	locator := &stubLocator{url: "https://acme.com/privacy"}
	contacts := stubContacts{byURL: map[string]string{"https://acme.com/privacy": "dpo@acme.com"}}
	svc := newService(t, locator, contacts, &recordingSender{})

	draft, err := svc.Prepare(context.Background(), core.CompanyRow{
		CompanyName: "Acme Corp", Website: "acme.com", RequestType: core.RequestModify,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "dpo@acme.com", draft.To)
	assert.Equal(t, "GDPR Data Modification Request", draft.Subject)
}

func TestPrepare_OverrideSkipsDiscovery(t *testing.T) {
	locator := &stubLocator{err: errors.New("should not be called")}
	svc := newService(t, locator, stubContacts{}, &recordingSender{})

	draft, err := svc.Prepare(context.Background(), core.CompanyRow{
		CompanyName: "Acme Corp", Website: "acme.com", RequestType: core.RequestAccess,
	}, "me+test@example.com")
	require.NoError(t, err)
	assert.Equal(t, "me+test@example.com", draft.To)
	assert.Zero(t, locator.calls)
}

func TestPrepare_NoContact(t *testing.T) {
	row := core.CompanyRow{CompanyName: "Acme Corp", Website: "acme.com", RequestType: core.RequestAccess}

	svc := newService(t, &stubLocator{err: errors.New("no links")}, stubContacts{}, &recordingSender{})
	_, err := svc.Prepare(context.Background(), row, "")
	assert.ErrorIs(t, err, core.ErrNoContact)

	svc = newService(t, &stubLocator{url: "https://acme.com/privacy"}, stubContacts{}, &recordingSender{})
	_, err = svc.Prepare(context.Background(), row, "")
	assert.ErrorIs(t, err, core.ErrNoContact)

	row.Website = ""
	_, err = svc.Prepare(context.Background(), row, "")
	assert.ErrorIs(t, err, core.ErrNoContact)
}

func TestSend_DeliversEnvelope(t *testing.T) {
	sender := &recordingSender{}
	svc := newService(t, &stubLocator{}, stubContacts{}, sender)

	id, err := svc.Send(context.Background(), &core.Draft{
		Company: "Acme Corp", RequestType: core.RequestAccess,
		To: "dpo@acme.com", Subject: "GDPR Data Access Request", Body: "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-dpo@acme.com", id)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "GDPR Data Access Request", sender.sent[0].Subject)
}

func TestSend_PropagatesTransportError(t *testing.T) {
	boom := errors.New("smtp down")
	svc := newService(t, &stubLocator{}, stubContacts{}, &recordingSender{err: boom})

	_, err := svc.Send(context.Background(), &core.Draft{
		Company: "Acme", RequestType: core.RequestAccess, To: "dpo@acme.com", Subject: "s", Body: "b",
	})
	assert.ErrorIs(t, err, boom)
}

func TestSendAll_ContinuesPastFailures(t *testing.T) {
	locator := &stubLocator{url: "https://acme.com/privacy"}
	contacts := stubContacts{byURL: map[string]string{"https://acme.com/privacy": "dpo@acme.com"}}
	sender := &recordingSender{}
	svc := newService(t, locator, contacts, sender)

	rows := []core.CompanyRow{
		{CompanyName: "Acme Corp", Website: "acme.com", Selected: true, RequestType: core.RequestErase},
		{CompanyName: "Nowhere", Website: "", Selected: true, RequestType: core.RequestErase},
	}
	sent, err := svc.SendAll(context.Background(), rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoContact)
	assert.Contains(t, err.Error(), "Nowhere")
	assert.Equal(t, map[string]string{"Acme Corp": "id-dpo@acme.com"}, sent)
	assert.Len(t, sender.sent, 1)
}
