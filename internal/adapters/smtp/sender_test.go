package smtp

import (
	"context"
	"encoding/base64"
	"io"
	"net"
	"sync"
	"testing"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-data-requests/internal/core"
)

type delivery struct {
	from string
	to   []string
	data []byte
}

type backend struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (b *backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{backend: b}, nil
}

type session struct {
	backend *backend
	current delivery
}

func (s *session) Reset() { s.current = delivery{} }

func (s *session) Logout() error { return nil }

func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.current.from = from
	return nil
}

func (s *session) Rcpt(to string, opts *gosmtp.RcptOptions) error {
	s.current.to = append(s.current.to, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = data
	s.backend.mu.Lock()
	s.backend.deliveries = append(s.backend.deliveries, s.current)
	s.backend.mu.Unlock()
	return nil
}

func startServer(t *testing.T) (*backend, int) {
	t.Helper()
	be := &backend{}
	server := gosmtp.NewServer(be)
	server.Domain = "localhost"

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(l) }()
	t.Cleanup(func() { _ = server.Close() })

	return be, l.Addr().(*net.TCPAddr).Port
}

func TestSend_RelaysDecodedMessage(t *testing.T) {
	be, port := startServer(t)
	message := "From: me@example.com\r\nTo: privacy@acme.com\r\nSubject: GDPR Data Access Request\r\n\r\nHello\r\n"
	env := &core.Envelope{
		MessageID: "<abc@example.com>",
		From:      "me@example.com",
		To:        "privacy@acme.com",
		Raw:       base64.URLEncoding.EncodeToString([]byte(message)),
	}

	sender := NewSender(Config{Host: "127.0.0.1", Port: port}, nil)
	id, err := sender.Send(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "<abc@example.com>", id)

	be.mu.Lock()
	defer be.mu.Unlock()
	require.Len(t, be.deliveries, 1)
	assert.Equal(t, "me@example.com", be.deliveries[0].from)
	assert.Equal(t, []string{"privacy@acme.com"}, be.deliveries[0].to)
	assert.Contains(t, string(be.deliveries[0].data), "Subject: GDPR Data Access Request")
}

func TestSend_InvalidRaw(t *testing.T) {
	sender := NewSender(Config{Host: "127.0.0.1", Port: 1}, nil)
	_, err := sender.Send(context.Background(), &core.Envelope{Raw: "!!not base64!!"})
	assert.Error(t, err)
}

func TestDecodeRaw_AcceptsUnpadded(t *testing.T) {
	b, err := decodeRaw(base64.RawURLEncoding.EncodeToString([]byte("hi?")))
	require.NoError(t, err)
	assert.Equal(t, "hi?", string(b))
}
