package compose

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/mikey/inbox-data-requests/internal/core"
)

// BuildEnvelope renders a single-part text/plain UTF-8 message and encodes it
// as URL-safe base64 for the mail provider.
func BuildEnvelope(from core.UserProfile, to, subject, body string) (*core.Envelope, error) {
	fromAddr, err := mail.ParseAddress(from.Email)
	if err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from.Email, err)
	}
	if from.Name != "" {
		fromAddr.Name = from.Name
	}
	toAddr, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", to, err)
	}

	messageID := uuid.NewString() + "@" + domainOf(fromAddr.Address)

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{fromAddr})
	h.SetAddressList("To", []*mail.Address{toAddr})
	h.SetSubject(subject)
	h.SetMessageID(messageID)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}

	return &core.Envelope{
		MessageID: "<" + messageID + ">",
		From:      fromAddr.Address,
		To:        toAddr.Address,
		Subject:   subject,
		Raw:       base64.URLEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
