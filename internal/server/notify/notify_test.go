package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/dmitrijs2005/webapp/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestVerificationLink(t *testing.T) {
	link := VerificationLink("http://localhost:8080/", "a+b@c.com", "abc123")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/v1/user/self/verify", u.Path)
	assert.Equal(t, "a+b@c.com", u.Query().Get("email"))
	assert.Equal(t, "abc123", u.Query().Get("token"))
}

func TestVerificationMessage(t *testing.T) {
	msg := VerificationMessage("a@b.com", "http://x/verify?token=t", 2*time.Minute)

	assert.Equal(t, "a@b.com", msg.To)
	assert.NotEmpty(t, msg.Subject)
	assert.Contains(t, msg.HTML, `href="http://x/verify?token=t"`)
	assert.Contains(t, msg.HTML, "2m0s")
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestSMTPSender_Send(t *testing.T) {
	d := &fakeDialer{}
	s := &SMTPSender{dialer: d, from: "no-reply@webapp.local"}

	err := s.Send(context.Background(), Message{To: "a@b.com", Subject: "hi", HTML: "<p>x</p>"})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"no-reply@webapp.local"}, m.GetHeader("From"))
	assert.Equal(t, []string{"a@b.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"hi"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<p>x</p>")
}

func TestSMTPSender_Errors(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	s := &SMTPSender{dialer: d, from: "f@x"}

	err := s.Send(context.Background(), Message{To: "a@b.com"})
	assert.ErrorContains(t, err, "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "a@b.com"}), context.Canceled)
}

func TestNewSMTPSender(t *testing.T) {
	s := NewSMTPSender("smtp.local", 2525, "u", "p", "f@x")
	d, ok := s.dialer.(*gomail.Dialer)
	require.True(t, ok)
	assert.Equal(t, "smtp.local", d.Host)
	assert.Equal(t, 2525, d.Port)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	s := NewLogSender(l)
	require.NoError(t, s.Send(context.Background(), Message{To: "a@b.com", Subject: "Verify", HTML: "link"}))

	out := buf.String()
	assert.Contains(t, out, `"msg":"send email"`)
	assert.Contains(t, out, `"recipient":"a@b.com"`)
	assert.Contains(t, out, `"subject":"Verify"`)
}

func TestMemorySender(t *testing.T) {
	s := &MemorySender{}
	require.NoError(t, s.Send(context.Background(), Message{To: "a@b.com"}))

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	msgs[0].To = "mutated"
	assert.Equal(t, "a@b.com", s.Messages()[0].To)

	s.Err = errors.New("down")
	assert.Error(t, s.Send(context.Background(), Message{To: "c@d.com"}))
	assert.Len(t, s.Messages(), 1)
}
