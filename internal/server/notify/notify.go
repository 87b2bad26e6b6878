// Package notify delivers account notifications, such as the email
// verification link, over SMTP or to the log during development.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Message is a single plain email.
type Message struct {
	To      string
	Subject string
	// HTML is the text/html body.
	HTML string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// VerificationLink builds the link that completes email verification.
func VerificationLink(baseURL, email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return strings.TrimRight(baseURL, "/") + "/v1/user/self/verify?" + q.Encode()
}

// VerificationMessage builds the email sent after account creation.
func VerificationMessage(to, link string, ttl time.Duration) Message {
	body := fmt.Sprintf(`
		<h3>Verify your email address</h3>
		<p>Please confirm your email address by opening the link below.</p>
		<p><a href="%s">%s</a></p>
		<p>The link expires in %s.</p>
	`, link, link, ttl)

	return Message{
		To:      to,
		Subject: "Verify your email address",
		HTML:    body,
	}
}
