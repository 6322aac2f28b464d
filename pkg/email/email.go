// Package email validates addresses and delivers verification codes.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode"

	dErrors "civic/pkg/domain-errors"
)

const maxAddressLength = 254

// Normalize trims and lower-cases addr and rejects anything that is not a
// bare address (no display name, exactly one @, dotted domain).
func Normalize(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if len(addr) > maxAddressLength {
		return "", dErrors.New(dErrors.CodeValidation, "email is too long")
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr || parsed.Name != "" {
		return "", dErrors.New(dErrors.CodeValidation, "email is malformed")
	}
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || local == "" || !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", dErrors.New(dErrors.CodeValidation, "email is malformed")
	}
	return strings.ToLower(addr), nil
}

// DeriveNameFromEmail guesses a first and last name from the local part,
// falling back to "User".
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// VerificationCodeMessage renders the code email for addr.
func VerificationCodeMessage(addr, code string) Message {
	first, _ := DeriveNameFromEmail(addr)
	return Message{
		To:      addr,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("Hi %s,\n\nYour verification code is %s. It expires shortly; do not share it.\n", first, code),
	}
}

// LogSender writes messages to the log instead of sending them. It is the
// development transport; production wires a real mail provider.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	s.Logger.DebugContext(ctx, "email not sent (log transport)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
