package tools

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"geoagent/internal/config"
	"geoagent/internal/logger"
)

type SendEmailArgs struct {
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	CCEmail        string `json:"cc_email,omitempty"`
	BCCEmail       string `json:"bcc_email,omitempty"`
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SendEmailTool delivers a plain-text email through the configured SMTP relay.
// smtp.SendMail upgrades to STARTTLS whenever the server offers it.
type SendEmailTool struct {
	BaseTool
	smtp     config.SMTPConfig
	sendMail sendMailFunc
	now      func() time.Time
}

func NewSendEmailTool(cfg config.SMTPConfig) *SendEmailTool {
	return &SendEmailTool{
		BaseTool: BaseTool{
			ToolName:        "send_email",
			ToolDescription: "Sends an email using SMTP. Requires recipient email, subject, and body. Optionally supports CC and BCC.",
			ToolParameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"recipient_email": {Type: jsonschema.String, Description: "The recipient's email address."},
					"subject":         {Type: jsonschema.String, Description: "The subject of the email."},
					"body":            {Type: jsonschema.String, Description: "The main content of the email."},
					"cc_email":        {Type: jsonschema.String, Description: "Optional CC email address."},
					"bcc_email":       {Type: jsonschema.String, Description: "Optional BCC email address."},
				},
				Required: []string{"recipient_email", "subject", "body"},
			},
		},
		smtp:     cfg,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

func parseAddress(field, value string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("%s is not a valid email address: %q", field, value)
	}
	return addr.Address, nil
}

func (t *SendEmailTool) Execute(_ context.Context, args string) (string, error) {
	var p SendEmailArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	if t.smtp.Host == "" || t.smtp.From == "" {
		return "", errors.New("SMTP is not configured")
	}

	to, err := parseAddress("recipient_email", p.RecipientEmail)
	if err != nil {
		return "", err
	}
	recipients := []string{to}

	var cc string
	if p.CCEmail != "" {
		if cc, err = parseAddress("cc_email", p.CCEmail); err != nil {
			return "", err
		}
		recipients = append(recipients, cc)
	}
	if p.BCCEmail != "" {
		bcc, err := parseAddress("bcc_email", p.BCCEmail)
		if err != nil {
			return "", err
		}
		recipients = append(recipients, bcc)
	}

	msg := t.buildMessage(to, cc, p.Subject, p.Body)

	var auth smtp.Auth
	if t.smtp.Username != "" {
		auth = smtp.PlainAuth("", t.smtp.Username, t.smtp.Password, t.smtp.Host)
	}

	addr := net.JoinHostPort(t.smtp.Host, strconv.Itoa(t.smtp.Port))
	if err := t.sendMail(addr, auth, t.smtp.From, recipients, msg); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	logger.Infof("[%s] Sent email to %d recipient(s)", t.Name(), len(recipients))
	return fmt.Sprintf("Email sent successfully to %s!", to), nil
}

// buildMessage renders the RFC 5322 message. Bcc recipients only appear in
// the envelope, never in the headers.
func (t *SendEmailTool) buildMessage(to, cc, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + t.smtp.From + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	if cc != "" {
		b.WriteString("Cc: " + cc + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + t.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}
