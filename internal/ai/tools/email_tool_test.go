package tools

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoagent/internal/config"
)

type sentMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func testEmailTool(sent *sentMail, sendErr error) *SendEmailTool {
	tool := NewSendEmailTool(config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "agent@example.com",
		Password: "secret",
		From:     "agent@example.com",
	})
	tool.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*sent = sentMail{addr: addr, auth: a, from: from, to: to, msg: string(msg)}
		return sendErr
	}
	tool.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return tool
}

func TestSendEmailTool(t *testing.T) {
	var sent sentMail
	tool := testEmailTool(&sent, nil)

	out, err := tool.Execute(context.Background(), `{
		"recipient_email": "Jane <jane@example.com>",
		"subject": "Quarterly update",
		"body": "Hello\nSee attached.",
		"cc_email": "cc@example.com",
		"bcc_email": "hidden@example.com"
	}`)
	require.NoError(t, err)
	assert.Equal(t, "Email sent successfully to jane@example.com!", out)

	assert.Equal(t, "smtp.example.com:587", sent.addr)
	assert.NotNil(t, sent.auth)
	assert.Equal(t, "agent@example.com", sent.from)
	assert.Equal(t, []string{"jane@example.com", "cc@example.com", "hidden@example.com"}, sent.to)

	assert.Contains(t, sent.msg, "To: jane@example.com\r\n")
	assert.Contains(t, sent.msg, "Cc: cc@example.com\r\n")
	assert.Contains(t, sent.msg, "Subject: Quarterly update\r\n")
	assert.Contains(t, sent.msg, "Date: Wed, 01 May 2024 09:30:00 +0000\r\n")
	assert.Contains(t, sent.msg, "\r\n\r\nHello\r\nSee attached.")
	assert.NotContains(t, sent.msg, "hidden@example.com")
}

func TestSendEmailToolRejectsBadAddress(t *testing.T) {
	var sent sentMail
	tool := testEmailTool(&sent, nil)

	_, err := tool.Execute(context.Background(), `{"recipient_email":"not-an-address","subject":"s","body":"b"}`)
	assert.Error(t, err)
	assert.Empty(t, sent.addr)
}

func TestSendEmailToolRelayFailure(t *testing.T) {
	var sent sentMail
	tool := testEmailTool(&sent, errors.New("535 auth rejected"))

	_, err := tool.Execute(context.Background(), `{"recipient_email":"a@example.com","subject":"s","body":"b"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth rejected")
}

func TestSendEmailToolUnconfigured(t *testing.T) {
	tool := NewSendEmailTool(config.SMTPConfig{})
	_, err := tool.Execute(context.Background(), `{"recipient_email":"a@example.com","subject":"s","body":"b"}`)
	assert.Error(t, err)
}

func TestISTDateTool(t *testing.T) {
	tool := NewISTDateTool()
	tool.now = func() time.Time { return time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC) }

	out, err := tool.Execute(context.Background(), `{}`)
	require.NoError(t, err)
	assert.Equal(t, "timezone: Indian Standard Time (IST)\ncurrent_date: 2025-01-01\ncurrent_time: 01:30:00", out)
}

func TestDefaultRegistryFlags(t *testing.T) {
	base, err := NewDefaultRegistry(Options{})
	require.NoError(t, err)
	assert.Contains(t, base.Names(), "GetSatelliteImage")
	assert.NotContains(t, base.Names(), "stock_price_agent")
	assert.NotContains(t, base.Names(), "send_email")

	full, err := NewDefaultRegistry(Options{EnableFinance: true, EnableEmail: true})
	require.NoError(t, err)
	assert.Len(t, full.Names(), len(base.Names())+7)
	assert.Contains(t, full.Names(), "news_agent")
	assert.Contains(t, full.Names(), "send_email")
}
