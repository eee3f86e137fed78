package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuserp/erp/core"
)

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "jdoe@test.com"}}, Subject: "hi", BodyStr: "hello"},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "empty@test.com"}}, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "hi", sent[0].Subject)
	assert.Equal(t, "hello", sent[0].TextContent)

	svc.Clear()
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleBuild(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())
	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "John Doe", Address: "jdoe@test.com"}},
		Subject:     "Receipt",
		TextContent: "see attached",
	}
	require.NoError(t, msg.Attach(bytes.NewBufferString("%PDF-1.3 fake"), "RCPT-000001.pdf", "application/pdf"))

	body, err := svc.build(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [Campus ERP] Receipt")
	assert.Contains(t, body, `To: "John Doe" <jdoe@test.com>`)
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, "attachment; filename=RCPT-000001.pdf")
	assert.Contains(t, body, "JVBERi0xLjMgZmFrZQ==")
}

func TestSMTPPrepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewSMTPService(conf, nil).(*smtpService)

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "John Doe", Address: "jdoe@test.com"}},
		Bcc:         []mail.Address{{Address: "audit@test.com"}},
		Subject:     "Notice",
		TextContent: "plain",
		HTMLContent: "<p>html</p>",
	})
	assert.Equal(t, []string{"[Campus ERP] Notice"}, m.GetHeader("Subject"))
	require.Len(t, m.GetHeader("To"), 1)
	assert.True(t, strings.Contains(m.GetHeader("To")[0], "jdoe@test.com"))
	assert.Equal(t, []string{"audit@test.com"}, m.GetHeader("Bcc"))
	assert.Empty(t, m.GetHeader("Cc"))
}

func TestNewService(t *testing.T) {
	conf := core.NewTestConfig()
	_, ok := NewService(conf, nil).(*consoleService)
	assert.True(t, ok)

	conf.Email.Backend = "smtp"
	_, ok = NewService(conf, nil).(*smtpService)
	assert.True(t, ok)

	conf.Email.Backend = "sendgrid"
	_, ok = NewService(conf, nil).(*sendgridService)
	assert.True(t, ok)
}
