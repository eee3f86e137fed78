package core

import (
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmailTemplates(t *testing.T) {
	require.NoError(t, ParseEmailTemplates(nil))
	for _, name := range []string{"password_reset", "fee_receipt", "notice"} {
		msg := &EmailMessage{TemplateName: name}
		_, ok := msg.getTemplate(".txt")
		assert.True(t, ok, name)
		_, ok = msg.getTemplate(".gohtml")
		assert.True(t, ok, name)
	}
}

func TestEmailMessageRender(t *testing.T) {
	msg := &EmailMessage{
		To:           []mail.Address{{Name: "Asha", Address: "asha@example.com"}},
		Subject:      "Password reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{"Name": "Asha", "UID": "dWlk", "Token": "tok-en"},
	}
	require.NoError(t, msg.Render("https://erp.example.com"))

	assert.True(t, msg.HasRecipients())
	assert.True(t, msg.HasContent())
	assert.Contains(t, msg.TextContent, "https://erp.example.com/password-reset/dWlk/tok-en")
	assert.Contains(t, msg.HTMLContent, "https://erp.example.com/password-reset/dWlk/tok-en")

	notice := &EmailMessage{
		TemplateName: "notice",
		TemplateData: map[string]interface{}{
			"Category":    "exam",
			"Title":       "Mid-terms",
			"Body":        "<b>Monday</b>",
			"PublishedAt": time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, notice.Render(""))
	assert.Contains(t, notice.TextContent, "<b>Monday</b>")
	assert.NotContains(t, notice.HTMLContent, "<b>Monday</b>", "escaped in HTML")

	missing := &EmailMessage{TemplateName: "notice", TemplateData: map[string]interface{}{"Title": "x"}}
	assert.Error(t, missing.Render(""))
}

func TestRenderEachEmailTemplate(t *testing.T) {
	paidAt := time.Date(2024, 7, 15, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		data interface{}
		want string
	}{
		{"password_reset", map[string]interface{}{"Name": "Asha", "UID": "dWlk", "Token": "tok"}, "/password-reset/dWlk/tok"},
		{"fee_receipt", map[string]interface{}{
			"Name": "Asha", "Currency": "INR", "Amount": 1500.5, "PaidAt": paidAt, "ReceiptNo": "RCPT-000007", "Balance": 250.0,
		}, "RCPT-000007"},
		{"notice", map[string]interface{}{"Category": "event", "Title": "Annual fest", "Body": "Friday", "PublishedAt": paidAt}, "Annual fest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &EmailMessage{TemplateName: tt.name, TemplateData: tt.data}
			require.NoError(t, msg.Render("https://erp.example.com"))
			assert.Contains(t, msg.TextContent, tt.want)
			assert.Contains(t, msg.TextContent, "Campus ERP", "base layout")
			assert.Contains(t, msg.HTMLContent, tt.want)
		})
	}

	unknown := &EmailMessage{TemplateName: "nope"}
	assert.EqualError(t, unknown.Render(""), `email template "nope" not found`)
}

func TestEmailMessageBodyStr(t *testing.T) {
	msg := &EmailMessage{BodyStr: "plain"}
	require.NoError(t, msg.Render(""))
	assert.Equal(t, "plain", msg.TextContent)
	assert.Empty(t, msg.HTMLContent)
}

func TestEmailMessageAttach(t *testing.T) {
	msg := &EmailMessage{}
	require.NoError(t, msg.Attach(strings.NewReader("%PDF-1.3 fake"), "r.pdf", "application/pdf"))
	require.NoError(t, msg.Attach(strings.NewReader("hello"), "hello.txt"))

	require.True(t, msg.HasAttachments())
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
	assert.Equal(t, "JVBERi0xLjMgZmFrZQ==", msg.Attachments[0].Content.String())
	assert.Equal(t, []byte("hello"), msg.Attachments[1].Raw)
	assert.True(t, strings.HasPrefix(msg.Attachments[1].ContentType, "text/plain"))
}
