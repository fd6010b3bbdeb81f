package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"strings"
)

var htmlLayout = htmltmpl.Must(htmltmpl.New("layout").Parse(
	`<!DOCTYPE html><html><body>{{range .}}<p>{{.}}</p>{{end}}</body></html>`,
))

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // text/plain content; paragraphs are separated by blank lines

		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills TextContent and HTMLContent from BodyStr.
func (m *EmailMessage) Render() error {
	m.TextContent = m.BodyStr
	if m.BodyStr == "" {
		return nil
	}

	paragraphs := strings.Split(m.BodyStr, "\n\n")
	var buff bytes.Buffer
	if err := htmlLayout.Execute(&buff, paragraphs); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
