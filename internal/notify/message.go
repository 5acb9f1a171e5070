package notify

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	htmltemplate "html/template"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/teemow/calreminder/internal/scheduler"
)

// DisplayLayout renders event start times in email bodies.
const DisplayLayout = "Monday, January 02, 2006 at 03:04 PM"

//go:embed templates/reminder.txt templates/reminder.html
var templateFS embed.FS

var (
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/reminder.txt"))
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/reminder.html"))
)

// Message is a rendered reminder email.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

type templateData struct {
	Title       string
	TimeUntil   string
	When        string
	Location    string
	Attendees   string
	Description string
}

// Compose renders the email for n, addressed to to. Times are shown in loc
// (UTC when nil).
func Compose(n scheduler.Notification, to []string, loc *time.Location) (*Message, error) {
	if n.Reminder == nil {
		return nil, fmt.Errorf("notification has no reminder")
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	if loc == nil {
		loc = time.UTC
	}

	event := n.Reminder.Event
	data := templateData{
		Title:       event.Title,
		TimeUntil:   FormatTimeUntil(n.Offset),
		When:        event.Start.In(loc).Format(DisplayLayout),
		Location:    event.Location,
		Attendees:   strings.Join(event.Attendees, ", "),
		Description: event.Description,
	}

	var text, html bytes.Buffer
	if err := textTemplate.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	return &Message{
		To:      to,
		Subject: "Reminder: " + event.Title,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// FormatTimeUntil turns a notification offset into "N minutes",
// "N hour(s)" or "N day(s)".
func FormatTimeUntil(minutes int) string {
	switch {
	case minutes < 60:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes < 1440:
		return plural(minutes/60, "hour")
	default:
		return plural(minutes/1440, "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// encodeRFC2047 encodes a header value containing non-ASCII characters.
// Line breaks are folded to spaces so the value stays on one header line.
func encodeRFC2047(s string) string {
	s = headerBreaks.Replace(s)
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// MIME renders m as an RFC 2822 multipart/alternative message.
func (m *Message) MIME() ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, part := range []struct{ contentType, content string }{
		{"text/plain", m.Text},
		{"text/html", m.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType + `; charset="UTF-8"`},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var b strings.Builder
	if m.From != "" {
		b.WriteString("From: " + headerBreaks.Replace(m.From) + "\r\n")
	}
	b.WriteString("To: " + headerBreaks.Replace(strings.Join(m.To, ", ")) + "\r\n")
	b.WriteString("Subject: " + encodeRFC2047(m.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=\"" + mw.Boundary() + "\"\r\n")
	b.WriteString("\r\n")
	b.Write(body.Bytes())

	return []byte(b.String()), nil
}

// Raw returns the message encoded for the Gmail API.
func (m *Message) Raw() (string, error) {
	data, err := m.MIME()
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}
