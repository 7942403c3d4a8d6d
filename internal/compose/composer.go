package compose

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
	"unicode/utf8"

	"github.com/welldanyogia/portfolio-contact/internal/attachment"
	"github.com/welldanyogia/portfolio-contact/internal/mailer"
	"github.com/welldanyogia/portfolio-contact/internal/rules"
	"github.com/welldanyogia/portfolio-contact/internal/sanitizer"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// Submission is an accepted, sanitised contact form
type Submission struct {
	rules.Fields
	ReceivedAt time.Time
}

// Config holds the addresses used on outbound mail
type Config struct {
	// From is the sender for both emails, e.g. "Portfolio <hello@example.dev>"
	From string
	// To is the site owner's inbox
	To string
	// OwnerName signs the auto-reply
	OwnerName string
}

// Composer renders the notification and auto-reply for a submission
type Composer struct {
	cfg  Config
	html sanitizer.HTMLSanitizer
}

// New creates a Composer. A nil sanitizer uses the default email policy.
func New(cfg Config, html sanitizer.HTMLSanitizer) *Composer {
	if html == nil {
		html = sanitizer.NewHTMLSanitizer()
	}
	return &Composer{cfg: cfg, html: html}
}

type notificationData struct {
	rules.Fields
	Kind       string
	Urgent     bool
	Words      int
	Chars      int
	FileName   string
	FileType   string
	FileSize   int64
	ReceivedAt string
}

type autoReplyData struct {
	rules.Fields
	FirstName string
	OwnerName string
	Technical bool
	Urgent    bool
}

// Notification builds the email to the site owner. It carries every field,
// the message statistics, the urgency flag and the attachment if any. The
// visitor's address is set as Reply-To.
func (c *Composer) Notification(sub Submission, file *attachment.File) (*mailer.Message, error) {
	urgent := IsUrgent(sub.Message)
	data := notificationData{
		Fields:     sub.Fields,
		Kind:       ClassifyClient(sub.Category, sub.Message).String(),
		Urgent:     urgent,
		Words:      WordCount(sub.Message),
		Chars:      utf8.RuneCountInString(sub.Message),
		ReceivedAt: receivedAt(sub.ReceivedAt),
	}
	if file != nil {
		data.FileName = file.Filename
		data.FileType = file.ContentType
		data.FileSize = file.Size()
	}

	html, text, err := c.render("notification", data)
	if err != nil {
		return nil, err
	}

	subject := "New contact: " + sub.Subject
	if urgent {
		subject = "[URGENT] " + subject
	}

	msg := &mailer.Message{
		From:    c.cfg.From,
		To:      []string{c.cfg.To},
		ReplyTo: sub.Email,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}
	if file != nil {
		msg.Attachments = []mailer.Attachment{{
			Filename:    file.Filename,
			ContentType: file.ContentType,
			Data:        file.Data,
		}}
	}
	return msg, nil
}

// AutoReply builds the confirmation sent back to the visitor. kind selects
// the next-steps copy.
func (c *Composer) AutoReply(sub Submission, kind ClientKind) (*mailer.Message, error) {
	data := autoReplyData{
		Fields:    sub.Fields,
		FirstName: firstName(sub.Name),
		OwnerName: c.cfg.OwnerName,
		Technical: kind == Technical,
		Urgent:    IsUrgent(sub.Message),
	}

	html, text, err := c.render("autoreply", data)
	if err != nil {
		return nil, err
	}

	return &mailer.Message{
		From:    c.cfg.From,
		To:      []string{sub.Email},
		ReplyTo: c.cfg.To,
		Subject: fmt.Sprintf("Thanks for reaching out, %s", data.FirstName),
		HTML:    html,
		Text:    text,
	}, nil
}

func (c *Composer) render(name string, data any) (string, string, error) {
	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s html: %w", name, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s text: %w", name, err)
	}
	return c.html.Sanitize(html.String()), text.String(), nil
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return "there"
}

func receivedAt(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}
