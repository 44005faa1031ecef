package email

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
	_ "time/tzdata"

	"erinnerungslicht-backend/internal/domain"
	"erinnerungslicht-backend/pkg/i18n"
)

var berlin = loadBerlin()

func loadBerlin() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.UTC
	}
	return loc
}

var funcs = map[string]any{
	"lines": func(s string) []string { return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") },
}

var notificationText = texttemplate.Must(texttemplate.New("notification.txt").Parse(
	`Name: {{.Name}}
E-Mail: {{.Email}}
IP-Adresse: {{.IP}}
User-Agent: {{.UserAgent}}
Zeitstempel: {{.ISOTime}}

Nachricht:
{{.Message}}

---
Diese E-Mail wurde über das Kontaktformular auf {{.SiteHost}} gesendet.
`))

var notificationHTML = htmltemplate.Must(htmltemplate.New("notification.html").Funcs(funcs).Parse(
	`<h2>Neue Kontaktanfrage</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>E-Mail:</strong> <a href="mailto:{{.Email}}">{{.Email}}</a></p>
<p><strong>IP-Adresse:</strong> {{.IP}}</p>
<p><strong>Zeitstempel:</strong> {{.LocalTime}}</p>

<h3>Nachricht:</h3>
<p>{{range $i, $l := lines .Message}}{{if $i}}<br>{{end}}{{$l}}{{end}}</p>

<hr>
<p><small>Diese E-Mail wurde über das Kontaktformular auf {{.SiteHost}} gesendet.</small></p>
`))

var confirmationText = map[i18n.Language]*texttemplate.Template{
	i18n.German: texttemplate.Must(texttemplate.New("confirmation.de.txt").Parse(
		`Liebe/r {{.Name}},

vielen Dank für Ihre Nachricht. Wir haben Ihre Anfrage erhalten und werden uns binnen 24 Stunden bei Ihnen melden.

Ihre Nachricht:
"{{.Message}}"

Mit freundlichen Grüßen
Ihr {{.SiteName}}-Team

---
{{.SiteName}}
E-Mail: {{.ContactEmail}}
Web: {{.SiteURL}}
`)),
	i18n.English: texttemplate.Must(texttemplate.New("confirmation.en.txt").Parse(
		`Dear {{.Name}},

thank you for your message. We have received your request and will get back to you within 24 hours.

Your message:
"{{.Message}}"

Kind regards
The {{.SiteName}} team

---
{{.SiteName}}
Email: {{.ContactEmail}}
Web: {{.SiteURL}}
`)),
}

var confirmationHTML = map[i18n.Language]*htmltemplate.Template{
	i18n.German: htmltemplate.Must(htmltemplate.New("confirmation.de.html").Funcs(funcs).Parse(
		`<h2>Vielen Dank für Ihre Nachricht</h2>
<p>Liebe/r {{.Name}},</p>
<p>vielen Dank für Ihre Nachricht. Wir haben Ihre Anfrage erhalten und werden uns binnen 24 Stunden bei Ihnen melden.</p>

<h3>Ihre Nachricht:</h3>
<blockquote style="border-left: 3px solid #2c3e50; padding-left: 1rem; margin: 1rem 0; color: #666;">
{{range $i, $l := lines .Message}}{{if $i}}<br>{{end}}{{$l}}{{end}}
</blockquote>

<p>Mit freundlichen Grüßen<br>
Ihr {{.SiteName}}-Team</p>

<hr>
<p><small>
{{.SiteName}}<br>
E-Mail: <a href="mailto:{{.ContactEmail}}">{{.ContactEmail}}</a><br>
Web: <a href="{{.SiteURL}}">{{.SiteURL}}</a>
</small></p>
`)),
	i18n.English: htmltemplate.Must(htmltemplate.New("confirmation.en.html").Funcs(funcs).Parse(
		`<h2>Thank you for your message</h2>
<p>Dear {{.Name}},</p>
<p>thank you for your message. We have received your request and will get back to you within 24 hours.</p>

<h3>Your message:</h3>
<blockquote style="border-left: 3px solid #2c3e50; padding-left: 1rem; margin: 1rem 0; color: #666;">
{{range $i, $l := lines .Message}}{{if $i}}<br>{{end}}{{$l}}{{end}}
</blockquote>

<p>Kind regards<br>
The {{.SiteName}} team</p>

<hr>
<p><small>
{{.SiteName}}<br>
Email: <a href="mailto:{{.ContactEmail}}">{{.ContactEmail}}</a><br>
Web: <a href="{{.SiteURL}}">{{.SiteURL}}</a>
</small></p>
`)),
}

var confirmationSubject = map[i18n.Language]string{
	i18n.German:  "Ihre Nachricht wurde empfangen - ",
	i18n.English: "Your message has been received - ",
}

// Composer renders the notification and confirmation messages.
type Composer struct {
	From     string
	To       string
	SiteName string
	SiteURL  string
}

type mailData struct {
	Name         string
	Email        string
	Message      string
	IP           string
	UserAgent    string
	ISOTime      string
	LocalTime    string
	SiteName     string
	SiteURL      string
	SiteHost     string
	ContactEmail string
}

func (c *Composer) data(sub *domain.Submission) mailData {
	received := sub.ReceivedAt
	if received.IsZero() {
		received = time.Now()
	}
	ua := sub.UserAgent
	if ua == "" {
		ua = "unbekannt"
	}
	return mailData{
		Name:         strings.TrimSpace(sub.Name),
		Email:        strings.TrimSpace(sub.Email),
		Message:      strings.TrimSpace(sub.Message),
		IP:           sub.ClientIP,
		UserAgent:    ua,
		ISOTime:      received.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		LocalTime:    received.In(berlin).Format("2.1.2006, 15:04:05"),
		SiteName:     c.SiteName,
		SiteURL:      c.SiteURL,
		SiteHost:     siteHost(c.SiteURL),
		ContactEmail: envelopeAddress(c.To),
	}
}

// Notification builds the operator message for an accepted submission.
// Replies go straight to the submitter.
func (c *Composer) Notification(sub *domain.Submission) (*domain.MailMessage, error) {
	d := c.data(sub)

	var text, html strings.Builder
	if err := notificationText.Execute(&text, d); err != nil {
		return nil, err
	}
	if err := notificationHTML.Execute(&html, d); err != nil {
		return nil, err
	}
	return &domain.MailMessage{
		From:     c.From,
		To:       c.To,
		ReplyTo:  d.Email,
		Subject:  singleLine("Kontaktanfrage von " + d.Name),
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

// Confirmation builds the acknowledgement sent back to the submitter, in the
// language the request was made in.
func (c *Composer) Confirmation(sub *domain.Submission) (*domain.MailMessage, error) {
	d := c.data(sub)
	lang, ok := i18n.Parse(sub.Language)
	if !ok {
		lang = i18n.German
	}

	var text, html strings.Builder
	if err := confirmationText[lang].Execute(&text, d); err != nil {
		return nil, err
	}
	if err := confirmationHTML[lang].Execute(&html, d); err != nil {
		return nil, err
	}
	return &domain.MailMessage{
		From:     c.From,
		To:       d.Email,
		Subject:  confirmationSubject[lang] + c.SiteName,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

func siteHost(siteURL string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(siteURL, "https://"), "http://")
	return strings.TrimRight(host, "/")
}
