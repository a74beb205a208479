package report

import (
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/mbolis/formify/config"
	"github.com/mbolis/formify/model"
	"github.com/pkg/errors"
)

// DeliveryResult records the outcome of a delivery attempt. A failed
// delivery is data, not an error.
type DeliveryResult struct {
	OK      bool   `json:"ok"`
	Channel string `json:"channel"`
	Detail  string `json:"detail"`
}

type Mailer interface {
	Send(from string, to []string, subject, body string) error
}

type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(from string, to []string, subject, body string) error {
	if m.cfg.Host == "" {
		return errors.New("no SMTP host configured")
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return smtp.SendMail(addr, auth, from, to, []byte(msg.String()))
}

type Deliverer struct {
	mailer    Mailer
	from      string
	defaultTo string
}

func NewDeliverer(mailer Mailer, cfg config.SMTPConfig) *Deliverer {
	return &Deliverer{mailer: mailer, from: cfg.From, defaultTo: cfg.DefaultTo}
}

// Deliver sends the payload to recipient, or to the configured default
// recipient when that is empty.
func (d *Deliverer) Deliver(r model.Report, form model.Form, recipient string, payload any) DeliveryResult {
	if r.DeliveryMethod != model.DeliveryEmail {
		return DeliveryResult{false, r.DeliveryMethod, fmt.Sprintf("Unsupported delivery method: %s", r.DeliveryMethod)}
	}

	to := recipient
	if to == "" {
		to = d.defaultTo
	}
	if to == "" {
		return DeliveryResult{false, model.DeliveryEmail, "No recipient email configured (report owner email or default recipient)."}
	}

	subject := fmt.Sprintf("[Formify] %s – %s report", form.Title, capitalize(string(r.Type)))
	if err := d.mailer.Send(d.from, []string{to}, subject, emailBody(r, form, payload)); err != nil {
		return DeliveryResult{false, model.DeliveryEmail, fmt.Sprintf("Email send failed: %v", err)}
	}
	return DeliveryResult{true, model.DeliveryEmail, fmt.Sprintf("Email sent to %s", to)}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func emailBody(r model.Report, form model.Form, payload any) string {
	lines := []string{
		fmt.Sprintf("Report Type: %s", r.Type),
		fmt.Sprintf("Form: %s", form.Title),
		"",
	}
	switch p := payload.(type) {
	case Summary:
		last := "None"
		if p.Totals.LastResponseAt != nil {
			last = p.Totals.LastResponseAt.Format(time.RFC3339)
		}
		lines = append(lines,
			"Summary:",
			fmt.Sprintf("Total responses: %d", p.Totals.Responses),
			fmt.Sprintf("Last response at: %s", last),
		)
	case Detailed:
		lines = append(lines, "Detailed:", "People Answered:")
		for _, resp := range p.Responses {
			who := "anonymous"
			if resp.SubmittedBy != nil {
				who = *resp.SubmittedBy
			}
			lines = append(lines, who)
		}
	}
	lines = append(lines, "", "This is an automated message.")
	return strings.Join(lines, "\n")
}
