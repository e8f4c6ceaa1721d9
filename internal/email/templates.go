package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type proposalEmailData struct {
	baseEmailData
	ContactName string
	Appliance   string
	Options     []string
	ExpiresAt   string
}

type expiryEmailData struct {
	baseEmailData
	ContactName string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderProposal(msg ProposalMessage) (subject, body string, err error) {
	subject = subjectProposal
	if msg.Appliance != "" {
		subject = fmt.Sprintf(subjectProposalFmt, msg.Appliance)
	}

	data := proposalEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: "Tenemos disponibilidad",
		},
		ContactName: msg.ContactName,
		Appliance:   msg.Appliance,
		Options:     msg.Options,
	}
	if !msg.ExpiresAt.IsZero() {
		data.ExpiresAt = msg.ExpiresAt.Format(time.RFC3339)
	}

	body, err = renderEmailTemplate("proposal.html", data)
	return subject, body, err
}

func renderExpiry(msg ExpiryMessage) (subject, body string, err error) {
	body, err = renderEmailTemplate("expired.html", expiryEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectExpiry,
			Heading: "Tus opciones han caducado",
		},
		ContactName: msg.ContactName,
	})
	return subjectExpiry, body, err
}
