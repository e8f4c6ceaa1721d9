package engine

import (
	"fmt"
	"strings"
	"time"

	"repairdesk_backend/internal/tickets"
	"repairdesk_backend/platform/sanitize"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"

	maxChatNameRunes = 40
)

var (
	weekdayNames = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	monthNames   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// describeOption renders "jueves 4 de enero, 09:00-11:00 con Ana".
func describeOption(opt tickets.SlotOption, loc *time.Location) string {
	day, err := time.ParseInLocation(dateLayout, opt.Date, loc)
	if err != nil {
		return fmt.Sprintf("%s, %s-%s con %s", opt.Date, opt.StartTime, opt.EndTime, opt.TechnicianName)
	}
	return fmt.Sprintf("%s %d de %s, %s-%s con %s",
		weekdayNames[day.Weekday()], day.Day(), monthNames[day.Month()-1],
		opt.StartTime, opt.EndTime, opt.TechnicianName)
}

func describeOptions(opts []tickets.SlotOption, loc *time.Location) []string {
	lines := make([]string, 0, len(opts))
	for _, opt := range opts {
		lines = append(lines, describeOption(opt, loc))
	}
	return lines
}

// FormatWhatsAppProposal builds the chat message listing the options.
func FormatWhatsAppProposal(t tickets.Ticket, p tickets.Proposal, loc *time.Location) string {
	var b strings.Builder

	greeting := "Hola"
	if name := sanitize.ChatText(t.ContactName, maxChatNameRunes); name != "" {
		greeting += " " + name
	}
	b.WriteString(greeting)
	b.WriteString(", tenemos disponibilidad para tu reparación")
	if appliance := sanitize.ChatText(t.Appliance, maxChatNameRunes); appliance != "" {
		b.WriteString(" de ")
		b.WriteString(appliance)
	}
	b.WriteString(":\n\n")

	for i, line := range describeOptions(p.Slots, loc) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}

	b.WriteString("\nResponde con el número de la opción que prefieras.")
	if p.ExpiresAt != nil {
		minutes := int(p.ExpiresAt.Sub(p.CreatedAt).Round(time.Minute).Minutes())
		fmt.Fprintf(&b, " Estas opciones caducan en %d minutos.", minutes)
	}
	return b.String()
}

// FormatWhatsAppExpiry builds the notice sent when a proposal timed out.
func FormatWhatsAppExpiry(contactName string) string {
	greeting := "Hola"
	if name := sanitize.ChatText(contactName, maxChatNameRunes); name != "" {
		greeting += " " + name
	}
	return greeting + ", las opciones de cita que te enviamos han caducado. " +
		"Escríbenos cuando quieras y te propondremos nuevos horarios."
}
