package email

import (
	"strings"
	"testing"
	"time"
)

func TestRenderProposal(t *testing.T) {
	subject, body, err := renderProposal(ProposalMessage{
		To:          "ana@example.com",
		ContactName: "Ana <script>",
		Appliance:   "lavadora",
		Options:     []string{"jueves 4 de enero, 09:00-11:00 con Luis", "viernes 5 de enero, 16:00-18:00 con Marta"},
		ExpiresAt:   time.Date(2024, 1, 3, 12, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("renderProposal() error = %v", err)
	}

	if subject != "Opciones de cita para tu reparación de lavadora" {
		t.Errorf("subject = %q", subject)
	}
	for _, want := range []string{"09:00-11:00 con Luis", "16:00-18:00 con Marta", "2024-01-03T12:30:00Z", "Ana &lt;script&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestRenderProposalWithoutAppliance(t *testing.T) {
	subject, body, err := renderProposal(ProposalMessage{Options: []string{"lunes"}})
	if err != nil {
		t.Fatal(err)
	}
	if subject != subjectProposal {
		t.Errorf("subject = %q", subject)
	}
	if strings.Contains(body, "caducan el") {
		t.Error("no expiry line expected without ExpiresAt")
	}
}

func TestRenderExpiry(t *testing.T) {
	subject, body, err := renderExpiry(ExpiryMessage{ContactName: "Luis"})
	if err != nil {
		t.Fatal(err)
	}
	if subject != subjectExpiry || !strings.Contains(body, "Hola Luis") {
		t.Fatalf("subject = %q body = %s", subject, body)
	}
}

func TestBuildMessageRejectsBadAddress(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "", "", "taller@example.com", "Taller")
	if _, err := s.buildMessage("not-an-address", "x", "<p>x</p>"); err == nil {
		t.Fatal("expected invalid recipient to fail")
	}
	if _, err := s.buildMessage("ana@example.com", "x", "<p>x</p>"); err != nil {
		t.Fatalf("buildMessage() error = %v", err)
	}
}
