package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSMTPSender_Send(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	s := NewSMTPSender("mail.example.com", 587, "robot@example.com", "secret", "noreply@example.com", zerolog.Nop())
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		if a == nil {
			t.Error("expected auth when username is set")
		}
		return nil
	}

	err := s.Send(context.Background(), Message{
		To:      "jane@example.com",
		Subject: "Discharge Summary - Jane Roe",
		Body:    "Your discharge summary is attached.",
		Attachments: []Attachment{
			{Name: "summary.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 fake")},
		},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "mail.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "noreply@example.com" {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "jane@example.com" {
		t.Errorf("to = %v", gotTo)
	}

	raw := string(gotMsg)
	for _, want := range []string{
		"Subject: Discharge Summary - Jane Roe",
		"To: jane@example.com",
		"multipart/mixed",
		"Content-Type: application/pdf",
		`attachment; filename="summary.pdf"`,
		"Content-Transfer-Encoding: base64",
		"Your discharge summary is attached.",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q", want)
		}
	}
	// attachment data must not appear in the clear
	if strings.Contains(raw, "%PDF-1.4 fake") {
		t.Error("attachment not base64 encoded")
	}
}

func TestSMTPSender_MissingRecipient(t *testing.T) {
	s := NewSMTPSender("mail.example.com", 587, "", "", "noreply@example.com", zerolog.Nop())
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("sendMail should not be called")
		return nil
	}
	if err := s.Send(context.Background(), Message{Subject: "x"}); err == nil {
		t.Fatal("expected error for missing recipient")
	}
}

func TestSMTPSender_RelayError(t *testing.T) {
	s := NewSMTPSender("mail.example.com", 25, "u", "p", "", zerolog.Nop())
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	err := s.Send(context.Background(), Message{To: "a@b.c", Body: "hi"})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("err = %v", err)
	}
}

func TestMockSender(t *testing.T) {
	m := NewMockSender()
	if err := m.Send(context.Background(), Message{To: "a@b.c", Subject: "s"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	m.ShouldFail = true
	m.FailError = errors.New("boom")
	if err := m.Send(context.Background(), Message{To: "d@e.f"}); err == nil {
		t.Fatal("expected failure")
	}
	sent := m.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent = %d, want 2 (failures still recorded)", len(sent))
	}
	if sent[0].Subject != "s" {
		t.Errorf("subject = %q", sent[0].Subject)
	}
}

func TestDischargeSubject(t *testing.T) {
	if got := DischargeSubject("Jane Roe"); got != "Discharge Summary - Jane Roe" {
		t.Errorf("subject = %q", got)
	}
}
