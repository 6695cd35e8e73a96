package email

import (
	"strings"
	"testing"
	"time"
)

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("no-reply@bookable.local", "customer@example.com", "Appointment confirmed", "hello")
	for _, want := range []string{
		"From: no-reply@bookable.local\r\n",
		"To: customer@example.com\r\n",
		"Subject: Appointment confirmed\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
		"\r\n\r\nhello\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestConfirmationBody(t *testing.T) {
	start := time.Date(2026, 9, 14, 10, 30, 0, 0, time.UTC)
	body := ConfirmationBody("Jordan Li", "Haircut", start)
	want := "Dear Jordan Li,\n\nYour appointment for Haircut is confirmed on September 14, 2026 at 10:30.\n\nThank you!"
	if body != want {
		t.Fatalf("got:\n%s\nwant:\n%s", body, want)
	}
}

func TestCancellationBody(t *testing.T) {
	start := time.Date(2026, 9, 14, 10, 30, 0, 0, time.UTC)
	body := CancellationBody("Jordan Li", "Haircut", start)
	if !strings.Contains(body, "has been cancelled") || !strings.Contains(body, "September 14, 2026") {
		t.Fatalf("unexpected body:\n%s", body)
	}
}
