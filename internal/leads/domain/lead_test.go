package domain

import "testing"

func TestDisplayNamePrefersFullName(t *testing.T) {
	l := Lead{FullName: " Jane Q Doe ", FirstName: "Ignored"}
	if got := l.DisplayName(); got != "Jane Q Doe" {
		t.Fatalf("expected full name, got %q", got)
	}

	l = Lead{FirstName: "Jane"}
	if got := l.DisplayName(); got != "Jane" {
		t.Fatalf("expected first name only, got %q", got)
	}
}

func TestBotSuspectedTreatsMissingTimeOnPageAsZero(t *testing.T) {
	if !(Lead{}).IsBotSuspected() {
		t.Fatal("expected lead without __top to be bot suspected")
	}

	top := float64(MinTimeOnPageMS)
	if (Lead{TimeOnPageMS: &top}).IsBotSuspected() {
		t.Fatal("expected lead at threshold to pass")
	}
}

func TestHoneypotIgnoresWhitespace(t *testing.T) {
	if (Lead{Company: "   "}).IsHoneypot() {
		t.Fatal("whitespace-only company should not trip the honeypot")
	}
	if !(Lead{Company: "Acme"}).IsHoneypot() {
		t.Fatal("expected honeypot to trip")
	}
}
