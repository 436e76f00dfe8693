package redact

import (
	"strings"
	"testing"
)

func TestString_Patterns(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"card 16 digits", "card 4242424242424242 stolen", "card ****REDACTED_CARD**** stolen"},
		{"card 13 digits", "pan 4222222222222", "pan ****REDACTED_CARD****"},
		{"card 19 digits", "pan 4242424242424242424", "pan ****REDACTED_CARD****"},
		{"ssn", "ssn 123-45-6789 on file", "ssn ****REDACTED_SSN**** on file"},
		{"email", "contact jane.doe+x@example.co.uk now", "contact ****REDACTED_EMAIL**** now"},
		{"phone", "call 5551234567", "call ****REDACTED_PHONE****"},
		{"ipv4", "seen from 203.0.113.9", "seen from ****REDACTED_IP****"},
		{"clean", "nothing to hide here", "nothing to hide here"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := String(tc.in); got != tc.want {
				t.Errorf("String(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestString_CardRunsBeforePhone(t *testing.T) {
	t.Parallel()

	// A 13-digit run must become a card, never a phone.
	got := String("4222222222222")
	if got != "****REDACTED_CARD****" {
		t.Errorf("got %q, want card marker", got)
	}
	// A plain 10-digit run is a phone.
	got = String("5551234567")
	if got != "****REDACTED_PHONE****" {
		t.Errorf("got %q, want phone marker", got)
	}
}

func TestString_Idempotent(t *testing.T) {
	t.Parallel()

	in := "card 4242424242424242, ssn 123-45-6789, ip 10.0.0.1"
	once := String(in)
	twice := String(once)
	if once != twice {
		t.Errorf("not idempotent:\nonce  = %q\ntwice = %q", once, twice)
	}
}

func TestIsSensitiveField(t *testing.T) {
	t.Parallel()

	sensitive := []string{"password", "Password", "userPassword", "apiKey", "api_key", "cardNumber", "CVV", "customerEmail", "phone_number", "homeAddress", "dateOfBirth"}
	for _, f := range sensitive {
		if !IsSensitiveField(f) {
			t.Errorf("IsSensitiveField(%q) = false, want true", f)
		}
	}

	clean := []string{"name", "status", "amount", "merchant", "currency"}
	for _, f := range clean {
		if IsSensitiveField(f) {
			t.Errorf("IsSensitiveField(%q) = true, want false", f)
		}
	}
}

func TestValue_SensitiveFieldsReplacedWholesale(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"name":     "Jordan",
		"email":    "jordan@example.com",
		"password": map[string]any{"hash": "abc"},
		"nested": map[string]any{
			"cardNumber": "4242424242424242",
			"merchant":   "ACME",
		},
	}

	out, ok := Value(in).(map[string]any)
	if !ok {
		t.Fatal("Value did not return a map")
	}
	if out["email"] != FieldMarker {
		t.Errorf("email = %v, want field marker", out["email"])
	}
	if out["password"] != FieldMarker {
		t.Errorf("password = %v, want field marker (not recursed into)", out["password"])
	}
	nested := out["nested"].(map[string]any)
	if nested["cardNumber"] != FieldMarker {
		t.Errorf("nested cardNumber = %v, want field marker", nested["cardNumber"])
	}
	if nested["merchant"] != "ACME" {
		t.Errorf("merchant = %v, want untouched", nested["merchant"])
	}
	if out["name"] != "Jordan" {
		t.Errorf("name = %v, want untouched", out["name"])
	}
}

func TestValue_ArraysMappedElementwise(t *testing.T) {
	t.Parallel()

	in := []any{"ssn 123-45-6789", 42, map[string]any{"token": "xyz"}}
	out := Value(in).([]any)
	if !strings.Contains(out[0].(string), "****REDACTED_SSN****") {
		t.Errorf("out[0] = %v", out[0])
	}
	if out[1] != 42 {
		t.Errorf("out[1] = %v, want 42 untouched", out[1])
	}
	if out[2].(map[string]any)["token"] != FieldMarker {
		t.Errorf("out[2].token = %v", out[2].(map[string]any)["token"])
	}
}

func TestApply_Stats(t *testing.T) {
	t.Parallel()

	got := Apply(map[string]any{
		"note":  "card 4242424242424242 and 203.0.113.9",
		"email": "a@b.com",
	})

	if !got.RedactionApplied {
		t.Fatal("redactionApplied = false")
	}
	if got.Stats.Cards != 1 {
		t.Errorf("cards = %d, want 1", got.Stats.Cards)
	}
	if got.Stats.IPs != 1 {
		t.Errorf("ips = %d, want 1", got.Stats.IPs)
	}
	if got.Stats.Fields != 1 {
		t.Errorf("fields = %d, want 1", got.Stats.Fields)
	}
	if got.Stats.TotalRedacted != 3 {
		t.Errorf("total = %d, want 3", got.Stats.TotalRedacted)
	}
}

func TestApply_CleanInputNoRedaction(t *testing.T) {
	t.Parallel()

	got := Apply(map[string]any{"merchant": "ACME", "amount": 12.5})
	if got.RedactionApplied {
		t.Error("redactionApplied = true for clean input")
	}
	if got.Stats.TotalRedacted != 0 {
		t.Errorf("total = %d, want 0", got.Stats.TotalRedacted)
	}
}
