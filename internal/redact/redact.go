// Package redact scrubs PII from arbitrary JSON-like values before they
// are logged, traced, or surfaced to analysts.
package redact

import (
	"encoding/json"
	"regexp"
	"strings"
)

// FieldMarker replaces the whole value of a sensitive field.
const FieldMarker = "****REDACTED****"

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Ordered: the card pattern must run before the phone pattern so a
// 13-digit run is not split into a 10-digit phone match.
var rules = []rule{
	{regexp.MustCompile(`\b\d{13,19}\b`), "****REDACTED_CARD****"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "****REDACTED_SSN****"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "****REDACTED_EMAIL****"},
	{regexp.MustCompile(`\b\d{10}\b`), "****REDACTED_PHONE****"},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "****REDACTED_IP****"},
}

var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"apikey",
	"api_key",
	"creditcard",
	"credit_card",
	"cardnumber",
	"card_number",
	"cvv",
	"ssn",
	"socialsecurity",
	"social_security",
	"email",
	"phonenumber",
	"phone_number",
	"address",
	"dateofbirth",
	"date_of_birth",
}

// Stats counts redactions by category.
//
// The counts come from re-scanning the serialized redacted output for
// marker occurrences, so a marker-looking string in the input inflates
// them. Kept as-is: the numbers are operator-facing hints, not an audit
// tally.
type Stats struct {
	TotalRedacted int `json:"totalRedacted"`
	Cards         int `json:"cards"`
	Emails        int `json:"emails"`
	Phones        int `json:"phones"`
	SSNs          int `json:"ssns"`
	IPs           int `json:"ips"`
	Fields        int `json:"fields"`
}

// Result is the redacted value plus its stats.
type Result struct {
	Data             any   `json:"data"`
	Stats            Stats `json:"stats"`
	RedactionApplied bool  `json:"redactionApplied"`
}

// Apply redacts the value and computes stats.
func Apply(v any) Result {
	redacted := Value(v)
	stats := computeStats(redacted)
	return Result{
		Data:             redacted,
		Stats:            stats,
		RedactionApplied: stats.TotalRedacted > 0,
	}
}

// Value recursively redacts an arbitrary JSON-like value. Strings are
// pattern-scrubbed; map keys matching a sensitive-field substring are
// replaced wholesale; slices are mapped element-wise. Other types pass
// through untouched.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return String(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Value(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsSensitiveField(k) {
				out[k] = FieldMarker
			} else {
				out[k] = Value(val)
			}
		}
		return out
	default:
		return v
	}
}

// String applies the pattern rules in order.
func String(s string) string {
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// IsSensitiveField reports whether a field name matches the sensitive
// list by case-insensitive substring.
func IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, f := range sensitiveFields {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func computeStats(redacted any) Stats {
	serialized, err := json.Marshal(redacted)
	if err != nil {
		return Stats{}
	}
	text := string(serialized)
	return Stats{
		TotalRedacted: strings.Count(text, "****REDACTED"),
		Cards:         strings.Count(text, "REDACTED_CARD"),
		Emails:        strings.Count(text, "REDACTED_EMAIL"),
		Phones:        strings.Count(text, "REDACTED_PHONE"),
		SSNs:          strings.Count(text, "REDACTED_SSN"),
		IPs:           strings.Count(text, "REDACTED_IP"),
		Fields:        strings.Count(text, FieldMarker),
	}
}
