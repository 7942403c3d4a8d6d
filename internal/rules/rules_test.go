package rules

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

// For any name failing the character pattern or outside [2,100] after
// trimming, ValidateName rejects it.
func TestProperty_NameOutsideRulesIsInvalid(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-zA-Z\s-]+$`)

	rapid.Check(t, func(t *rapid.T) {
		name := rapid.OneOf(
			rapid.String(),
			rapid.StringMatching(`[a-zA-Z -]{0,120}`),
			rapid.StringMatching(`[a-zA-Z]{1,20}[0-9!@#$%]{1,3}`),
		).Draw(t, "name")

		trimmed := strings.TrimSpace(name)
		n := utf8.RuneCountInString(trimmed)
		shouldFail := !pattern.MatchString(trimmed) || n < MinNameLength || n > MaxNameLength

		res := ValidateName(name)
		if shouldFail && res.Valid {
			t.Fatalf("ValidateName(%q) accepted an invalid name", name)
		}
		if !shouldFail && !res.Valid {
			t.Fatalf("ValidateName(%q) rejected a valid name: %s", name, res.Message)
		}
	})
}

// For any message longer than 20 characters that is more than 70% uppercase,
// the message rule rejects it.
func TestProperty_ShoutingMessageIsInvalid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msg := rapid.StringMatching(`[A-Z]{21,200}`).Draw(t, "msg")
		if res := ValidateMessage(msg); res.Valid {
			t.Fatalf("ValidateMessage(%q) accepted a shouting message", msg)
		}
	})
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"Jo", true},
		{"Mary-Jane Watson", true},
		{"  Ana  ", true},
		{"J", false},
		{"", false},
		{"R2D2", false},
		{"O'Brien", false},
		{strings.Repeat("a", 100), true},
		{strings.Repeat("a", 101), false},
	}
	for _, tt := range tests {
		if got := ValidateName(tt.in); got.Valid != tt.valid {
			t.Errorf("ValidateName(%q) = %+v, want valid=%v", tt.in, got, tt.valid)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		in              string
		blockDisposable bool
		valid           bool
	}{
		{"jane.doe@acme.io", true, true},
		{"jane+portfolio@mail.co.uk", true, true},
		{"bad-email", true, false},
		{"missing@tld", true, false},
		{"@acme.io", true, false},
		{"someone@mailinator.com", true, false},
		{"someone@mailinator.com", false, true},
		{"someone@Example.COM", true, false},
		{"", true, false},
	}
	for _, tt := range tests {
		if got := ValidateEmail(tt.in, tt.blockDisposable); got.Valid != tt.valid {
			t.Errorf("ValidateEmail(%q, %v) = %+v, want valid=%v", tt.in, tt.blockDisposable, got, tt.valid)
		}
	}
}

func TestValidateSubject(t *testing.T) {
	if ValidateSubject("Hi").Valid {
		t.Error("2-character subject accepted")
	}
	if ValidateSubject("Hey!").Valid {
		t.Error("4-character subject accepted")
	}
	if !ValidateSubject("Hello").Valid {
		t.Error("5-character subject rejected")
	}
	if ValidateSubject(strings.Repeat("s", 101)).Valid {
		t.Error("101-character subject accepted")
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		valid bool
	}{
		{"too short", "short", false},
		{"minimum", "0123456789", true},
		{"three links", "see https://a.dev http://b.dev https://c.dev please", true},
		{"four links", "https://a.dev https://b.dev https://c.dev https://d.dev", false},
		{"caps over threshold", "PLEASE CALL ME BACK TODAY", false},
		{"short caps", "HELLO THERE", true},
		{"too long", strings.Repeat("a", 2001), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMessage(tt.in); got.Valid != tt.valid {
				t.Errorf("ValidateMessage(%q) = %+v, want valid=%v", tt.in, got, tt.valid)
			}
		})
	}
}

func TestOptionalFields(t *testing.T) {
	lenient := RuleSet{}
	strict := RuleSet{Strict: true}

	for _, field := range []string{FieldPhone, FieldContactMethod, FieldBudget} {
		if !lenient.Field(field, "").Valid {
			t.Errorf("%s: empty value rejected in lenient mode", field)
		}
		if strict.Field(field, "").Valid {
			t.Errorf("%s: empty value accepted in strict mode", field)
		}
	}

	if !lenient.Field(FieldPhone, "+1 (555) 123-4567").Valid {
		t.Error("valid phone rejected")
	}
	if lenient.Field(FieldPhone, "call me").Valid {
		t.Error("non-numeric phone accepted")
	}
	if lenient.Field(FieldPhone, "+1 ----- 2").Valid {
		t.Error("phone with too few digits accepted")
	}
	if !lenient.Field(FieldContactMethod, "whatsapp").Valid {
		t.Error("whatsapp rejected")
	}
	if lenient.Field(FieldContactMethod, "fax").Valid {
		t.Error("fax accepted")
	}
	if !lenient.Field(FieldBudget, "5k-10k").Valid {
		t.Error("known budget rejected")
	}
	if lenient.Field(FieldBudget, "a-million").Valid {
		t.Error("unknown budget accepted")
	}
	if !lenient.Field(FieldCategory, "").Valid || !lenient.Field(FieldCategory, "consulting").Valid {
		t.Error("valid category rejected")
	}
	if lenient.Field(FieldCategory, "spam").Valid {
		t.Error("unknown category accepted")
	}
}

func TestRuleSet_AllScenario(t *testing.T) {
	errs := Default().All(Fields{Name: "Jo", Email: "bad-email", Subject: "Hi", Message: "short"})

	if _, ok := errs[FieldName]; ok {
		t.Errorf("name %q is on the boundary and must be valid", "Jo")
	}
	if errs[FieldEmail] != "Please enter a valid email address" {
		t.Errorf("email error: got %q", errs[FieldEmail])
	}
	if errs[FieldMessage] != "Message must be at least 10 characters" {
		t.Errorf("message error: got %q", errs[FieldMessage])
	}
	if _, ok := errs[FieldSubject]; !ok {
		t.Error("expected subject error")
	}

	first, ok := FirstInvalid(errs)
	if !ok || first != FieldEmail {
		t.Errorf("FirstInvalid: got %q, want %q", first, FieldEmail)
	}
}

func TestRuleSet_Missing(t *testing.T) {
	f := Fields{Name: "Jane", Email: "  ", Message: "hello there"}

	got := Default().Missing(f)
	want := []string{FieldEmail, FieldSubject}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Missing: got %v, want %v", got, want)
	}

	got = RuleSet{Strict: true}.Missing(f)
	want = []string{FieldEmail, FieldPhone, FieldSubject, FieldContactMethod, FieldBudget}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("strict Missing: got %v, want %v", got, want)
	}
}

func TestCountURLsAndUppercaseRatio(t *testing.T) {
	if n := CountURLs("HTTPS://a.dev and http://b.dev and ftp://c.dev"); n != 2 {
		t.Errorf("CountURLs: got %d, want 2", n)
	}
	if r := UppercaseRatio("ABcd"); r != 0.5 {
		t.Errorf("UppercaseRatio: got %v, want 0.5", r)
	}
	if r := UppercaseRatio(""); r != 0 {
		t.Errorf("UppercaseRatio(empty): got %v", r)
	}
}

func TestValidateMessageLength(t *testing.T) {
	shouting := "PLEASE CALL ME BACK ABOUT THE PRICE"
	if !ValidateMessageLength(shouting).Valid {
		t.Errorf("length check must ignore capitalisation")
	}
	if ValidateMessage(shouting).Valid {
		t.Errorf("full message rule must reject shouting")
	}

	tests := []struct {
		in    string
		valid bool
	}{
		{"too short", false},
		{"  ten chars!  ", true},
		{strings.Repeat("a", MaxMessageLength), true},
		{strings.Repeat("a", MaxMessageLength+1), false},
	}
	for _, tt := range tests {
		if got := ValidateMessageLength(tt.in); got.Valid != tt.valid {
			t.Errorf("ValidateMessageLength(%q) = %+v, want valid=%v", tt.in, got, tt.valid)
		}
	}
}
