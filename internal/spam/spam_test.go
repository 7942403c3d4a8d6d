package spam

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func cleanInput(message string) Input {
	return Input{
		Name:    "Jane Doe",
		Email:   "jane@acme.io",
		Subject: "Project inquiry",
		Message: message,
	}
}

// For all messages longer than 20 characters with an uppercase ratio above
// 0.7 the heuristic flags spam.
func TestProperty_CapsMessagesAreSpam(t *testing.T) {
	d := NewDefaultDetector()

	rapid.Check(t, func(t *rapid.T) {
		upper := rapid.StringMatching(`[A-Z]{21,120}`).Draw(t, "upper")
		lower := rapid.StringMatching(`[a-z ]{0,5}`).Draw(t, "lower")
		msg := upper + lower

		v := d.Check(cleanInput(msg))
		if !v.IsSpam {
			t.Fatalf("message %q not flagged", msg)
		}
	})
}

// For all messages with at most 3 URLs and no other trigger the heuristic
// passes.
func TestProperty_FewURLsAreNotSpam(t *testing.T) {
	d := NewDefaultDetector()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 3).Draw(t, "urls")
		parts := []string{"hello, i would like to talk about a website"}
		for i := 0; i < n; i++ {
			host := rapid.SampledFrom([]string{"go.dev", "github.io", "acme.dev", "portfolio.org"}).Draw(t, "host")
			parts = append(parts, "https://"+host)
		}
		msg := strings.Join(parts, " ")

		if v := d.Check(cleanInput(msg)); v.IsSpam {
			t.Fatalf("message %q flagged: %s", msg, v.Reason)
		}
	})
}

func TestCheck_Rules(t *testing.T) {
	d := NewDefaultDetector()

	tests := []struct {
		name   string
		in     Input
		rule   string
		reason string
	}{
		{
			name:   "keyword in message",
			in:     cleanInput("we offer the best SEO services for your site"),
			rule:   RuleKeyword,
			reason: "Spam keyword detected: seo services",
		},
		{
			name:   "keyword in subject",
			in:     Input{Name: "Bob", Subject: "Casino bonus", Message: "hello hello hello"},
			rule:   RuleKeyword,
			reason: "Spam keyword detected: casino",
		},
		{
			name:   "script fragment after stripping",
			in:     cleanInput("scriptalert(1)/script is what I typed"),
			rule:   RulePattern,
			reason: `Suspicious pattern detected: script[\s\S]*/script\b`,
		},
		{
			name: "javascript uri",
			in:   cleanInput("open javascript:alert(document.cookie) now"),
			rule: RulePattern,
		},
		{
			name: "sql injection",
			in:   cleanInput("1 UNION SELECT password FROM users"),
			rule: RulePattern,
		},
		{
			name: "drop table",
			in:   cleanInput("'; DROP   TABLE submissions; --"),
			rule: RulePattern,
		},
		{
			name:   "capitalization",
			in:     cleanInput("PLEASE CALL ME BACK TODAY"),
			rule:   RuleCapitalization,
			reason: ReasonCapitalization,
		},
		{
			name:   "too many urls",
			in:     cleanInput("https://a.dev https://b.dev https://c.dev https://d.dev"),
			rule:   RuleURLs,
			reason: ReasonTooManyURLs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := d.Check(tt.in)
			if !v.IsSpam {
				t.Fatal("expected spam verdict")
			}
			if v.Rule != tt.rule {
				t.Errorf("rule: got %q, want %q", v.Rule, tt.rule)
			}
			if tt.reason != "" && v.Reason != tt.reason {
				t.Errorf("reason: got %q, want %q", v.Reason, tt.reason)
			}
		})
	}
}

func TestCheck_BuyNowScenario(t *testing.T) {
	d := NewDefaultDetector()
	msg := strings.Repeat("BUY NOW CLICK HERE!!!", 3)

	if v := d.Check(cleanInput(msg)); !v.IsSpam {
		t.Fatal("expected repeated shouting advert to be spam")
	}

	// Without keywords the capitalisation rule alone must catch it
	plain, err := NewDetector(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	v := plain.Check(cleanInput(msg))
	if !v.IsSpam || v.Reason != ReasonCapitalization {
		t.Errorf("got %+v, want capitalization verdict", v)
	}
}

func TestCheck_Clean(t *testing.T) {
	d := NewDefaultDetector()
	in := Input{
		Name:          "Jane Doe",
		Email:         "jane@acme.io",
		Subject:       "Backend work",
		Category:      "technical",
		Message:       "Hi! I saw your Go projects and would like to discuss an API integration.",
		Phone:         "+44 20 7946 0958",
		ContactMethod: "email",
		Budget:        "5k-10k",
	}
	if v := d.Check(in); v.IsSpam {
		t.Errorf("clean submission flagged: %s", v.Reason)
	}
}

func TestCheck_ScriptPathIsNotSpam(t *testing.T) {
	d := NewDefaultDetector()
	for _, msg := range []string{
		"see my /script folder for the deploy helpers",
		"the build step lives in ./script/bootstrap on the repo",
	} {
		if v := d.Check(cleanInput(msg)); v.IsSpam {
			t.Errorf("%q flagged: %s", msg, v.Reason)
		}
	}
}

func TestNewDetector_InvalidPattern(t *testing.T) {
	if _, err := NewDetector(nil, []string{"("}); err == nil {
		t.Error("expected compile error")
	}
}

func TestNewReferenceID(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	id := NewReferenceID(now)

	if !regexp.MustCompile(`^REF-1718000000123-[0-9A-F]{8}$`).MatchString(id) {
		t.Errorf("unexpected reference id %q", id)
	}
	if id == NewReferenceID(now) {
		t.Error("reference ids must be unique for the same instant")
	}
}
