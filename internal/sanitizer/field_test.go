package sanitizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

// TestProperty_FieldIdempotent checks Field(Field(x)) == Field(x)
func TestProperty_FieldIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.String().Draw(t, "input")
		once := Field(in)
		if twice := Field(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	})
}

// TestProperty_FieldBounds checks the output never holds angle brackets,
// surrounding whitespace or more than MaxFieldLength runes.
func TestProperty_FieldBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pad := rapid.StringMatching(`[ \t\n]{0,4}`).Draw(t, "pad")
		body := rapid.StringOfN(rapid.RuneFrom([]rune("ab <>é\t")), 0, 2600, -1).Draw(t, "body")
		out := Field(pad + body + pad)

		if strings.ContainsAny(out, "<>") {
			t.Fatalf("angle bracket survived: %q", out)
		}
		if out != strings.TrimSpace(out) {
			t.Fatalf("untrimmed output: %q", out)
		}
		if n := utf8.RuneCountInString(out); n > MaxFieldLength {
			t.Fatalf("output has %d runes", n)
		}
	})
}

func TestField(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello there", "Hello there"},
		{"trim", "  spaced\t\n", "spaced"},
		{"script tag", "<script>alert(1)</script>", "scriptalert(1)/script"},
		{"bold", "a <b>bold</b> move", "a bbold/b move"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Field(tt.in); got != tt.want {
				t.Errorf("Field(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestField_TruncatesRunes(t *testing.T) {
	in := strings.Repeat("é", MaxFieldLength+10)
	out := Field(in)
	if n := utf8.RuneCountInString(out); n != MaxFieldLength {
		t.Errorf("rune count: got %d, want %d", n, MaxFieldLength)
	}
	if !utf8.ValidString(out) {
		t.Error("truncation split a rune")
	}
}

func TestFieldN(t *testing.T) {
	if got := FieldN("abcdef", 3); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := FieldN("abc  def", 4); got != "abc" {
		t.Errorf("trailing space after cut should be trimmed, got %q", got)
	}
}
