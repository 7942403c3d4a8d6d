// Package compose turns an accepted submission into the two outbound
// emails: the notification for the site owner and the auto-reply for the
// visitor.
package compose

import (
	"regexp"
	"strings"
)

// ClientKind selects the auto-reply template
type ClientKind int

const (
	// Simple is a general enquiry
	Simple ClientKind = iota
	// Technical is an enquiry about engineering work
	Technical
)

func (k ClientKind) String() string {
	if k == Technical {
		return "technical"
	}
	return "simple"
}

var technicalCategories = map[string]bool{
	"technical":  true,
	"consulting": true,
	"project":    true,
}

var technicalKeywords = []string{
	"api", "backend", "frontend", "database", "architecture", "integration",
	"microservice", "kubernetes", "docker", "devops", "infrastructure",
	"deployment", "scalability", "performance", "migration", "cloud",
	"aws", "golang", "typescript", "react", "next.js", "ci/cd", "sql",
}

var urgentKeywords = []string{"urgent", "asap", "immediate", "emergency"}

var wordSplit = regexp.MustCompile(`[^\p{L}\p{N}/.+#-]+`)

// ClassifyClient decides between the simple and technical auto-reply from
// the category and the words used in the message.
func ClassifyClient(category, message string) ClientKind {
	if technicalCategories[strings.ToLower(strings.TrimSpace(category))] {
		return Technical
	}

	words := make(map[string]bool)
	for _, w := range wordSplit.Split(strings.ToLower(message), -1) {
		if w != "" {
			words[strings.Trim(w, ".")] = true
		}
	}
	for _, kw := range technicalKeywords {
		if words[kw] {
			return Technical
		}
	}
	return Simple
}

// IsUrgent reports whether the message asks for a fast answer
func IsUrgent(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// WordCount counts whitespace separated words
func WordCount(s string) int {
	return len(strings.Fields(s))
}
