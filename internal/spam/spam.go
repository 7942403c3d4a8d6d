// Package spam classifies contact submissions with fast, explainable heuristics.
package spam

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/welldanyogia/portfolio-contact/internal/rules"
)

// Reason prefixes and messages reported in a Verdict
const (
	ReasonCapitalization = "Excessive capitalization detected"
	ReasonTooManyURLs    = "Too many URLs detected"
)

// Rule names used as metric labels
const (
	RuleKeyword        = "keyword"
	RulePattern        = "pattern"
	RuleCapitalization = "capitalization"
	RuleURLs           = "urls"
)

// DefaultKeywords are phrases that only show up in unsolicited mail
var DefaultKeywords = []string{
	"viagra",
	"cialis",
	"casino",
	"lottery",
	"jackpot",
	"crypto investment",
	"bitcoin investment",
	"forex signals",
	"make money fast",
	"earn money online",
	"work from home",
	"click here",
	"buy now",
	"free money",
	"guaranteed income",
	"seo services",
	"backlinks",
	"increase your traffic",
	"weight loss",
	"payday loan",
	"nigerian prince",
	"wire transfer",
}

// DefaultPatterns catch markup and injection probes. Angle brackets are
// stripped before the heuristic runs, so a script element survives only as
// "script ... /script"; a lone path like /script is not flagged.
var DefaultPatterns = []string{
	`<\s*script`,
	`script[\s\S]*/script\b`,
	`javascript:`,
	`eval\s*\(`,
	`union\s+select`,
	`drop\s+table`,
}

// Verdict is the classification of one submission
type Verdict struct {
	IsSpam bool   `json:"isSpam"`
	Reason string `json:"reason,omitempty"`
	// Rule names the check that fired, empty when IsSpam is false
	Rule string `json:"-"`
}

// Input carries the text-bearing fields of a submission
type Input struct {
	Name          string
	Email         string
	Subject       string
	Category      string
	Message       string
	Phone         string
	ContactMethod string
	Budget        string
}

// Detector applies the keyword, pattern, capitalisation and URL rules
type Detector struct {
	keywords []string
	patterns []*regexp.Regexp
}

// NewDetector compiles the given patterns. Keywords are matched
// case-insensitively as substrings.
func NewDetector(keywords, patterns []string) (*Detector, error) {
	d := &Detector{}
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			d.keywords = append(d.keywords, kw)
		}
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid spam pattern %q: %w", p, err)
		}
		d.patterns = append(d.patterns, re)
	}
	return d, nil
}

// NewDefaultDetector returns a Detector with DefaultKeywords and DefaultPatterns
func NewDefaultDetector() *Detector {
	d, err := NewDetector(DefaultKeywords, DefaultPatterns)
	if err != nil {
		panic(err)
	}
	return d
}

// Check runs the rules in order and stops at the first match
func (d *Detector) Check(in Input) Verdict {
	combined := strings.ToLower(strings.Join([]string{
		in.Name,
		in.Email,
		in.Subject,
		in.Category,
		in.Message,
		in.Phone,
		in.ContactMethod,
		in.Budget,
	}, " "))

	for _, kw := range d.keywords {
		if strings.Contains(combined, kw) {
			return Verdict{IsSpam: true, Rule: RuleKeyword, Reason: "Spam keyword detected: " + kw}
		}
	}

	for _, re := range d.patterns {
		if re.MatchString(combined) {
			return Verdict{IsSpam: true, Rule: RulePattern, Reason: "Suspicious pattern detected: " + re.String()}
		}
	}

	if rules.IsShouting(in.Message) {
		return Verdict{IsSpam: true, Rule: RuleCapitalization, Reason: ReasonCapitalization}
	}

	if rules.CountURLs(in.Message) > rules.MaxMessageURLs {
		return Verdict{IsSpam: true, Rule: RuleURLs, Reason: ReasonTooManyURLs}
	}

	return Verdict{}
}

// NewReferenceID returns an identifier a rejected sender can quote for manual
// review, e.g. REF-1718000000000-1a2b3c4d
func NewReferenceID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("REF-%d-%s", now.UnixMilli(), strings.ToUpper(suffix))
}
