// Package rules holds the contact form field rules. The same RuleSet is used
// by the HTTP handler and by the form controller so both layers accept and
// reject exactly the same input.
package rules

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Field names as they appear in the JSON body and in error details
const (
	FieldName          = "name"
	FieldEmail         = "email"
	FieldSubject       = "subject"
	FieldCategory      = "category"
	FieldMessage       = "message"
	FieldPhone         = "phone"
	FieldContactMethod = "preferredContactMethod"
	FieldBudget        = "budgetRange"
)

// FieldOrder is the display order of the form, used to pick the first invalid field
var FieldOrder = []string{
	FieldName,
	FieldEmail,
	FieldPhone,
	FieldSubject,
	FieldCategory,
	FieldContactMethod,
	FieldBudget,
	FieldMessage,
}

const (
	MinNameLength    = 2
	MaxNameLength    = 100
	MinSubjectLength = 5
	MaxSubjectLength = 100
	MinMessageLength = 10
	MaxMessageLength = 2000
	MaxEmailLength   = 254

	// MaxMessageURLs is the highest number of links a message may carry
	MaxMessageURLs = 3
	// CapsMinLength is the length above which the capitalisation rule applies
	CapsMinLength = 20
	// CapsRatioThreshold is the uppercase share above which a message is shouting
	CapsRatioThreshold = 0.7
)

var (
	nameRegex  = regexp.MustCompile(`^[a-zA-Z\s-]+$`)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9\s().-]{7,20}$`)
	urlRegex   = regexp.MustCompile(`(?i)https?://`)
)

// Closed enumerations, space separated for validator's oneof
const (
	Categories     = "general project consulting collaboration job technical other"
	ContactMethods = "email phone whatsapp"
	BudgetRanges   = "under-1k 1k-5k 5k-10k 10k-25k 25k-plus not-sure"
)

// disposableDomains are throwaway or placeholder domains nobody can be reached at
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"temp-mail.org":     true,
	"yopmail.com":       true,
	"trashmail.com":     true,
	"sharklasers.com":   true,
	"getnada.com":       true,
	"dispostable.com":   true,
	"throwawaymail.com": true,
	"example.com":       true,
	"example.org":       true,
	"example.net":       true,
	"test.com":          true,
	"fake.com":          true,
}

var validate = validator.New()

// Result is the outcome of validating a single field value
type Result struct {
	Valid   bool
	Message string
}

func pass() Result { return Result{Valid: true} }

func fail(msg string) Result { return Result{Valid: false, Message: msg} }

func lengthBetween(s string, min, max int) (tooShort, tooLong bool) {
	n := utf8.RuneCountInString(s)
	return n < min, n > max
}

func oneOf(value, options string) bool {
	return validate.Var(value, "oneof="+options) == nil
}

// ValidateName accepts 2-100 letters, spaces and hyphens
func ValidateName(value string) Result {
	v := strings.TrimSpace(value)
	if v == "" {
		return fail("Name is required")
	}
	short, long := lengthBetween(v, MinNameLength, MaxNameLength)
	if short {
		return fail("Name must be at least 2 characters")
	}
	if long {
		return fail("Name must be less than 100 characters")
	}
	if !nameRegex.MatchString(v) {
		return fail("Name can only contain letters, spaces, and hyphens")
	}
	return pass()
}

// IsEmail reports whether value has the shape of a deliverable address
func IsEmail(value string) bool {
	v := strings.TrimSpace(value)
	return len(v) <= MaxEmailLength && emailRegex.MatchString(v)
}

// IsDisposableEmail reports whether the address uses a deny-listed domain
func IsDisposableEmail(value string) bool {
	at := strings.LastIndex(value, "@")
	if at < 0 {
		return false
	}
	return disposableDomains[strings.ToLower(strings.TrimSpace(value[at+1:]))]
}

// ValidateEmail checks the address format and, when blockDisposable is set,
// the domain deny-list
func ValidateEmail(value string, blockDisposable bool) Result {
	v := strings.TrimSpace(value)
	if v == "" {
		return fail("Email is required")
	}
	if !IsEmail(v) {
		return fail("Please enter a valid email address")
	}
	if blockDisposable && IsDisposableEmail(v) {
		return fail("Please use a permanent email address")
	}
	return pass()
}

// ValidateSubject accepts 5-100 characters
func ValidateSubject(value string) Result {
	v := strings.TrimSpace(value)
	if v == "" {
		return fail("Subject is required")
	}
	short, long := lengthBetween(v, MinSubjectLength, MaxSubjectLength)
	if short {
		return fail("Subject must be at least 5 characters")
	}
	if long {
		return fail("Subject must be less than 100 characters")
	}
	return pass()
}

// ValidateCategory accepts an empty value or one of Categories
func ValidateCategory(value string) Result {
	v := strings.TrimSpace(value)
	if v == "" || oneOf(v, Categories) {
		return pass()
	}
	return fail("Please select a valid category")
}

// CountURLs counts http:// and https:// occurrences
func CountURLs(s string) int {
	return len(urlRegex.FindAllStringIndex(s, -1))
}

// UppercaseRatio is the share of uppercase letters among all characters of s
func UppercaseRatio(s string) float64 {
	total := utf8.RuneCountInString(s)
	if total == 0 {
		return 0
	}
	upper := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(total)
}

// IsShouting applies the capitalisation rule shared with the spam heuristic
func IsShouting(s string) bool {
	return utf8.RuneCountInString(s) > CapsMinLength && UppercaseRatio(s) > CapsRatioThreshold
}

// ValidateMessageLength checks presence and the 10-2000 character bounds
func ValidateMessageLength(value string) Result {
	v := strings.TrimSpace(value)
	if v == "" {
		return fail("Message is required")
	}
	short, long := lengthBetween(v, MinMessageLength, MaxMessageLength)
	if short {
		return fail("Message must be at least 10 characters")
	}
	if long {
		return fail("Message must be less than 2000 characters")
	}
	return pass()
}

// ValidateMessage accepts 10-2000 characters with at most MaxMessageURLs links
// and no shouting
func ValidateMessage(value string) Result {
	if res := ValidateMessageLength(value); !res.Valid {
		return res
	}
	v := strings.TrimSpace(value)
	if CountURLs(v) > MaxMessageURLs {
		return fail("Message contains too many links")
	}
	if IsShouting(v) {
		return fail("Please avoid writing in all capital letters")
	}
	return pass()
}

// ValidatePhone accepts a loose international number; empty is valid unless required
func ValidatePhone(value string, required bool) Result {
	v := strings.TrimSpace(value)
	if v == "" {
		if required {
			return fail("Phone number is required")
		}
		return pass()
	}
	if !phoneRegex.MatchString(v) || countDigits(v) < 7 {
		return fail("Please enter a valid phone number")
	}
	return pass()
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// ValidateContactMethod accepts email, phone or whatsapp
func ValidateContactMethod(value string, required bool) Result {
	v := strings.TrimSpace(value)
	if v == "" {
		if required {
			return fail("Please select a preferred contact method")
		}
		return pass()
	}
	if !oneOf(v, ContactMethods) {
		return fail("Please select a valid contact method")
	}
	return pass()
}

// ValidateBudget accepts one of BudgetRanges
func ValidateBudget(value string, required bool) Result {
	v := strings.TrimSpace(value)
	if v == "" {
		if required {
			return fail("Please select a budget range")
		}
		return pass()
	}
	if !oneOf(v, BudgetRanges) {
		return fail("Please select a valid budget range")
	}
	return pass()
}
