package rules

import "strings"

// Fields is the text content of one contact form, keyed the same way as the
// JSON body
type Fields struct {
	Name          string
	Email         string
	Subject       string
	Category      string
	Message       string
	Phone         string
	ContactMethod string
	Budget        string
}

// Get returns the value of the named field
func (f Fields) Get(field string) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldSubject:
		return f.Subject
	case FieldCategory:
		return f.Category
	case FieldMessage:
		return f.Message
	case FieldPhone:
		return f.Phone
	case FieldContactMethod:
		return f.ContactMethod
	case FieldBudget:
		return f.Budget
	}
	return ""
}

// Set updates the named field, unknown names are ignored
func (f *Fields) Set(field, value string) {
	switch field {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldSubject:
		f.Subject = value
	case FieldCategory:
		f.Category = value
	case FieldMessage:
		f.Message = value
	case FieldPhone:
		f.Phone = value
	case FieldContactMethod:
		f.ContactMethod = value
	case FieldBudget:
		f.Budget = value
	}
}

// RuleSet is the single authoritative set of field rules.
// Strict makes phone, contact method and budget mandatory.
type RuleSet struct {
	Strict          bool
	BlockDisposable bool
}

// Default returns the rule set used when nothing is configured
func Default() RuleSet {
	return RuleSet{BlockDisposable: true}
}

// Required reports whether a field must be present
func (rs RuleSet) Required(field string) bool {
	switch field {
	case FieldName, FieldEmail, FieldSubject, FieldMessage:
		return true
	case FieldPhone, FieldContactMethod, FieldBudget:
		return rs.Strict
	}
	return false
}

// Field validates one named field
func (rs RuleSet) Field(field, value string) Result {
	switch field {
	case FieldName:
		return ValidateName(value)
	case FieldEmail:
		return ValidateEmail(value, rs.BlockDisposable)
	case FieldSubject:
		return ValidateSubject(value)
	case FieldCategory:
		return ValidateCategory(value)
	case FieldMessage:
		return ValidateMessage(value)
	case FieldPhone:
		return ValidatePhone(value, rs.Strict)
	case FieldContactMethod:
		return ValidateContactMethod(value, rs.Strict)
	case FieldBudget:
		return ValidateBudget(value, rs.Strict)
	}
	return pass()
}

// Missing lists required fields that are empty after trimming, in form order
func (rs RuleSet) Missing(f Fields) []string {
	var missing []string
	for _, field := range FieldOrder {
		if rs.Required(field) && strings.TrimSpace(f.Get(field)) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// All validates every field and returns the messages of the invalid ones
func (rs RuleSet) All(f Fields) map[string]string {
	errs := make(map[string]string)
	for _, field := range FieldOrder {
		if res := rs.Field(field, f.Get(field)); !res.Valid {
			errs[field] = res.Message
		}
	}
	return errs
}

// FirstInvalid returns the first field in form order that has an error
func FirstInvalid(errs map[string]string) (string, bool) {
	for _, field := range FieldOrder {
		if _, ok := errs[field]; ok {
			return field, true
		}
	}
	return "", false
}
