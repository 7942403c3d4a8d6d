// Package form is the client side of the contact form: a per-field state
// machine that validates with the same rules as the server and submits
// through Client.
package form

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/welldanyogia/portfolio-contact/internal/contact"
	"github.com/welldanyogia/portfolio-contact/internal/rules"
)

// DefaultClearDelay is how long the success message stays visible
const DefaultClearDelay = 5 * time.Second

// CodeNetworkError is reported when the server could not be reached
const CodeNetworkError = "NETWORK_ERROR"

// FieldState is what the UI renders for one input
type FieldState struct {
	Value   string
	Touched bool
	Error   string
}

// OutcomeKind is the state of the result banner
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeSuccess
	OutcomeError
)

// Outcome is the result banner shown after a submit
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Code    string
	Result  *contact.Result
	// ReferenceID and Alternative are only set for spam rejections
	ReferenceID string
	Alternative *contact.AlternativeContact
}

// AlternativeURL is the call-to-action link for a flagged sender
func (o Outcome) AlternativeURL() string {
	if o.Alternative == nil {
		return ""
	}
	switch {
	case o.Alternative.WhatsApp != "":
		return o.Alternative.WhatsApp
	case o.Alternative.LinkedIn != "":
		return o.Alternative.LinkedIn
	case o.Alternative.Email != "":
		return "mailto:" + o.Alternative.Email
	}
	return ""
}

// Submitter sends a submission, implemented by *Client
type Submitter interface {
	Submit(ctx context.Context, req contact.Request) (*Response, error)
}

// AfterFunc schedules f after d and returns a function that cancels it.
// time.AfterFunc is the production implementation.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// InvalidError aborts a submit. Field is the first invalid input in form
// order and should receive focus.
type InvalidError struct {
	Field  string
	Errors map[string]string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Errors[e.Field])
}

// ErrSubmitting is returned when a submit is already in flight
var ErrSubmitting = errors.New("a submission is already in progress")

type attachment struct {
	name        string
	contentType string
	data        []byte
}

// Controller holds the form state. It is safe for concurrent use.
type Controller struct {
	mu         sync.Mutex
	rules      rules.RuleSet
	fields     map[string]*FieldState
	file       *attachment
	client     Submitter
	outcome    Outcome
	submitting bool
	generation int
	clearDelay time.Duration
	afterFunc  AfterFunc
	stopClear  func() bool
}

// Option configures a Controller
type Option func(*Controller)

// WithRules replaces rules.Default
func WithRules(rs rules.RuleSet) Option {
	return func(c *Controller) {
		c.rules = rs
	}
}

// WithClearDelay sets how long a success outcome stays visible
func WithClearDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.clearDelay = d
	}
}

// WithAfterFunc replaces the timer used to clear the success outcome
func WithAfterFunc(f AfterFunc) Option {
	return func(c *Controller) {
		c.afterFunc = f
	}
}

// NewController creates an empty form
func NewController(client Submitter, opts ...Option) *Controller {
	c := &Controller{
		rules:      rules.Default(),
		client:     client,
		clearDelay: DefaultClearDelay,
		afterFunc:  realAfterFunc,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reset()
	return c
}

func (c *Controller) reset() {
	c.fields = make(map[string]*FieldState, len(rules.FieldOrder))
	for _, name := range rules.FieldOrder {
		c.fields[name] = &FieldState{}
	}
	c.file = nil
}

func (c *Controller) field(name string) (*FieldState, error) {
	f, ok := c.fields[name]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", name)
	}
	return f, nil
}

// Change stores a new value and re-validates the field immediately
func (c *Controller) Change(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.field(name)
	if err != nil {
		return err
	}
	f.Value = value
	f.Error = c.rules.Field(name, value).Message
	return nil
}

// Blur marks the field as touched so its error becomes visible
func (c *Controller) Blur(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.field(name)
	if err != nil {
		return err
	}
	f.Touched = true
	f.Error = c.rules.Field(name, f.Value).Message
	return nil
}

// Field returns a copy of the field state
func (c *Controller) Field(name string) FieldState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.fields[name]; ok {
		return *f
	}
	return FieldState{}
}

// VisibleError is the error to render, empty until the field was touched
func (c *Controller) VisibleError(name string) string {
	f := c.Field(name)
	if !f.Touched {
		return ""
	}
	return f.Error
}

// Attach adds a file that is sent as a base64 data URL
func (c *Controller) Attach(name, contentType string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = &attachment{name: name, contentType: contentType, data: data}
}

// CanSubmit is false while a submit is running, a required field is empty
// or any field has an error
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting {
		return false
	}
	for _, name := range rules.FieldOrder {
		f := c.fields[name]
		if f.Error != "" {
			return false
		}
		if c.rules.Required(name) && strings.TrimSpace(f.Value) == "" {
			return false
		}
	}
	return true
}

// Outcome returns the current result banner
func (c *Controller) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Submit touches and validates every field. When any is invalid it returns
// an *InvalidError naming the field to focus and sends nothing. Otherwise
// it posts the form and records the Outcome; transport failures become an
// error outcome rather than an error return.
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return Outcome{}, ErrSubmitting
	}

	values := rules.Fields{}
	for _, name := range rules.FieldOrder {
		f := c.fields[name]
		f.Touched = true
		values.Set(name, f.Value)
	}

	errs := c.rules.All(values)
	for _, name := range c.rules.Missing(values) {
		if _, ok := errs[name]; !ok {
			errs[name] = "This field is required"
		}
	}
	for _, name := range rules.FieldOrder {
		c.fields[name].Error = errs[name]
	}
	if first, ok := rules.FirstInvalid(errs); ok {
		c.mu.Unlock()
		return Outcome{}, &InvalidError{Field: first, Errors: errs}
	}

	req := contact.Request{
		Name:          values.Name,
		Email:         values.Email,
		Subject:       values.Subject,
		Category:      values.Category,
		Message:       values.Message,
		Phone:         values.Phone,
		ContactMethod: values.ContactMethod,
		Budget:        values.Budget,
	}
	if c.file != nil {
		req.FileName = c.file.name
		req.FileType = c.file.contentType
		req.FileData = "data:" + c.file.contentType + ";base64," + base64.StdEncoding.EncodeToString(c.file.data)
	}

	c.submitting = true
	c.outcome = Outcome{}
	c.cancelClear()
	c.mu.Unlock()

	resp, err := c.client.Submit(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	c.outcome = outcomeFor(resp, err)

	if c.outcome.Kind == OutcomeSuccess {
		c.reset()
		c.scheduleClear()
	}
	return c.outcome, nil
}

func outcomeFor(resp *Response, err error) Outcome {
	if err != nil || resp == nil {
		return Outcome{
			Kind:    OutcomeError,
			Code:    CodeNetworkError,
			Message: "Could not reach the server. Please check your connection and try again.",
		}
	}
	if resp.Success {
		msg := "Thank you! Your message has been sent."
		if resp.Result != nil && resp.Result.AttachmentIssue {
			msg += " Your attachment could not be delivered, please send it by email."
		}
		return Outcome{Kind: OutcomeSuccess, Message: msg, Result: resp.Result}
	}

	if resp.Error == nil {
		return Outcome{Kind: OutcomeError, Code: contact.CodeInternalError, Message: "Something went wrong. Please try again later."}
	}

	out := Outcome{Kind: OutcomeError, Code: resp.Error.Code, Message: resp.Error.Message}
	if resp.Error.Code == contact.CodeSpamDetected {
		out.ReferenceID = resp.Error.ReferenceID
		out.Alternative = resp.Error.AlternativeContact
	}
	return out
}

func (c *Controller) scheduleClear() {
	c.generation++
	gen := c.generation
	c.stopClear = c.afterFunc(c.clearDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation == gen && c.outcome.Kind == OutcomeSuccess {
			c.outcome = Outcome{}
		}
	})
}

func (c *Controller) cancelClear() {
	c.generation++
	if c.stopClear != nil {
		c.stopClear()
		c.stopClear = nil
	}
}
