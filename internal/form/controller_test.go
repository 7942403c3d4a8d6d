package form

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/welldanyogia/portfolio-contact/internal/contact"
	"github.com/welldanyogia/portfolio-contact/internal/rules"
)

type fakeSubmitter struct {
	mu   sync.Mutex
	reqs []contact.Request
	resp *Response
	err  error
}

func (f *fakeSubmitter) Submit(ctx context.Context, req contact.Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

// manualTimer captures scheduled callbacks so tests fire them explicitly
type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (m *manualTimer) afterFunc(d time.Duration, f func()) func() bool {
	m.delay = d
	m.fn = f
	m.stopped = false
	return func() bool {
		m.stopped = true
		return true
	}
}

func fillValid(t *testing.T, c *Controller) {
	t.Helper()
	values := map[string]string{
		rules.FieldName:    "Jane Doe",
		rules.FieldEmail:   "jane@acme.io",
		rules.FieldSubject: "Booking system rebuild",
		rules.FieldMessage: "Hi, I would like to talk about rebuilding our booking flow.",
	}
	for name, v := range values {
		require.NoError(t, c.Change(name, v))
	}
}

func successResponse() *Response {
	return &Response{
		StatusCode: 200,
		Success:    true,
		Result:     &contact.Result{NotificationID: "n-1", AutoReplyID: "r-1", AutoReplySent: true},
	}
}

func TestController_ErrorsVisibleAfterBlur(t *testing.T) {
	c := NewController(&fakeSubmitter{})

	require.NoError(t, c.Change(rules.FieldEmail, "bad-email"))
	f := c.Field(rules.FieldEmail)
	assert.Equal(t, "bad-email", f.Value)
	assert.NotEmpty(t, f.Error)
	assert.False(t, f.Touched)
	assert.Empty(t, c.VisibleError(rules.FieldEmail))

	require.NoError(t, c.Blur(rules.FieldEmail))
	assert.Equal(t, "Please enter a valid email address", c.VisibleError(rules.FieldEmail))

	require.NoError(t, c.Change(rules.FieldEmail, "jane@acme.io"))
	assert.Empty(t, c.VisibleError(rules.FieldEmail))

	assert.Error(t, c.Change("nickname", "x"))
	assert.Error(t, c.Blur("nickname"))
}

func TestController_CanSubmit(t *testing.T) {
	c := NewController(&fakeSubmitter{})
	assert.False(t, c.CanSubmit())

	fillValid(t, c)
	assert.True(t, c.CanSubmit())

	require.NoError(t, c.Change(rules.FieldPhone, "abc"))
	assert.False(t, c.CanSubmit(), "an optional field with an error blocks submit")

	require.NoError(t, c.Change(rules.FieldPhone, ""))
	assert.True(t, c.CanSubmit())

	strict := NewController(&fakeSubmitter{}, WithRules(rules.RuleSet{Strict: true}))
	fillValid(t, strict)
	assert.False(t, strict.CanSubmit(), "strict mode requires phone, contact method and budget")
}

func TestController_SubmitFocusesFirstInvalid(t *testing.T) {
	sub := &fakeSubmitter{resp: successResponse()}
	c := NewController(sub)

	require.NoError(t, c.Change(rules.FieldName, "Jo"))
	require.NoError(t, c.Change(rules.FieldEmail, "bad-email"))
	require.NoError(t, c.Change(rules.FieldSubject, "Hi"))
	require.NoError(t, c.Change(rules.FieldMessage, "short"))

	_, err := c.Submit(context.Background())
	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, rules.FieldEmail, invalid.Field)
	assert.Contains(t, invalid.Errors, rules.FieldSubject)
	assert.Contains(t, invalid.Errors, rules.FieldMessage)
	assert.NotContains(t, invalid.Errors, rules.FieldName)

	assert.True(t, c.Field(rules.FieldMessage).Touched)
	assert.NotEmpty(t, c.VisibleError(rules.FieldMessage))
	assert.Empty(t, sub.reqs, "nothing is sent while the form is invalid")
}

func TestController_SubmitEmptyForm(t *testing.T) {
	c := NewController(&fakeSubmitter{})

	_, err := c.Submit(context.Background())
	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, rules.FieldName, invalid.Field)
	assert.Equal(t, "Name is required", c.VisibleError(rules.FieldName))
}

func TestController_SubmitSuccessAutoClears(t *testing.T) {
	sub := &fakeSubmitter{resp: successResponse()}
	timer := &manualTimer{}
	c := NewController(sub, WithAfterFunc(timer.afterFunc), WithClearDelay(3*time.Second))

	fillValid(t, c)
	c.Attach("brief.txt", "text/plain", []byte("hello"))

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, out.Kind)
	assert.Equal(t, "n-1", out.Result.NotificationID)

	require.Len(t, sub.reqs, 1)
	assert.Equal(t, "Jane Doe", sub.reqs[0].Name)
	assert.Equal(t, "data:text/plain;base64,aGVsbG8=", sub.reqs[0].FileData)
	assert.Equal(t, "brief.txt", sub.reqs[0].FileName)

	// The form is emptied after a successful send
	assert.Empty(t, c.Field(rules.FieldName).Value)
	assert.False(t, c.CanSubmit())

	assert.Equal(t, 3*time.Second, timer.delay)
	require.NotNil(t, timer.fn)
	assert.Equal(t, OutcomeSuccess, c.Outcome().Kind)
	timer.fn()
	assert.Equal(t, OutcomeNone, c.Outcome().Kind)
}

// A stale clear timer must not wipe the outcome of a later submit
func TestController_StaleClearIgnored(t *testing.T) {
	sub := &fakeSubmitter{resp: successResponse()}
	timer := &manualTimer{}
	c := NewController(sub, WithAfterFunc(timer.afterFunc))

	fillValid(t, c)
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	stale := timer.fn

	sub.resp = &Response{StatusCode: 500, Error: &contact.APIError{Code: contact.CodeNotificationFailed, Message: "failed"}}
	fillValid(t, c)
	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeError, out.Kind)
	assert.True(t, timer.stopped)

	stale()
	assert.Equal(t, OutcomeError, c.Outcome().Kind)
}

func TestController_SpamOutcome(t *testing.T) {
	sub := &fakeSubmitter{resp: &Response{
		StatusCode: 400,
		Error: &contact.APIError{
			Code:        contact.CodeSpamDetected,
			Message:     "flagged",
			ReferenceID: "REF-1-ABCD1234",
			AlternativeContact: &contact.AlternativeContact{
				Email:    "owner@portfolio.dev",
				WhatsApp: "https://wa.me/447700900123?text=hi",
			},
		},
	}}
	c := NewController(sub)
	fillValid(t, c)

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeError, out.Kind)
	assert.Equal(t, "REF-1-ABCD1234", out.ReferenceID)
	assert.Equal(t, "https://wa.me/447700900123?text=hi", out.AlternativeURL())

	// Field values are kept so the user can copy them elsewhere
	assert.Equal(t, "Jane Doe", c.Field(rules.FieldName).Value)
}

func TestController_AlternativeOnlyForSpam(t *testing.T) {
	sub := &fakeSubmitter{resp: &Response{
		StatusCode: 429,
		Error: &contact.APIError{
			Code:               contact.CodeRateLimitExceeded,
			Message:            "slow down",
			AlternativeContact: &contact.AlternativeContact{Email: "owner@portfolio.dev"},
		},
	}}
	c := NewController(sub)
	fillValid(t, c)

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, contact.CodeRateLimitExceeded, out.Code)
	assert.Nil(t, out.Alternative)
	assert.Empty(t, out.AlternativeURL())
}

func TestController_NetworkError(t *testing.T) {
	c := NewController(&fakeSubmitter{err: errors.New("dial tcp: connection refused")})
	fillValid(t, c)

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeError, out.Kind)
	assert.Equal(t, CodeNetworkError, out.Code)
	assert.True(t, c.CanSubmit(), "the form stays filled for a retry")
}

func TestOutcome_AlternativeURLFallbacks(t *testing.T) {
	assert.Equal(t, "https://linkedin.com/in/x", Outcome{Alternative: &contact.AlternativeContact{LinkedIn: "https://linkedin.com/in/x", Email: "a@b.io"}}.AlternativeURL())
	assert.Equal(t, "mailto:a@b.io", Outcome{Alternative: &contact.AlternativeContact{Email: "a@b.io"}}.AlternativeURL())
	assert.Empty(t, Outcome{}.AlternativeURL())
}

// The controller and the server rule set agree on every field value
func TestProperty_ChangeMirrorsRules(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		field := rapid.SampledFrom(rules.FieldOrder).Draw(t, "field")
		value := rapid.String().Draw(t, "value")

		c := NewController(&fakeSubmitter{})
		if err := c.Change(field, value); err != nil {
			t.Fatal(err)
		}
		want := rules.Default().Field(field, value)
		if got := c.Field(field).Error; got != want.Message {
			t.Fatalf("Change(%s, %q) error = %q, rules say %q", field, value, got, want.Message)
		}
	})
}
