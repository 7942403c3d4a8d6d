package form

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/welldanyogia/portfolio-contact/internal/contact"
)

const contactPath = "/api/contact"

// Response is the decoded answer of POST /api/contact
type Response struct {
	StatusCode int
	Success    bool
	Result     *contact.Result
	Error      *contact.APIError
}

type submitEnvelope struct {
	Success bool              `json:"success"`
	Data    *contact.Result   `json:"data"`
	Error   *contact.APIError `json:"error"`
}

type statusEnvelope struct {
	Success bool            `json:"success"`
	Data    *contact.Status `json:"data"`
}

// Client talks to the contact endpoint
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// Submit posts one submission. A non-2xx answer is not an error as long as
// it carries the JSON envelope; the caller branches on Response.Error.Code.
func (c *Client) Submit(ctx context.Context, req contact.Request) (*Response, error) {
	var env submitEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&env).
		SetError(&env).
		Post(contactPath)
	if err != nil {
		return nil, fmt.Errorf("contact request failed: %w", err)
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Success:    env.Success,
		Result:     env.Data,
		Error:      env.Error,
	}
	if !out.Success && out.Error == nil {
		return nil, fmt.Errorf("unexpected response from contact endpoint (%d %s)", resp.StatusCode(), http.StatusText(resp.StatusCode()))
	}
	return out, nil
}

// Status fetches the configuration presence check
func (c *Client) Status(ctx context.Context) (*contact.Status, error) {
	var env statusEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&env).
		Get(contactPath)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	if resp.IsError() || env.Data == nil {
		return nil, fmt.Errorf("status request failed (%d %s)", resp.StatusCode(), http.StatusText(resp.StatusCode()))
	}
	return env.Data, nil
}
