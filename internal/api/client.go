package api

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps access to the status API. All endpoint paths are relative to
// the base URL, which is read once at startup and never changes.
type Client struct {
	baseURL string
	http    *resty.Client
	stream  *resty.Client
}

// NewClient creates a status API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}

	c.http = resty.New().
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry reads on 429 and transient 5xx. Writes are not retried
			// automatically; the refresh cycle reconciles their outcome.
			if r == nil || r.Request == nil || r.Request.Method != "GET" {
				return false
			}
			return r.StatusCode() == 429 || (r.StatusCode() >= 500 && r.StatusCode() <= 504)
		})

	// Separate client for exchanges that may outlast the read timeout:
	// the event stream (the body never ends, handed to the caller
	// unparsed) and uploads. Cancellation is the caller's ctx.
	c.stream = resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(0).
		SetDoNotParseResponse(true)

	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request against an endpoint path.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParams(params)
	}
	return req.Get(endpoint)
}

// Post performs a JSON POST request.
func (c *Client) Post(ctx context.Context, endpoint string, payload interface{}) (*resty.Response, error) {
	return c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(endpoint)
}

// Patch performs a JSON PATCH request.
func (c *Client) Patch(ctx context.Context, endpoint string, payload interface{}) (*resty.Response, error) {
	return c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Patch(endpoint)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string) (*resty.Response, error) {
	return c.http.R().SetContext(ctx).Delete(endpoint)
}

// Stream opens a raw, unparsed response to an endpoint. The caller owns the
// response body and must close it.
func (c *Client) Stream(ctx context.Context, endpoint string) (*resty.Response, error) {
	return c.stream.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache").
		Get(endpoint)
}

// Upload performs a multipart POST with a single form file field. The body is
// streamed through a pipe rather than resty's buffered multipart handling, so
// reads from body track what the transport has actually consumed. Upload
// progress is derived from those reads. The request runs on the untimed
// client: a transfer may legitimately outlast the read timeout, and the only
// deadline that applies is the caller's ctx.
func (c *Client) Upload(ctx context.Context, endpoint, field, filename string, body io.Reader) (*http.Response, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(field, filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, body); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.stream.GetClient().Do(req)
}
