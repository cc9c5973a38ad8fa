package apiclient

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its cookie jar must be the
// one shared with the renewer.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the logger for request tracing. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// RequestOption configures a single logical call.
type RequestOption func(*request)

// WithMethod sets the HTTP method. Default: GET.
func WithMethod(method string) RequestOption {
	return func(r *request) {
		if method != "" {
			r.method = method
		}
	}
}

// WithHeader adds a header value.
func WithHeader(key, value string) RequestOption {
	return func(r *request) {
		r.header.Add(key, value)
	}
}

// WithHeaders merges h into the request headers. h is copied, never modified.
func WithHeaders(h http.Header) RequestOption {
	return func(r *request) {
		for k, vs := range h {
			for _, v := range vs {
				r.header.Add(k, v)
			}
		}
	}
}

// WithQuery adds query parameters to the request URL.
func WithQuery(q url.Values) RequestOption {
	return func(r *request) {
		for k, vs := range q {
			for _, v := range vs {
				r.query.Add(k, v)
			}
		}
	}
}

// WithJSON encodes v as the request body.
func WithJSON(v any) RequestOption {
	return func(r *request) {
		r.body = bodyJSON
		r.payload = v
	}
}

// WithBody sends raw bytes. The JSON content type is not applied; contentType
// is used when non-empty.
func WithBody(contentType string, data []byte) RequestOption {
	return func(r *request) {
		r.body = bodyBinary
		r.raw = data
		r.contentType = contentType
	}
}

// WithMultipart builds a multipart/form-data body with fn. The client sets
// the content type including its boundary.
func WithMultipart(fn func(w *multipart.Writer) error) RequestOption {
	return func(r *request) {
		r.body = bodyMultipart
		r.multipart = fn
	}
}

// WithoutRetry disables the renew-and-retry step for this call.
func WithoutRetry() RequestOption {
	return func(r *request) {
		r.retry = false
	}
}
