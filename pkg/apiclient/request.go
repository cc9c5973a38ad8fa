package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
)

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyJSON
	bodyBinary
	bodyMultipart
)

type request struct {
	method string
	header http.Header
	query  url.Values
	retry  bool

	body        bodyKind
	payload     any
	raw         []byte
	contentType string
	multipart   func(*multipart.Writer) error
}

func newRequest(opts []RequestOption) *request {
	r := &request{
		method: http.MethodGet,
		header: http.Header{},
		query:  url.Values{},
		retry:  true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// encode renders the body once so a retry can replay identical bytes.
// The returned content type is empty when none should be forced.
func (r *request) encode() ([]byte, string, error) {
	switch r.body {
	case bodyJSON:
		data, err := json.Marshal(r.payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return data, "", nil
	case bodyBinary:
		return r.raw, r.contentType, nil
	case bodyMultipart:
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if r.multipart != nil {
			if err := r.multipart(mw); err != nil {
				return nil, "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
			}
		}
		if err := mw.Close(); err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return buf.Bytes(), mw.FormDataContentType(), nil
	}
	return nil, "", nil
}

// headers returns a fresh header set for one attempt.
func (r *request) headers(contentType string) http.Header {
	h := r.header.Clone()
	switch {
	case r.body == bodyMultipart:
		// The boundary is ours; a caller value would break the body.
		h.Set("Content-Type", contentType)
	case h.Get("Content-Type") != "":
	case contentType != "":
		h.Set("Content-Type", contentType)
	case r.body == bodyNone || r.body == bodyJSON:
		h.Set("Content-Type", "application/json")
	}
	return h
}
