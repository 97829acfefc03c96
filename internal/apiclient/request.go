package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const (
	contentTypeJSON      = "application/json"
	contentTypeMultipart = "multipart/form-data"
)

// Request describes one backend call. The body is held in memory so the
// request can be replayed after a token refresh.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string
}

// NewRequest creates a request without a body
func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path}
}

// NewJSONRequest creates a request whose body is v encoded as JSON
func NewJSONRequest(method, path string, v interface{}) (*Request, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return &Request{Method: method, Path: path, Body: b, ContentType: contentTypeJSON}, nil
}

// FilePart is one file attached to a multipart request
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// NewMultipartRequest builds a multipart/form-data request from plain fields and files
func NewMultipartRequest(method, path string, fields map[string]string, files ...FilePart) (*Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := w.WriteField(name, fields[name]); err != nil {
			return nil, fmt.Errorf("failed to write form field %q: %w", name, err)
		}
	}

	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file %q: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("failed to copy form file %q: %w", f.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return &Request{
		Method:      method,
		Path:        path,
		Body:        buf.Bytes(),
		ContentType: w.FormDataContentType(),
	}, nil
}

// IsMultipart reports whether the request carries a multipart payload
func (r *Request) IsMultipart() bool {
	return strings.HasPrefix(strings.ToLower(r.ContentType), contentTypeMultipart)
}

// Response is a successful backend response with its body fully read
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("failed to decode response: empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
