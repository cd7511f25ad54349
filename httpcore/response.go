package httpcore

import (
	"strconv"
	"strings"
)

// Response is the outgoing half of a request: an integer status, an
// optional explicit reason phrase, a case-insensitive header map, and an
// owned body.
type Response struct {
	status  int
	reason  string
	headers Headers
	body    []byte
}

// NewResponse returns a Response defaulting to 200 OK with no headers or
// body.
func NewResponse() *Response {
	return &Response{status: StatusOK, headers: NewHeaders()}
}

// Status returns the response's status code.
func (r *Response) Status() int { return r.status }

// SetStatus sets the response's status code.
func (r *Response) SetStatus(code int) { r.status = code }

// StatusMessage returns the explicit reason phrase if one was set via
// SetStatusMessage, otherwise the default phrase for Status().
func (r *Response) StatusMessage() string {
	if r.reason != "" {
		return r.reason
	}
	return ReasonPhrase(r.status)
}

// SetStatusMessage overrides the default reason phrase.
func (r *Response) SetStatusMessage(msg string) { r.reason = msg }

// HasHeader reports whether name has been set.
func (r *Response) HasHeader(name string) bool { return r.headers.Has(name) }

// Header returns the value set for name.
func (r *Response) Header(name string) (string, bool) { return r.headers.Get(name) }

// SetHeader sets name to value, case-insensitively.
func (r *Response) SetHeader(name, value string) { r.headers.Set(name, value) }

// Body returns the response body.
func (r *Response) Body() []byte { return r.body }

// SetBody replaces the response body.
func (r *Response) SetBody(body []byte) { r.body = body }

// Serialize renders the status line, headers (auto-supplying
// Content-Length when absent), the blank line, and the body — the wire
// format described for the router's HTTP/1.1 output.
func (r *Response) Serialize() []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(r.status))
	b.WriteByte(' ')
	b.WriteString(r.StatusMessage())
	b.WriteString("\r\n")

	r.headers.Range(func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	})

	if !r.HasHeader("Content-Length") {
		b.WriteString("Content-Length: ")
		b.WriteString(strconv.Itoa(len(r.body)))
		b.WriteString("\r\n")
	}

	b.WriteString("\r\n")
	out := make([]byte, 0, b.Len()+len(r.body))
	out = append(out, b.String()...)
	out = append(out, r.body...)
	return out
}
