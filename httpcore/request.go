package httpcore

import (
	"strconv"
	"strings"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
	"github.com/matgreaves/loom/loomerr"
	"github.com/matgreaves/loom/netio"
)

// maxHeaderSize bounds how much of the connection ReadHeader will scan
// looking for the terminating blank line before giving up, so a peer that
// never sends one can't grow the read buffer without limit.
const maxHeaderSize = 64 * 1024

// Request is an incoming HTTP request: verb, raw and parsed path, header
// and query-param maps, and the route params the router injects once it
// matches.
type Request struct {
	method      string
	rawPath     string
	path        string
	httpVersion string
	rawHeader   string

	headers     Headers
	queryParams Headers
	routeParams Headers

	contentLength int64
	body          []byte

	resources *ResourceContext
}

// Method returns the HTTP verb, upper-cased (e.g. "GET").
func (r *Request) Method() string { return r.method }

// Path returns the path with any query string stripped.
func (r *Request) Path() string { return r.path }

// RawPath returns the path exactly as it appeared on the wire, including
// any query string.
func (r *Request) RawPath() string { return r.rawPath }

// HTTPVersion returns the request's declared HTTP version string, e.g.
// "HTTP/1.1".
func (r *Request) HTTPVersion() string { return r.httpVersion }

// ContentLength returns the parsed Content-Length, or 0 if absent.
func (r *Request) ContentLength() int64 { return r.contentLength }

// Header returns the named header's value.
func (r *Request) Header(name string) (string, bool) { return r.headers.Get(name) }

// QueryParam returns the named query-string parameter's value.
func (r *Request) QueryParam(name string) (string, bool) { return r.queryParams.Get(name) }

// RouteParam returns the named path-capture's value, as populated by the
// router after a successful trie match.
func (r *Request) RouteParam(name string) (string, bool) { return r.routeParams.Get(name) }

// SetRouteParams installs the parameters captured by the route matcher.
// Only the router should call this.
func (r *Request) SetRouteParams(params Headers) { r.routeParams = params }

// Resources returns this request's Server Resource memo, or nil if the
// owning Router was built without a ResourceRegistry. Handlers call
// httpcore.Resource[T](req.Resources()) to fetch a dependency.
func (r *Request) Resources() *ResourceContext { return r.resources }

// SetResources installs the request's Server Resource memo. Only the
// router should call this.
func (r *Request) SetResources(ctx *ResourceContext) { r.resources = ctx }

// ReadHeader reads from reader up to and including the blank line that
// terminates an HTTP header block, then parses the method line, header
// lines, and Content-Length.
func ReadHeader(s *sched.Scheduler, c *co.Ctx, reader *netio.BufferedReader) (*Request, error) {
	raw, err := reader.ReadUntilString(s, c, []byte("\r\n\r\n"), maxHeaderSize)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, loomerr.New(loomerr.InvalidArgument, "connection closed before a request header arrived")
	}

	req := &Request{rawHeader: string(raw), headers: NewHeaders(), queryParams: NewHeaders()}
	rest, err := req.parseMethodLine(req.rawHeader)
	if err != nil {
		return nil, err
	}
	if err := req.parseHeaderLines(rest); err != nil {
		return nil, err
	}
	req.parseContentLength()
	return req, nil
}

// parseMethodLine parses "METHOD SP path[?query] SP HTTP-version\r\n" and
// returns the remainder of the header block.
func (r *Request) parseMethodLine(header string) (string, error) {
	line, rest, ok := strings.Cut(header, "\r\n")
	if !ok {
		return "", loomerr.New(loomerr.InvalidArgument, "request header missing method line terminator")
	}
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return "", loomerr.New(loomerr.InvalidArgument, "malformed method line %q", line)
	}
	r.method = strings.ToUpper(fields[0])
	r.rawPath = fields[1]
	r.httpVersion = fields[2]

	path, query, hasQuery := strings.Cut(r.rawPath, "?")
	r.path = path
	if hasQuery {
		parseQueryParams(query, &r.queryParams)
	}
	return rest, nil
}

// parseQueryParams parses "a=1&b=2"-style pairs. A dangling unterminated
// final pair is still captured; values are not URL-decoded.
func parseQueryParams(params string, out *Headers) {
	for _, pair := range strings.Split(params, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if key == "" {
			continue
		}
		out.Set(key, value)
	}
}

// parseHeaderLines parses "Name: value\r\n" lines up to the trailing
// blank line.
func (r *Request) parseHeaderLines(header string) error {
	for len(header) > 0 {
		if header == "\r\n" {
			return nil
		}
		colon := strings.IndexByte(header, ':')
		lineEnd := strings.Index(header, "\r\n")
		if colon < 0 || lineEnd < 0 || colon > lineEnd {
			return loomerr.New(loomerr.InvalidArgument, "malformed header line %q", header)
		}
		name := header[:colon]
		value := strings.TrimSpace(header[colon+1 : lineEnd])
		r.headers.Set(name, value)
		header = header[lineEnd+2:]
	}
	return nil
}

// parseContentLength sets contentLength from the Content-Length header,
// defaulting to 0 if the header is absent, negative, or unparseable.
func (r *Request) parseContentLength() {
	v, ok := r.headers.Get("Content-Length")
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return
	}
	r.contentLength = n
}

// Body returns the request body loaded by LoadBody.
func (r *Request) Body() []byte { return r.body }

// LoadBody reads exactly ContentLength() bytes from reader and stores
// them on the request. Content-Length is the only body-framing mode this
// router supports.
func LoadBody(s *sched.Scheduler, c *co.Ctx, reader *netio.BufferedReader, req *Request) error {
	if req.contentLength == 0 {
		return nil
	}
	body, err := reader.Read(s, c, int(req.contentLength))
	if err != nil {
		return err
	}
	req.body = body
	return nil
}
