package httpcore

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
	"github.com/matgreaves/loom/loomerr"
	"github.com/matgreaves/loom/netio"
)

// Router is a collection of handler factories keyed by compiled path
// expression. Routes are installed with explicit AttachRoute calls —
// assembled by the program at startup rather than through a
// static-initializer registry — and Run drives one connection's request
// loop at a time.
type Router struct {
	trie        *EndpointTrie[HandlerFactory]
	connections atomic.Int64
	resources   *ResourceRegistry
	logger      *slog.Logger
}

// NewRouter returns an empty Router. resources may be nil if no handler
// registered on this router uses Server Resource injection.
func NewRouter(resources *ResourceRegistry) *Router {
	return &Router{
		trie:      NewEndpointTrie[HandlerFactory](),
		resources: resources,
		logger:    slog.Default(),
	}
}

// SetLogger replaces the Router's logger, e.g. to route request logging
// through connect.LogWriter's per-process writer instead of slog.Default.
func (rt *Router) SetLogger(logger *slog.Logger) {
	rt.logger = logger
}

// AttachRoute compiles route and inserts it into the trie with factory as
// its endpoint. It returns AlreadyExists on a duplicate or
// conflicting-wildcard route.
func (rt *Router) AttachRoute(route string, factory HandlerFactory) error {
	return rt.trie.Insert(route, factory)
}

// ConnectionCount reports the number of connections currently being
// served by this router.
func (rt *Router) ConnectionCount() int64 { return rt.connections.Load() }

// Run services one accepted connection to completion: it repeatedly
// reads a request, dispatches it, and writes a response until the
// connection is closed or a keep-alive isn't requested.
func (rt *Router) Run(s *sched.Scheduler, c *co.Ctx, conn netio.CoStream) {
	rt.connections.Add(1)
	defer rt.connections.Add(-1)

	reader := netio.NewBufferedReader(conn)
	for conn.Good() {
		keepGoing := rt.runOnce(s, c, conn, reader)
		if !keepGoing {
			return
		}
	}
}

// runOnce handles exactly one request/response cycle and reports whether
// the connection should be read from again.
func (rt *Router) runOnce(s *sched.Scheduler, c *co.Ctx, conn netio.CoStream, reader *netio.BufferedReader) bool {
	req, err := ReadHeader(s, c, reader)
	if err != nil {
		if reader.Eof() {
			return false // peer closed cleanly between requests
		}
		res := NewResponse()
		respondError(res, err)
		rt.finish(s, c, conn, nil, res)
		return false
	}

	res := NewResponse()
	if err := LoadBody(s, c, reader, req); err != nil {
		respondError(res, err)
		rt.finish(s, c, conn, req, res)
		return false
	}

	match, ok := rt.trie.Match(req.path)
	if !ok {
		respondFailure(res, StatusNotFound, "Not Found.")
		return rt.finish(s, c, conn, req, res)
	}
	req.SetRouteParams(match.Params)
	if rt.resources != nil {
		req.SetResources(NewResourceContext(rt.resources))
	}

	handler := match.Endpoint.NewHandler()
	rt.logger.Info("dispatching request", "method", req.method, "route", match.Endpoint.Route())

	if err := rt.runHandler(s, c, handler, req, res); err != nil {
		respondError(res, err)
	}

	return rt.finish(s, c, conn, req, res)
}

// runHandler runs the Before hook, the matched verb method (405 if the
// handler doesn't implement it), and the After hook, in that order.
func (rt *Router) runHandler(s *sched.Scheduler, c *co.Ctx, h Handler, req *Request, res *Response) error {
	if err := h.Before(s, c, req, res); err != nil {
		return err
	}

	dispatched, err := dispatchVerb(h, req.method, s, c, req, res)
	if err != nil {
		return err
	}
	if !dispatched {
		allow := implementedVerbs(h)
		res.SetStatus(StatusMethodNotAllowed)
		res.SetHeader("Allow", strings.Join(allow, ", "))
		res.SetBody([]byte("Method Not Allowed."))
		res.SetHeader("Content-Type", "text/plain")
		return nil
	}

	return h.After(s, c, req, res)
}

// finish writes res to conn, logs the outcome, and reports whether the
// connection should stay open for another request (keep-alive).
func (rt *Router) finish(s *sched.Scheduler, c *co.Ctx, conn netio.CoStream, req *Request, res *Response) bool {
	if req != nil {
		rt.logger.Info("responding", "status", res.Status(), "method", req.method, "path", req.rawPath)
	}
	if _, err := conn.Write(s, c, res.Serialize()); err != nil {
		conn.Close()
		return false
	}

	keepAlive := req != nil
	if req != nil {
		v, ok := req.Header("Connection")
		keepAlive = ok && strings.EqualFold(v, "keep-alive")
	}
	if !keepAlive {
		conn.Close()
		return false
	}
	return true
}

// respondFailure fills res with a plain-text error body.
func respondFailure(res *Response, status int, body string) {
	res.SetStatus(status)
	res.SetHeader("Content-Type", "text/plain")
	res.SetBody([]byte(body))
}

// respondError maps a canonical error kind to its status code and writes
// the error message as a plain-text body; non-canonical errors fall
// through KindOf to Internal and a 500.
func respondError(res *Response, err error) {
	status := loomerr.StatusCode(loomerr.KindOf(err))
	respondFailure(res, status, err.Error())
}
