package httpcore

import (
	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
)

// Handler is the per-request object a route's factory produces. A Handler
// implements only the optional per-verb interfaces below for the verbs it
// actually supports — the router uses a type assertion per verb instead
// of a base-class default, and lists exactly the asserted verbs in a 405
// response's Allow header when the requested verb isn't among them.
type Handler interface {
	// Before runs before the dispatched verb method, e.g. to inject
	// Server Resources. Returning an error aborts before the verb method
	// runs.
	Before(s *sched.Scheduler, c *co.Ctx, req *Request, res *Response) error
	// After runs after the dispatched verb method returns without error.
	// It is skipped when Before or the verb method returns an error, and
	// when the verb is not implemented (405).
	After(s *sched.Scheduler, c *co.Ctx, req *Request, res *Response) error
}

// DeleteMethod, GetMethod, HeadMethod, OptionsMethod, PatchMethod,
// PostMethod, and PutMethod are the optional per-verb interfaces a
// Handler implements for the verbs it supports, in the spirit of
// io.Writer-shaped "ask, don't assume" Go interfaces.
type DeleteMethod interface {
	Delete(s *sched.Scheduler, c *co.Ctx, req *Request, res *Response) error
}
type GetMethod interface {
	Get(s *sched.Scheduler, c *co.Ctx, req *Request, res *Response) error
}
type HeadMethod interface {
	Head(s *sched.Scheduler, c *co.Ctx, req *Request, res *Response) error
}
type OptionsMethod interface {
	Options(s *sched.Scheduler, c *co.Ctx, req *Request, res *Response) error
}
type PatchMethod interface {
	Patch(s *sched.Scheduler, c *co.Ctx, req *Request, res *Response) error
}
type PostMethod interface {
	Post(s *sched.Scheduler, c *co.Ctx, req *Request, res *Response) error
}
type PutMethod interface {
	Put(s *sched.Scheduler, c *co.Ctx, req *Request, res *Response) error
}

// BaseHandler gives every concrete Handler a no-op Before/After by
// embedding. The verb methods stay opt-in via the interfaces above.
type BaseHandler struct{}

func (BaseHandler) Before(*sched.Scheduler, *co.Ctx, *Request, *Response) error { return nil }
func (BaseHandler) After(*sched.Scheduler, *co.Ctx, *Request, *Response) error  { return nil }

// HandlerFactory builds a fresh Handler for each matched request. Route
// returns the path expression this factory was registered under, used
// only for logging.
type HandlerFactory interface {
	Route() string
	NewHandler() Handler
}

// verbOrder is the fixed DELETE/GET/HEAD/OPTIONS/PATCH/POST/PUT dispatch
// order the Allow header and the router's verb switch both follow.
var verbOrder = []string{"DELETE", "GET", "HEAD", "OPTIONS", "PATCH", "POST", "PUT"}

// dispatchVerb invokes h's method for method, if implemented. ok is false
// if h doesn't implement that verb at all (the caller should respond 405).
func dispatchVerb(h Handler, method string, s *sched.Scheduler, c *co.Ctx, req *Request, res *Response) (ok bool, err error) {
	switch method {
	case "DELETE":
		m, ok := h.(DeleteMethod)
		if !ok {
			return false, nil
		}
		return true, m.Delete(s, c, req, res)
	case "GET":
		m, ok := h.(GetMethod)
		if !ok {
			return false, nil
		}
		return true, m.Get(s, c, req, res)
	case "HEAD":
		m, ok := h.(HeadMethod)
		if !ok {
			return false, nil
		}
		return true, m.Head(s, c, req, res)
	case "OPTIONS":
		m, ok := h.(OptionsMethod)
		if !ok {
			return false, nil
		}
		return true, m.Options(s, c, req, res)
	case "PATCH":
		m, ok := h.(PatchMethod)
		if !ok {
			return false, nil
		}
		return true, m.Patch(s, c, req, res)
	case "POST":
		m, ok := h.(PostMethod)
		if !ok {
			return false, nil
		}
		return true, m.Post(s, c, req, res)
	case "PUT":
		m, ok := h.(PutMethod)
		if !ok {
			return false, nil
		}
		return true, m.Put(s, c, req, res)
	default:
		return false, nil
	}
}

// implementedVerbs lists, in dispatch order, the verbs h implements —
// the value reported in a 405 response's Allow header.
func implementedVerbs(h Handler) []string {
	var verbs []string
	if _, ok := h.(DeleteMethod); ok {
		verbs = append(verbs, "DELETE")
	}
	if _, ok := h.(GetMethod); ok {
		verbs = append(verbs, "GET")
	}
	if _, ok := h.(HeadMethod); ok {
		verbs = append(verbs, "HEAD")
	}
	if _, ok := h.(OptionsMethod); ok {
		verbs = append(verbs, "OPTIONS")
	}
	if _, ok := h.(PatchMethod); ok {
		verbs = append(verbs, "PATCH")
	}
	if _, ok := h.(PostMethod); ok {
		verbs = append(verbs, "POST")
	}
	if _, ok := h.(PutMethod); ok {
		verbs = append(verbs, "PUT")
	}
	return verbs
}
