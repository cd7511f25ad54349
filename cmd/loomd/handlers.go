package main

import (
	"context"
	"strconv"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
	"github.com/matgreaves/loom/connect/pgx"
	"github.com/matgreaves/loom/connect/s3x"
	"github.com/matgreaves/loom/connect/sqsx"
	"github.com/matgreaves/loom/connect/temporalx"
	"github.com/matgreaves/loom/httpcore"
	"github.com/matgreaves/loom/internal/tracing"
	"github.com/matgreaves/loom/loomerr"
)

// echoFactory/echoHandler: GET /echo copies the request's raw path into
// the body, POST /echo copies the body and its declared Content-Length
// back.
type echoFactory struct{}

func (echoFactory) Route() string                { return "/echo" }
func (echoFactory) NewHandler() httpcore.Handler { return echoHandler{} }

type echoHandler struct{ httpcore.BaseHandler }

func (echoHandler) Get(_ *sched.Scheduler, _ *co.Ctx, req *httpcore.Request, res *httpcore.Response) error {
	res.SetBody([]byte(req.RawPath()))
	return nil
}

func (echoHandler) Post(_ *sched.Scheduler, _ *co.Ctx, req *httpcore.Request, res *httpcore.Response) error {
	res.SetBody(req.Body())
	if v, ok := req.Header("Content-Length"); ok {
		res.SetHeader("Content-Length", v)
	}
	return nil
}

// authorFactory/authorHandler exercises the `:[uint]id` route matcher:
// GET /authors/42 captures route param id == "42"; a non-numeric segment
// doesn't match this route at all, so the trie reports 404 before the
// handler ever runs.
//
// When a Postgres resource is configured, the handler resolves the id
// against the real authors table via *pgx.AuthorStore (a missing row
// surfaces as the same 404 an unmatched route would produce); otherwise
// it falls back to echoing the id back in the body, same as before.
type authorFactory struct{}

func (authorFactory) Route() string                { return "/authors/:[uint]id" }
func (authorFactory) NewHandler() httpcore.Handler { return &authorHandler{} }

type authorHandler struct {
	httpcore.BaseHandler
	store *pgx.AuthorStore
}

func (h *authorHandler) Before(_ *sched.Scheduler, _ *co.Ctx, req *httpcore.Request, _ *httpcore.Response) error {
	if req.Resources() == nil {
		return nil // router built without a ResourceRegistry; Get falls back below
	}
	store, err := httpcore.Resource[*pgx.AuthorStore](req.Resources())
	if err != nil {
		if loomerr.KindOf(err) == loomerr.NotFound {
			return nil // no Postgres resource registered; Get falls back below
		}
		return err
	}
	h.store = store
	return nil
}

func (h *authorHandler) Get(_ *sched.Scheduler, _ *co.Ctx, req *httpcore.Request, res *httpcore.Response) error {
	id, _ := req.RouteParam("id")
	res.SetHeader("Content-Type", "text/plain")

	if h.store == nil {
		res.SetBody([]byte("author " + id))
		return nil
	}

	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return loomerr.New(loomerr.InvalidArgument, "author id %q is not a valid integer", id)
	}
	name, err := h.store.Name(context.Background(), n)
	if err != nil {
		return err
	}
	res.SetBody([]byte(name))
	return nil
}

// artifactFactory/artifactHandler demonstrates Server Resource injection
// over the S3-backed connector: the handler declares its dependency on
// *s3x.Store by calling httpcore.Resource inside Before, so the store is
// constructed before the verb method runs. Traced with the optional
// tracing.Provider so the span covers exactly one handler invocation.
type artifactFactory struct{ tracer *tracing.Provider }

func (f artifactFactory) Route() string { return "/artifacts/:key" }
func (f artifactFactory) NewHandler() httpcore.Handler {
	return &artifactHandler{tracer: f.tracer}
}

type artifactHandler struct {
	httpcore.BaseHandler
	tracer *tracing.Provider
	store  *s3x.Store
}

func (h *artifactHandler) Before(_ *sched.Scheduler, _ *co.Ctx, req *httpcore.Request, _ *httpcore.Response) error {
	store, err := httpcore.Resource[*s3x.Store](req.Resources())
	if err != nil {
		return err
	}
	h.store = store
	return nil
}

func (h *artifactHandler) Get(_ *sched.Scheduler, _ *co.Ctx, req *httpcore.Request, res *httpcore.Response) error {
	key, _ := req.RouteParam("key")
	ctx, span := h.tracer.StartHandlerSpan(context.Background(), "GET", "/artifacts/:key")
	defer span.End()
	body, err := h.store.Get(ctx, key)
	if err != nil {
		return loomerr.Wrap(loomerr.NotFound, "artifact "+key, err)
	}
	res.SetBody(body)
	return nil
}

func (h *artifactHandler) Put(_ *sched.Scheduler, _ *co.Ctx, req *httpcore.Request, res *httpcore.Response) error {
	key, _ := req.RouteParam("key")
	ctx, span := h.tracer.StartHandlerSpan(context.Background(), "PUT", "/artifacts/:key")
	defer span.End()
	if err := h.store.Put(ctx, key, req.Body()); err != nil {
		return loomerr.Wrap(loomerr.Internal, "artifact "+key, err)
	}
	res.SetStatus(httpcore.StatusNoContent)
	return nil
}

// workFactory/workHandler fans long-running work out over SQS instead of
// blocking the connection: POST /work enqueues the body and answers 202
// Accepted with the message ID, never waiting on whatever eventually
// dequeues it.
type workFactory struct{ tracer *tracing.Provider }

func (f workFactory) Route() string { return "/work" }
func (f workFactory) NewHandler() httpcore.Handler {
	return &workHandler{tracer: f.tracer}
}

type workHandler struct {
	httpcore.BaseHandler
	tracer *tracing.Provider
	queue  *sqsx.Queue
}

func (h *workHandler) Before(_ *sched.Scheduler, _ *co.Ctx, req *httpcore.Request, _ *httpcore.Response) error {
	q, err := httpcore.Resource[*sqsx.Queue](req.Resources())
	if err != nil {
		return err
	}
	h.queue = q
	return nil
}

func (h *workHandler) Post(_ *sched.Scheduler, _ *co.Ctx, req *httpcore.Request, res *httpcore.Response) error {
	ctx, span := h.tracer.StartHandlerSpan(context.Background(), "POST", "/work")
	defer span.End()
	id, err := h.queue.Send(ctx, string(req.Body()))
	if err != nil {
		return loomerr.Wrap(loomerr.Unavailable, "enqueue work", err)
	}
	res.SetStatus(httpcore.StatusAccepted)
	res.SetHeader("Content-Type", "text/plain")
	res.SetBody([]byte(id))
	return nil
}

// workflowFactory/workflowHandler hands a request off to a durable
// workflow: POST /workflows/:name starts the named workflow with the
// request body as its argument and answers 202 Accepted with the run ID.
// The workflow ID is the route's name segment, so re-posting the same
// name while a run is still open reports 409 through the Launcher's
// AlreadyExists translation.
type workflowFactory struct{ tracer *tracing.Provider }

func (f workflowFactory) Route() string { return "/workflows/:name" }
func (f workflowFactory) NewHandler() httpcore.Handler {
	return &workflowHandler{tracer: f.tracer}
}

type workflowHandler struct {
	httpcore.BaseHandler
	tracer   *tracing.Provider
	launcher *temporalx.Launcher
}

func (h *workflowHandler) Before(_ *sched.Scheduler, _ *co.Ctx, req *httpcore.Request, _ *httpcore.Response) error {
	launcher, err := httpcore.Resource[*temporalx.Launcher](req.Resources())
	if err != nil {
		return err
	}
	h.launcher = launcher
	return nil
}

func (h *workflowHandler) Post(_ *sched.Scheduler, _ *co.Ctx, req *httpcore.Request, res *httpcore.Response) error {
	name, _ := req.RouteParam("name")
	ctx, span := h.tracer.StartHandlerSpan(context.Background(), "POST", "/workflows/:name")
	defer span.End()
	runID, err := h.launcher.Start(ctx, name, name, string(req.Body()))
	if err != nil {
		return err
	}
	res.SetStatus(httpcore.StatusAccepted)
	res.SetHeader("Content-Type", "text/plain")
	res.SetBody([]byte(runID))
	return nil
}
