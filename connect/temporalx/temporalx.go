// Package temporalx provides Temporal connectivity built on loom
// endpoints: Dial resolves a frontend from an endpoint's attributes, and
// Launcher starts durable workflows on behalf of request handlers.
//
// In tests, construct from a resolved environment endpoint:
//
//	c, err := temporalx.Dial(env.Endpoint("temporal"))
//	defer c.Close()
//
// In service code, construct from parsed wiring:
//
//	w, _ := connect.ParseWiring(ctx)
//	c, err := temporalx.Dial(w.Egress("temporal"))
package temporalx

import (
	"context"
	"errors"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/matgreaves/loom/connect"
	"github.com/matgreaves/loom/loomerr"
)

// Addr extracts the TEMPORAL_ADDRESS attribute from the endpoint.
func Addr(ep connect.Endpoint) string {
	v, _ := connect.TemporalAddress.Get(ep)
	return v
}

// Namespace extracts the TEMPORAL_NAMESPACE attribute from the endpoint.
func Namespace(ep connect.Endpoint) string {
	v, _ := connect.TemporalNamespace.Get(ep)
	return v
}

// Dial creates a Temporal client from a loom endpoint, reading
// TEMPORAL_ADDRESS and TEMPORAL_NAMESPACE from the endpoint attributes.
// An unreachable frontend surfaces as Unavailable, so a handler chaining
// through a Launcher answers 503 rather than leaking a bare SDK error.
// An optional client.Options can be provided to override defaults such
// as Logger or Identity; HostPort and Namespace are always set from the
// endpoint.
func Dial(ep connect.Endpoint, opts ...client.Options) (client.Client, error) {
	var o client.Options
	if len(opts) > 0 {
		o = opts[0]
	}
	o.HostPort = Addr(ep)
	o.Namespace = Namespace(ep)
	c, err := client.Dial(o)
	if err != nil {
		return nil, loomerr.Wrap(loomerr.Unavailable, "dial temporal", err)
	}
	return c, nil
}

// WorkflowStarter is the slice of client.Client that Launcher depends on,
// narrowed so Launcher can be driven by a fake in tests without a live
// Temporal frontend.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow any, args ...any) (client.WorkflowRun, error)
}

// Launcher starts durable workflows on behalf of request handlers: the
// handler hands the work off and answers immediately, and the workflow's
// own history — not the connection — carries it to completion.
//
// Errors are translated into the canonical taxonomy at the connector
// boundary: starting an already-running workflow ID again becomes
// AlreadyExists (409), and any other start failure becomes Unavailable
// (503), since an unreachable frontend is a transient backend failure
// rather than a bug in the caller.
type Launcher struct {
	starter   WorkflowStarter
	taskQueue string
}

// NewLauncher wraps starter, typically a client.Client returned by Dial.
// Workflows are started on taskQueue.
func NewLauncher(starter WorkflowStarter, taskQueue string) *Launcher {
	return &Launcher{starter: starter, taskQueue: taskQueue}
}

// Start begins the named workflow with args, keyed by workflowID, and
// returns the run ID without waiting for the workflow to finish.
func (l *Launcher) Start(ctx context.Context, workflowID, workflow string, args ...any) (string, error) {
	run, err := l.starter.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: l.taskQueue,

		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflow, args...)
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	switch {
	case err == nil:
		return run.GetRunID(), nil
	case errors.As(err, &already):
		return "", loomerr.New(loomerr.AlreadyExists, "workflow %q already started", workflowID)
	default:
		return "", loomerr.Wrap(loomerr.Unavailable, "start workflow "+workflow, err)
	}
}
