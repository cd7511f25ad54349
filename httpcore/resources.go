package httpcore

import (
	"reflect"

	"github.com/matgreaves/loom/loomerr"
)

// ResourceRegistry holds the process-wide table of resource factories,
// matching the "Server-resource factory registration" contract: a
// concrete resource type maps to a factory callable that may itself
// depend on other resources. Register at startup, before Run.
type ResourceRegistry struct {
	factories map[reflect.Type]func(*ResourceContext) (any, error)
}

// NewResourceRegistry returns an empty registry.
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{factories: map[reflect.Type]func(*ResourceContext) (any, error){}}
}

// Register associates T with factory. Register[*db.Pool](reg, ...) reads
// naturally at the call site and keeps the registry itself untyped.
func Register[T any](reg *ResourceRegistry, factory func(*ResourceContext) (T, error)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	reg.factories[t] = func(ctx *ResourceContext) (any, error) { return factory(ctx) }
}

// ResourceContext is the per-request Server Resource memo: resources are
// constructed at most once per request, lazily, the first time a handler
// or a dependent resource asks for them.
type ResourceContext struct {
	reg      *ResourceRegistry
	built    map[reflect.Type]any
	building map[reflect.Type]bool
}

// NewResourceContext returns a fresh, empty memo bound to reg, to be
// created once per incoming request.
func NewResourceContext(reg *ResourceRegistry) *ResourceContext {
	return &ResourceContext{
		reg:      reg,
		built:    map[reflect.Type]any{},
		building: map[reflect.Type]bool{},
	}
}

// Resource returns the request-scoped instance of T, building it (and
// transitively, anything it depends on) via the registered factory if
// this is the first request for T this request. A factory that
// transitively depends on its own type is rejected with Internal rather
// than recursing forever.
func Resource[T any](ctx *ResourceContext) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()

	if v, ok := ctx.built[t]; ok {
		return v.(T), nil
	}
	if ctx.building[t] {
		return zero, loomerr.New(loomerr.Internal, "cyclic resource dependency on %s", t)
	}

	factory, ok := ctx.reg.factories[t]
	if !ok {
		return zero, loomerr.New(loomerr.NotFound, "no resource factory registered for %s", t)
	}

	ctx.building[t] = true
	v, err := factory(ctx)
	delete(ctx.building, t)
	if err != nil {
		return zero, err
	}

	ctx.built[t] = v
	return v.(T), nil
}
