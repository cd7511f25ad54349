package co

// All awaits every task in tasks and returns their values in order. The
// first error encountered (in task order, after all have settled) is
// returned. Go has no variadic generics, so All requires every input to
// share type T; heterogeneous pairs use All2 below, handler-hook lists
// use AllVoid.
func All[T any](c *Ctx, tasks []*Task[T]) ([]T, error) {
	for _, t := range tasks {
		resumeUntilDone(c, t)
	}
	values := make([]T, len(tasks))
	var firstErr error
	for i, t := range tasks {
		v, err := t.Get()
		values[i] = v
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return values, firstErr
}

// All2 awaits two tasks of possibly different result types and returns
// both values, propagating the first error (a's, if both fail).
func All2[A, B any](c *Ctx, ta *Task[A], tb *Task[B]) (A, B, error) {
	resumeUntilDone(c, ta)
	resumeUntilDone(c, tb)
	av, aerr := ta.Get()
	bv, berr := tb.Get()
	if aerr != nil {
		return av, bv, aerr
	}
	return av, bv, berr
}

// AllVoid awaits every task in tasks, propagating the first error. This
// is the combinator the HTTP router uses to run a handler's pre_method /
// post_method hook list to completion.
func AllVoid(c *Ctx, tasks []*Task[struct{}]) error {
	_, err := All(c, tasks)
	return err
}

// resumeUntilDone drives t to completion by awaiting a Future wired to
// its own completion — this lets All/All2 wait on tasks owned by the
// same scheduler as the calling task without busy-polling Resume, which
// only the scheduler itself is allowed to call.
func resumeUntilDone[T any](c *Ctx, t *Task[T]) {
	p, f := NewPromise[struct{}]()
	t.OnDone(func() { p.SetValue(struct{}{}) })
	Await(c, f)
}
