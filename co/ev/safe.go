package ev

import "fmt"

// callSafely invokes cb, converting a panic into an error rather than
// letting it unwind out of wait() before the remaining ready events of the
// same batch have been dispatched. This is how a
// callback "exception" is made to propagate out of the enclosing wait()
// as an Internal error per the event system's error-handling contract.
func callSafely(cb Callback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in event callback: %v", r)
		}
	}()
	cb()
	return nil
}
