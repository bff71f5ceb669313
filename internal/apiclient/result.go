package apiclient

import "errors"

// ErrUnknownFailure stands in when a failure is reported without an error.
var ErrUnknownFailure = errors.New("unknown failure")

// Result carries exactly one of a value or an error. Service clients return it
// so expected failures are data rather than control flow.
type Result[T any] struct {
	data T
	err  error
}

// OK wraps a successful value.
func OK[T any](data T) Result[T] {
	return Result[T]{data: data}
}

// Fail wraps a failure. A nil err is replaced with ErrUnknownFailure so the
// result is never empty.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = ErrUnknownFailure
	}
	return Result[T]{err: err}
}

// OK reports whether the result holds a value.
func (r Result[T]) OK() bool {
	return r.err == nil
}

// Data returns the value and true on success, or the zero value and false.
func (r Result[T]) Data() (T, bool) {
	if r.err != nil {
		var zero T
		return zero, false
	}
	return r.data, true
}

// Err returns the failure, or nil on success.
func (r Result[T]) Err() error {
	return r.err
}

// Get unpacks the result into Go's usual value/error pair.
func (r Result[T]) Get() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.data, nil
}

// Map transforms a successful value, passing failures through untouched.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.err != nil {
		return Fail[U](r.err)
	}
	return OK(fn(r.data))
}
