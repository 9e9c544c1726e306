package async

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Result is the outcome of an asynchronous operation: a value or an error, never both.
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Future resolves exactly once to a Result.
type Future[T any] struct {
	done   chan struct{}
	result Result[T]
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(result Result[T]) {
	f.result = result
	close(f.done)
}

// Go runs fn in its own goroutine. A panic in fn resolves the future with an error.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		var result Result[T]
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("async operation panicked: %v", r)
				result = Result[T]{Err: fmt.Errorf("async operation panicked: %v", r)}
			}
			f.resolve(result)
		}()
		value, err := fn(ctx)
		if err != nil {
			result = Result[T]{Err: err}
		} else {
			result = Result[T]{Value: value}
		}
	}()
	return f
}

func Resolved[T any](value T) *Future[T] {
	f := newFuture[T]()
	f.resolve(Result[T]{Value: value})
	return f
}

func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(Result[T]{Err: err})
	return f
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the future is resolved.
func (f *Future[T]) Result() Result[T] {
	<-f.done
	return f.result
}

// Await blocks until the future is resolved or ctx is done. The operation
// itself keeps running when ctx ends first.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result.Value, f.result.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnResolve runs fn with the result in a new goroutine once f is resolved.
func (f *Future[T]) OnResolve(fn func(Result[T])) {
	go func() {
		fn(f.Result())
	}()
}

// Then chains fn after f. An error of f skips fn and is passed on.
func Then[T, U any](ctx context.Context, f *Future[T], fn func(ctx context.Context, value T) (U, error)) *Future[U] {
	return Go(ctx, func(ctx context.Context) (U, error) {
		result := f.Result()
		if result.Err != nil {
			var zero U
			return zero, result.Err
		}
		return fn(ctx, result.Value)
	})
}
