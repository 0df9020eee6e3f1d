package session

import "context"

// Future is the pending result of an operation submitted to a Manager.
// It resolves exactly once.
type Future[T any] struct {
	done     chan struct{}
	disposed <-chan struct{}
	val      T
	err      error
}

func newFuture[T any](disposed <-chan struct{}) *Future[T] {
	return &Future[T]{
		done:     make(chan struct{}),
		disposed: disposed,
	}
}

// resolve must be called once, by the worker.
func (f *Future[T]) resolve(v T, err error) {
	f.val = v
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available, the manager is closed, or
// ctx is done. Giving up through ctx only stops delivery; the operation
// itself keeps running on the worker.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}

	var zero T
	select {
	case <-f.done:
		return f.val, f.err
	case <-f.disposed:
		select {
		case <-f.done:
			return f.val, f.err
		default:
		}
		return zero, ErrSessionDisposed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
