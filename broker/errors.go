package broker

import "errors"

var (
	// ErrListenerClosed is returned from ListenAndServe once Shutdown has
	// closed the listener.
	ErrListenerClosed = errors.New("listener closed")

	// ErrGracefulShutdownTimeout indicates Shutdown's deadline elapsed
	// before every connection drained on its own.
	ErrGracefulShutdownTimeout = errors.New("graceful shutdown timeout")
)
