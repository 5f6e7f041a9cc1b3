package peerwire

import (
	"errors"
)

// Errors returned when constructing a Listener.
var (
	// ErrInvalidReceiver is returned when no receiver is provided.
	ErrInvalidReceiver = errors.New("invalid receiver")
	// ErrInvalidHandler is returned when no handler is provided.
	ErrInvalidHandler = errors.New("invalid handler")
	// ErrInvalidUnmarshaler is returned when no unmarshaler is provided.
	ErrInvalidUnmarshaler = errors.New("invalid unmarshaler")
)

// Listener is the per-connection dispatch loop. It owns exactly one
// Receiver, one Handler, and one Unmarshaler bound to one message schema,
// and repeatedly pulls, decodes, and dispatches messages until a fatal
// error terminates it.
//
// A Listener is single-threaded by contract: one instance must not be run
// from more than one goroutine, and its Receiver and Handler must not be
// shared with another instance. Nothing is locked because nothing is shared.
type Listener struct {
	receiver Receiver
	handler  Handler
	un       Unmarshaler
	logger   Logger
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// ListenerLoggerOption sets the logger for the dispatch loop.
// If not set, the default slog logger is used.
func ListenerLoggerOption(logger Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a dispatch loop bound to the given receiver, handler,
// and message unmarshaler. All three are required.
func NewListener(receiver Receiver, handler Handler, un Unmarshaler, opts ...ListenerOption) (*Listener, error) {
	if receiver == nil {
		return nil, ErrInvalidReceiver
	}
	if handler == nil {
		return nil, ErrInvalidHandler
	}
	if un == nil {
		return nil, ErrInvalidUnmarshaler
	}

	l := &Listener{
		receiver: receiver,
		handler:  handler,
		un:       un,
		logger:   defaultLogger(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Run executes the dispatch loop. It blocks forever and returns only on
// fatal termination; there is no success-terminal state.
//
// Each iteration blocks on the receiver for the next message, decoding it
// with the bound unmarshaler as it arrives. A receive or decode failure is
// given to HandleErr: a nil return absorbs it and the loop keeps listening,
// a non-nil return terminates the loop with exactly that error. A decoded
// message is given to Handle exactly once, in receipt order; a non-nil
// return from Handle terminates the loop with exactly that error, without
// passing through HandleErr.
//
// Run never retries, suppresses, or rewrites anything on its own; all
// recovery policy lives in the Handler. Cancellation, if needed, is layered
// on by the Receiver (for PeerConn, canceling the context given to Run
// closes the connection, which surfaces here as a receive failure).
func (l *Listener) Run() error {
	l.logger.Debug("entering peer message loop")
	for {
		msg, err := l.receiver.RecvMessage(l.un)
		if err != nil {
			l.logger.Debug("no usable message", "error", err)
			if err := l.handler.HandleErr(err); err != nil {
				l.logger.Debug("handler escalated failure", "error", err)
				return err
			}
			continue
		}

		l.logger.Debug("dispatching message", "type", msg.MsgType())
		if err := l.handler.Handle(msg); err != nil {
			l.logger.Debug("message handling failed", "type", msg.MsgType(), "error", err)
			return err
		}
	}
}
