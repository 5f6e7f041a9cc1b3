package peerwire

import (
	"time"
)

// options holds the configuration for a peer connection.
type options struct {
	logger Logger

	bufferSize     int           // size of the outbound message channel
	maxMessageSize int           // maximum size of a single message payload
	idleTimeout    time.Duration // read/write deadline window, 0 disables
}

// Option is a function that configures peer connection options.
type Option func(*options)

// Default configuration values.
const (
	// defaultBufferSize is the default size of the outbound channel buffer.
	defaultBufferSize = 1
	// defaultMaxMessageSize is the default maximum size of a single
	// message payload.
	defaultMaxMessageSize = MaxFrameSize
)

// checkOptions validates and sets default values for connection options.
func checkOptions(opts *options) {
	if opts.bufferSize <= 0 {
		opts.bufferSize = defaultBufferSize
	}

	if opts.maxMessageSize <= 0 || opts.maxMessageSize > MaxFrameSize {
		opts.maxMessageSize = defaultMaxMessageSize
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
}

// BufferSizeOption sets the size of the outbound channel buffer.
// A larger buffer allows more messages to be queued before SendMessage
// reports backpressure.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// MaxMessageSizeOption sets the maximum message payload size. Payloads
// larger than this cannot be sent or received; the hard ceiling is
// MaxFrameSize.
func MaxMessageSizeOption(size int) Option {
	return func(o *options) {
		o.maxMessageSize = size
	}
}

// IdleTimeoutOption sets the idle timeout. When set, each receive and each
// outbound write runs under a deadline of twice this duration. The default
// is zero: a receive blocks indefinitely, as a peer link with no deadline
// of its own requires.
func IdleTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = timeout
	}
}

// LoggerOption sets the logger. If not set, the default slog logger is used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
