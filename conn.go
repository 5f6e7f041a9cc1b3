package peerwire

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Errors returned by peer connection operations.
var (
	// ErrConnectionClosed is returned when operating on a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrBufferFull is returned when the outbound buffer is full and a
	// message cannot be queued. This is backpressure: the write pump is
	// not draining fast enough. Use SendMessageBlocking to wait for space
	// instead of dropping.
	ErrBufferFull = errors.New("send buffer full")
)

// wireConn is the transport a PeerConn runs over. *net.TCPConn and
// *quic.Stream both satisfy it.
type wireConn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// PeerConn is an established, message-oriented connection to one remote
// peer. It implements both Receiver and Sender: the receive side is pulled
// by the dispatch loop one message at a time, while the send side queues
// payloads to a write pump started by Run.
//
// The receive side belongs to exactly one Listener and must not be pulled
// from more than one goroutine. SendMessage may be called from Handler
// callbacks or anywhere else.
type PeerConn struct {
	raw    wireConn
	reader *bufio.Reader
	remote string
	logger Logger

	opts options

	sendq  chan []byte
	closed atomic.Bool
	cancel context.CancelFunc

	// extra holds transport-specific resources torn down with the
	// connection (e.g. the owning QUIC connection of a stream).
	extra []io.Closer
}

// NewPeerConn wraps an established net.Conn (TCP, Unix socket, or anything
// already authenticated by the surrounding system) as a peer connection.
func NewPeerConn(conn wireConn, opt ...Option) *PeerConn {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	remote := ""
	if nc, ok := conn.(interface{ RemoteAddr() net.Addr }); ok {
		remote = nc.RemoteAddr().String()
	}
	return newPeerConn(conn, remote, opts)
}

// newPeerConn assembles a connection from validated options.
func newPeerConn(raw wireConn, remote string, opts options) *PeerConn {
	return &PeerConn{
		raw:    raw,
		reader: bufio.NewReaderSize(raw, readBufSize(opts.maxMessageSize)),
		remote: remote,
		logger: opts.logger,
		opts:   opts,
		sendq:  make(chan []byte, opts.bufferSize),
	}
}

// readBufSize caps the bufio buffer so small message limits do not shrink
// it below a useful size and large ones do not allocate a megabyte per
// connection up front.
func readBufSize(maxMessageSize int) int {
	const bufCap = 64 << 10
	if maxMessageSize < bufCap {
		return maxMessageSize
	}
	return bufCap
}

// Run starts the connection's write pump and blocks until the context is
// canceled or the pump fails. Canceling the context closes the underlying
// transport, which unblocks any RecvMessage in progress; that surfaces to
// the dispatch loop as a receive failure, which is how external teardown
// reaches the Handler. The connection is closed when Run returns.
//
// Run is only needed when messages are sent. A receive-only peer may skip
// it and let the Listener pull RecvMessage directly.
func (c *PeerConn) Run(ctx context.Context) error {
	c.logger.Info("peer connection up", "remote", c.remote)
	c.logger.Debug("peer connection options", "remote", c.remote,
		"buffer_size", c.opts.bufferSize,
		"max_message_size", c.opts.maxMessageSize,
		"idle_timeout", c.opts.idleTimeout)

	ctx, c.cancel = context.WithCancel(ctx)
	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.writeLoop(child)
	})

	group.Go(func() error {
		<-child.Done()
		// Unblock a pending RecvMessage.
		c.closeConn()
		return child.Err()
	})

	err := group.Wait()
	c.closeConn()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Info("peer connection closed with error", "remote", c.remote, "error", err)
	} else {
		c.logger.Info("peer connection closed", "remote", c.remote)
	}

	return err
}

// RecvMessage implements Receiver. It blocks until a complete message is
// available, the idle deadline (if configured) expires, or the connection
// becomes unusable, then decodes the payload with the given unmarshaler.
// All failures are reported as *RecvError so the caller's HandleErr sees
// one uniform "no usable message" error regardless of origin.
func (c *PeerConn) RecvMessage(un Unmarshaler) (Message, error) {
	if c.closed.Load() {
		return nil, &RecvError{Err: ErrConnectionClosed}
	}

	if c.opts.idleTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.opts.idleTimeout * 2))
	}

	payload, err := readFrame(c.reader, c.opts.maxMessageSize)
	if err != nil {
		return nil, &RecvError{Err: err}
	}

	msg, err := un.Unmarshal(payload)
	if err != nil {
		return nil, &RecvError{Decode: true, Err: err}
	}
	return msg, nil
}

// SendMessage implements Sender. It serializes the message and queues it
// for the write pump without blocking (fire-and-forget).
//
// Returns:
//   - nil: message was successfully queued (not yet sent)
//   - ErrBufferFull: outbound buffer is full, message was NOT queued
//   - ErrConnectionClosed: connection is closed
//   - marshal error: if the message fails to serialize
func (c *PeerConn) SendMessage(msg Message) error {
	payload, err := c.marshalFor(msg)
	if err != nil {
		return err
	}

	select {
	case c.sendq <- payload:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendMessageBlocking serializes the message and queues it for the write
// pump, blocking until there is buffer space or the context is canceled.
func (c *PeerConn) SendMessageBlocking(ctx context.Context, msg Message) error {
	payload, err := c.marshalFor(msg)
	if err != nil {
		return err
	}

	select {
	case c.sendq <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// marshalFor serializes a message and enforces the connection's size limit.
func (c *PeerConn) marshalFor(msg Message) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	payload, err := marshalMessage(msg)
	if err != nil {
		return nil, err
	}
	if len(payload) > c.opts.maxMessageSize {
		return nil, ErrFrameTooLarge
	}
	return payload, nil
}

// Close gracefully closes the connection. Safe to call multiple times.
func (c *PeerConn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	if c.cancel != nil {
		c.cancel()
	}
	err := c.raw.Close()
	for _, closer := range c.extra {
		_ = closer.Close()
	}
	return err
}

// IsClosed returns true if the connection has been closed.
func (c *PeerConn) IsClosed() bool {
	return c.closed.Load()
}

// RemoteAddr returns the remote address the connection was established to,
// for display and logging.
func (c *PeerConn) RemoteAddr() string {
	return c.remote
}

// writeLoop continuously drains the outbound queue to the transport.
// Returns when the context is canceled or a write fails.
func (c *PeerConn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-c.sendq:
			if err := c.write(payload); err != nil {
				c.logger.Debug("write error", "remote", c.remote, "error", err)
				return err
			}
		}
	}
}

// write frames one payload onto the transport under the idle deadline.
func (c *PeerConn) write(payload []byte) error {
	if c.opts.idleTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.opts.idleTimeout * 2))
	}
	return writeFrame(c.raw, payload)
}

// closeConn marks the connection as closed and closes the transport.
func (c *PeerConn) closeConn() {
	c.closed.Store(true)
	c.raw.Close()
	for _, closer := range c.extra {
		_ = closer.Close()
	}
}
