package peerwire

import (
	"context"
	"net"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Dial establishes the single peer connection an Endpoint describes: a
// listen endpoint binds its socket address and accepts exactly one inbound
// connection, a connect endpoint dials the remote peer. There is no
// connection pool and no reconnect policy; run one Dial per peer link and
// let the surrounding system decide what to do when the loop terminates.
func Dial(ctx context.Context, ep Endpoint, opt ...Option) (*PeerConn, error) {
	switch {
	case ep.IsListen():
		l, err := ListenEndpoint(ep)
		if err != nil {
			return nil, err
		}
		defer l.Close()
		return l.Accept(ctx, opt...)
	case ep.IsConnect():
		return dialRemote(ctx, ep, opt...)
	default:
		return nil, ErrInvalidEndpoint
	}
}

// EndpointListener is a bound listen endpoint awaiting its inbound peer.
// Splitting bind from accept lets callers learn the actual bound address
// (e.g. when listening on port 0) before the peer connects.
type EndpointListener struct {
	listener *net.TCPListener
	logger   Logger
}

// ListenEndpoint binds the socket address of a listen endpoint.
func ListenEndpoint(ep Endpoint, opt ...Option) (*EndpointListener, error) {
	addr, ok := ep.ListenAddr()
	if !ok {
		return nil, ErrInvalidEndpoint
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	listener, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "listen %s", addr)
	}
	opts.logger.Info("awaiting inbound peer", "addr", listener.Addr())

	return &EndpointListener{listener: listener, logger: opts.logger}, nil
}

// Addr returns the bound local address.
func (l *EndpointListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Accept blocks until one inbound connection arrives, then wraps it as a
// PeerConn. Canceling the context sets a deadline on the listener to
// unblock the pending accept and returns the context's error.
func (l *EndpointListener) Accept(ctx context.Context, opt ...Option) (*PeerConn, error) {
	stop := context.AfterFunc(ctx, func() {
		// Unblock AcceptTCP.
		_ = l.listener.SetDeadline(time.Now())
	})
	defer stop()

	conn, err := l.listener.AcceptTCP()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, pkgerrors.Wrap(err, "accept peer")
	}

	l.logger.Debug("accepted peer connection", "remote_addr", conn.RemoteAddr())
	_ = conn.SetNoDelay(true)
	return NewPeerConn(conn, opt...), nil
}

// Close releases the bound socket. Any blocked Accept returns with an error.
func (l *EndpointListener) Close() error {
	return l.listener.Close()
}

// dialRemote connects to the remote peer of a connect endpoint.
func dialRemote(ctx context.Context, ep Endpoint, opt ...Option) (*PeerConn, error) {
	remote, _ := ep.Remote()
	if remote.IsOnion() {
		// Onion hosts need a Tor SOCKS proxy in front of the dialer;
		// the transport below this package is out of its hands.
		return nil, pkgerrors.Errorf("onion host %s requires a proxy-side dialer", remote.Host)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", remote.DialString())
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "connect %s", remote)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return NewPeerConn(conn, opt...), nil
}
