package peerwire

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"math/big"
	"net"
	"time"

	pkgerrors "github.com/pkg/errors"
	quic "github.com/quic-go/quic-go"
)

// quicALPN is the application protocol token both sides must agree on.
const quicALPN = "peerwire/1"

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// devTLSCert builds the development certificate. The key and subject are
// deterministic, so a certificate issued by one process chains to the root
// pool another process builds, even though each issues its own copy with a
// validity window anchored at its current time. Production deployments
// should replace the TLS material; the peer authentication of this
// package's callers does not rest on it.
func devTLSCert() (tls.Certificate, []byte, error) {
	seed := sha256.Sum256([]byte("peerwire-quic-dev-key"))
	priv := ed25519.NewKeyFromSeed(seed[:])
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(zeroReader{}, &template, &template, priv.Public(), priv)
	if err != nil {
		return tls.Certificate{}, nil, err
	}
	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}
	return cert, der, nil
}

func serverTLSConfig() (*tls.Config, error) {
	cert, _, err := devTLSCert()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{quicALPN},
	}, nil
}

func clientTLSConfig() (*tls.Config, error) {
	_, der, err := devTLSCert()
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	pool.AddCert(cert)
	return &tls.Config{
		RootCAs:    pool,
		NextProtos: []string{quicALPN},
	}, nil
}

// quicConnCloser tears down the owning QUIC connection when the PeerConn
// wrapping its stream is closed.
type quicConnCloser struct {
	conn quic.Connection
}

func (c quicConnCloser) Close() error {
	return c.conn.CloseWithError(0, "")
}

// QUICListener is a bound QUIC endpoint awaiting its inbound peer, the
// QUIC counterpart of EndpointListener.
type QUICListener struct {
	listener *quic.Listener
	logger   Logger
}

// ListenQUIC binds a QUIC listener on the given UDP address.
func ListenQUIC(addr string, opt ...Option) (*QUICListener, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	tlsConf, err := serverTLSConfig()
	if err != nil {
		return nil, err
	}
	listener, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "quic listen %s", addr)
	}
	opts.logger.Info("awaiting inbound peer", "addr", listener.Addr(), "transport", "quic")

	return &QUICListener{listener: listener, logger: opts.logger}, nil
}

// Addr returns the bound local address.
func (l *QUICListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Accept blocks until one inbound connection opens its message stream,
// then wraps that stream as a PeerConn. The stream only becomes visible
// once the dialing side has sent its first message, so the connecting peer
// speaks first on a QUIC link.
func (l *QUICListener) Accept(ctx context.Context, opt ...Option) (*PeerConn, error) {
	conn, err := l.listener.Accept(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "quic accept")
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "")
		return nil, pkgerrors.Wrap(err, "quic accept stream")
	}
	l.logger.Debug("accepted peer stream", "remote_addr", conn.RemoteAddr())

	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	pc := newPeerConn(stream, conn.RemoteAddr().String(), opts)
	pc.extra = append(pc.extra, quicConnCloser{conn: conn})
	return pc, nil
}

// Close releases the bound endpoint. Any blocked Accept returns with an error.
func (l *QUICListener) Close() error {
	return l.listener.Close()
}

// DialQUIC connects to a listening peer over QUIC and opens the message
// stream. The stream is announced to the remote side with the first
// message sent on it.
func DialQUIC(ctx context.Context, addr string, opt ...Option) (*PeerConn, error) {
	tlsConf, err := clientTLSConfig()
	if err != nil {
		return nil, err
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "quic dial %s", addr)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "")
		return nil, pkgerrors.Wrap(err, "quic open stream")
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	pc := newPeerConn(stream, conn.RemoteAddr().String(), opts)
	pc.extra = append(pc.extra, quicConnCloser{conn: conn})
	return pc, nil
}
