package peerwire

import (
	"net"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrInvalidEndpoint is returned when an endpoint has no variant set or
// cannot be parsed from its textual form.
var ErrInvalidEndpoint = pkgerrors.New("invalid endpoint")

type endpointKind uint8

const (
	endpointUnset endpointKind = iota
	endpointListen
	endpointConnect
)

// Endpoint chooses how this side of the peer connection is configured.
// Exactly one variant is active: either listen for an inbound connection on
// a local TCP socket address, or actively connect to a named remote peer.
// An Endpoint is immutable once constructed (Set exists only so the zero
// value doubles as a command-line flag).
type Endpoint struct {
	kind    endpointKind
	listen  *net.TCPAddr
	connect NodeAddr
}

// ListenOn returns an endpoint that listens for an inbound connection on
// the given local socket address, which may be IPv4- or IPv6-based. For Tor
// hidden services, listen on a local TCP port proxied as a hidden service
// by the Tor daemon.
func ListenOn(addr *net.TCPAddr) Endpoint {
	return Endpoint{kind: endpointListen, listen: addr}
}

// ConnectTo returns an endpoint that actively connects to the remote peer
// at the given address, which may resolve to IPv4, IPv6, or an onion host.
func ConnectTo(remote NodeAddr) Endpoint {
	return Endpoint{kind: endpointConnect, connect: remote}
}

// IsListen reports whether the listen variant is active.
func (e Endpoint) IsListen() bool {
	return e.kind == endpointListen
}

// IsConnect reports whether the connect variant is active.
func (e Endpoint) IsConnect() bool {
	return e.kind == endpointConnect
}

// ListenAddr returns the local socket address of a listen endpoint.
// The second return is false for any other variant.
func (e Endpoint) ListenAddr() (*net.TCPAddr, bool) {
	return e.listen, e.kind == endpointListen
}

// Remote returns the remote peer address of a connect endpoint.
// The second return is false for any other variant.
func (e Endpoint) Remote() (NodeAddr, bool) {
	return e.connect, e.kind == endpointConnect
}

// String renders the endpoint in its canonical configuration form,
// "--listen=<addr>" or "--connect=<addr>". The rendering is stable and
// suitable for display or logging by a surrounding CLI; it is not a
// machine-parsed protocol format.
func (e Endpoint) String() string {
	switch e.kind {
	case endpointListen:
		return "--listen=" + e.listen.String()
	case endpointConnect:
		return "--connect=" + e.connect.String()
	default:
		return ""
	}
}

// Set parses the same forms String renders, with or without the leading
// dashes: "listen=<host:port>" or "connect=<id@host:port>". Together with
// String and Type this satisfies the pflag.Value contract, so an Endpoint
// can be registered directly as a command-line flag.
func (e *Endpoint) Set(value string) error {
	name, val, ok := strings.Cut(strings.TrimPrefix(value, "--"), "=")
	if !ok {
		return pkgerrors.Wrapf(ErrInvalidEndpoint, "missing '=' in %q", value)
	}
	switch name {
	case "listen":
		addr, err := net.ResolveTCPAddr("tcp", val)
		if err != nil {
			return pkgerrors.Wrapf(err, "listen address %q", val)
		}
		*e = ListenOn(addr)
	case "connect":
		remote, err := ParseNodeAddr(val)
		if err != nil {
			return pkgerrors.Wrapf(err, "connect address %q", val)
		}
		*e = ConnectTo(remote)
	default:
		return pkgerrors.Wrapf(ErrInvalidEndpoint, "unknown variant %q", name)
	}
	return nil
}

// Type names the flag value type for pflag usage output.
func (e *Endpoint) Type() string {
	return "endpoint"
}
