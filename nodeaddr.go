package peerwire

import (
	"encoding/hex"
	"net"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// NodeID identifies a remote peer: the SHA3-256 digest of its public key.
type NodeID [32]byte

// DeriveNodeID computes a peer's identity from its raw public key bytes.
func DeriveNodeID(pubKey []byte) NodeID {
	return sha3.Sum256(pubKey)
}

// String renders the identity as lowercase hex.
func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// ParseNodeID parses the hex rendering produced by String.
func ParseNodeID(s string) (NodeID, error) {
	var id NodeID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, pkgerrors.Wrap(err, "node id")
	}
	if len(raw) != len(id) {
		return id, pkgerrors.Errorf("node id must be %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// NodeAddr names a remote peer: its identity plus the host and port to
// reach it on. The host may be an IPv4 or IPv6 address, a DNS name, or an
// onion host, which passes through unresolved for a Tor proxy to handle.
type NodeAddr struct {
	ID   NodeID
	Host string
	Port uint16
}

// String renders the address as "<id-hex>@<host>:<port>".
func (a NodeAddr) String() string {
	return a.ID.String() + "@" + a.DialString()
}

// DialString returns the "host:port" part, suitable for net.Dial.
func (a NodeAddr) DialString() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// IsOnion reports whether the host is an onion hidden-service name.
func (a NodeAddr) IsOnion() bool {
	return strings.HasSuffix(a.Host, ".onion")
}

// ParseNodeAddr parses the "<id-hex>@<host>:<port>" form produced by
// NodeAddr.String.
func ParseNodeAddr(s string) (NodeAddr, error) {
	idPart, hostPart, ok := strings.Cut(s, "@")
	if !ok {
		return NodeAddr{}, pkgerrors.Errorf("node address %q: missing '@'", s)
	}
	id, err := ParseNodeID(idPart)
	if err != nil {
		return NodeAddr{}, err
	}
	host, portStr, err := net.SplitHostPort(hostPart)
	if err != nil {
		return NodeAddr{}, pkgerrors.Wrapf(err, "node address %q", s)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return NodeAddr{}, pkgerrors.Wrapf(err, "node address %q: port", s)
	}
	return NodeAddr{ID: id, Host: host, Port: uint16(port)}, nil
}
