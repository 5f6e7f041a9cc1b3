package peerwire

import (
	"context"
	"errors"
	"net"
	"testing"
)

func testNodeAddr(t *testing.T) NodeAddr {
	t.Helper()
	return NodeAddr{
		ID:   DeriveNodeID([]byte("test peer public key")),
		Host: "203.0.113.7",
		Port: 9735,
	}
}

func TestEndpoint_ListenRendering(t *testing.T) {
	ep := ListenOn(&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9735})

	want := "--listen=127.0.0.1:9735"
	if got := ep.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if !ep.IsListen() || ep.IsConnect() {
		t.Error("listen endpoint reports wrong variant")
	}
	if _, ok := ep.Remote(); ok {
		t.Error("listen endpoint must not expose a remote")
	}
	if addr, ok := ep.ListenAddr(); !ok || addr.Port != 9735 {
		t.Errorf("ListenAddr returned %v, %v", addr, ok)
	}
}

func TestEndpoint_ConnectRendering(t *testing.T) {
	remote := testNodeAddr(t)
	ep := ConnectTo(remote)

	want := "--connect=" + remote.ID.String() + "@203.0.113.7:9735"
	if got := ep.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if !ep.IsConnect() || ep.IsListen() {
		t.Error("connect endpoint reports wrong variant")
	}
	if _, ok := ep.ListenAddr(); ok {
		t.Error("connect endpoint must not expose a listen address")
	}
	if got, ok := ep.Remote(); !ok || got != remote {
		t.Errorf("Remote returned %v, %v", got, ok)
	}
}

func TestEndpoint_RenderingsDistinct(t *testing.T) {
	a := ListenOn(&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9735})
	b := ListenOn(&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9736})
	c := ConnectTo(testNodeAddr(t))

	seen := map[string]bool{}
	for _, ep := range []Endpoint{a, b, c} {
		s := ep.String()
		if seen[s] {
			t.Errorf("duplicate rendering %q", s)
		}
		seen[s] = true
	}
}

func TestEndpoint_SetRoundTrip(t *testing.T) {
	for _, original := range []Endpoint{
		ListenOn(&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9735}),
		ConnectTo(testNodeAddr(t)),
	} {
		var parsed Endpoint
		if err := parsed.Set(original.String()); err != nil {
			t.Fatalf("Set(%q) failed: %v", original.String(), err)
		}
		if parsed.String() != original.String() {
			t.Errorf("round trip changed rendering: got %q, want %q",
				parsed.String(), original.String())
		}
	}
}

func TestEndpoint_SetWithoutDashes(t *testing.T) {
	var ep Endpoint
	if err := ep.Set("listen=127.0.0.1:8080"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !ep.IsListen() {
		t.Error("expected listen variant")
	}
}

func TestEndpoint_SetInvalid(t *testing.T) {
	cases := []string{
		"",
		"--listen",
		"--serve=127.0.0.1:8080",
		"--connect=not-a-node-address",
		"--listen=:::bad",
	}
	for _, value := range cases {
		var ep Endpoint
		if err := ep.Set(value); err == nil {
			t.Errorf("Set(%q) should have failed", value)
		}
	}
}

func TestEndpoint_ZeroValue(t *testing.T) {
	var ep Endpoint
	if ep.String() != "" {
		t.Errorf("zero endpoint renders %q", ep.String())
	}
	if ep.IsListen() || ep.IsConnect() {
		t.Error("zero endpoint reports an active variant")
	}
	if ep.Type() != "endpoint" {
		t.Errorf("Type() = %q", ep.Type())
	}
}

func TestDial_InvalidEndpoint(t *testing.T) {
	_, err := Dial(context.Background(), Endpoint{})
	if !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("expected ErrInvalidEndpoint, got %v", err)
	}
}
