package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/varens/peerwire"
)

// Wire type tags of the demo protocol.
const (
	msgTypePing uint16 = 18
	msgTypePong uint16 = 19
)

type ping struct {
	seq uint64
}

func (p ping) MsgType() uint16 {
	return msgTypePing
}

func (p ping) MarshalBinary() ([]byte, error) {
	return binary.BigEndian.AppendUint64(nil, p.seq), nil
}

type pong struct {
	seq uint64
}

func (p pong) MsgType() uint16 {
	return msgTypePong
}

func (p pong) MarshalBinary() ([]byte, error) {
	return binary.BigEndian.AppendUint64(nil, p.seq), nil
}

func decodeSeq(body []byte) (uint64, error) {
	if len(body) != 8 {
		return 0, fmt.Errorf("want 8 body bytes, got %d", len(body))
	}
	return binary.BigEndian.Uint64(body), nil
}

func newSchema() (*peerwire.Schema, error) {
	schema := peerwire.NewSchema()
	if err := schema.Register(msgTypePing, func(body []byte) (peerwire.Message, error) {
		seq, err := decodeSeq(body)
		return ping{seq: seq}, err
	}); err != nil {
		return nil, err
	}
	if err := schema.Register(msgTypePong, func(body []byte) (peerwire.Message, error) {
		seq, err := decodeSeq(body)
		return pong{seq: seq}, err
	}); err != nil {
		return nil, err
	}
	return schema, nil
}

// pingPong answers every ping with a pong and keeps pinging back with the
// next sequence number. Garbage on the wire is skipped; transport faults
// terminate the loop.
type pingPong struct {
	sender peerwire.Sender
}

func (h *pingPong) Handle(msg peerwire.Message) error {
	switch m := msg.(type) {
	case ping:
		slog.Info("ping", "seq", m.seq)
		return h.sender.SendMessage(pong{seq: m.seq})
	case pong:
		slog.Info("pong", "seq", m.seq)
		time.Sleep(time.Second)
		return h.sender.SendMessage(ping{seq: m.seq + 1})
	default:
		return fmt.Errorf("unhandled message type %#04x", msg.MsgType())
	}
}

func (h *pingPong) HandleErr(err error) error {
	var recvErr *peerwire.RecvError
	if errors.As(err, &recvErr) && recvErr.Decode {
		slog.Warn("skipping undecodable message", "error", err)
		return nil
	}
	return err
}

func main() {
	var ep peerwire.Endpoint

	fs := flag.NewFlagSet("pingpong", flag.ContinueOnError)
	fs.VarP(&ep, "peer", "p", "peer endpoint: listen=<host:port> or connect=<id@host:port>")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if ep.String() == "" {
		fs.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	schema, err := newSchema()
	if err != nil {
		slog.Error("failed to build schema", "error", err)
		os.Exit(1)
	}

	slog.Info("establishing peer link", "endpoint", ep.String())
	conn, err := peerwire.Dial(ctx, ep)
	if err != nil {
		slog.Error("failed to establish peer link", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := conn.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("connection error", "error", err)
		}
	}()

	// The connecting side speaks first.
	if ep.IsConnect() {
		if err := conn.SendMessage(ping{seq: 0}); err != nil {
			slog.Error("failed to send first ping", "error", err)
			os.Exit(1)
		}
	}

	loop, err := peerwire.NewListener(conn, &pingPong{sender: conn}, schema)
	if err != nil {
		slog.Error("failed to create message loop", "error", err)
		os.Exit(1)
	}
	if err := loop.Run(); err != nil && ctx.Err() == nil {
		slog.Error("message loop terminated", "error", err)
		os.Exit(1)
	}
}
