package peerwire

// Handler is the application policy consuming decoded peer messages and
// loop failures. Both methods run inline on the loop's single thread of
// control, so they must return promptly; any state a Handler carries is its
// own and is never touched concurrently by the loop.
type Handler interface {
	// Handle processes one successfully decoded message. It is invoked
	// exactly once per message, in receipt order. A non-nil return is an
	// application-level fault: it terminates the loop immediately and
	// becomes Run's result.
	Handle(msg Message) error

	// HandleErr is invoked exactly once whenever receiving or decoding
	// the next message fails; the argument is typically a *RecvError.
	// Returning nil marks the failure recoverable and the loop keeps
	// listening. Returning an error terminates the loop with that error.
	HandleErr(err error) error
}

// Receiver provides the blocking "next message" primitive over an
// established, already-authenticated connection. RecvMessage must block
// until a complete message is available or the connection is unusable, and
// must never return a partially decoded message. PeerConn is the in-package
// implementation.
type Receiver interface {
	RecvMessage(un Unmarshaler) (Message, error)
}

// Sender sends messages to the remote peer. The loop never sends on its
// own; Sender exists for Handler implementations that reply on the same
// connection.
type Sender interface {
	SendMessage(msg Message) error
}
