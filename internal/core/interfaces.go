package core

// Frame is one outbound wire message, already encoded.
type Frame []byte

// SignalConnection abstracts a client's messaging transport.
// Owned by the adapter; the adapter must Close() it.
// TrySend must never block: a recipient that cannot keep up loses the
// frame instead of stalling the relay.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
