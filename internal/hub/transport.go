package hub

// Transport is the opaque handle the hub holds for one connected surface.
// The production implementation wraps a gorilla websocket with buffered
// pumps; tests substitute an in-memory fake.
type Transport interface {
	// Send enqueues an already-marshaled frame. It must not block the
	// caller; a full buffer or closed transport returns an error.
	Send(data []byte) error
	// Ping enqueues a liveness probe.
	Ping() error
	// Close tears the transport down. Safe to call more than once.
	Close() error
	// Open reports whether the transport can still accept frames.
	Open() bool
}
