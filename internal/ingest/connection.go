package ingest

import (
	"errors"
	"io"
	"time"

	"github.com/b3nn0/adsbd/internal/netio"
)

// Sentinel errors for the taxonomy describes.
var (
	// ErrGarbage is returned by a framer when persistent unframeable
	// bytes exceed MaxGarbageBytes; the caller drops the client.
	ErrGarbage = errors.New("ingest: persistent garbage, dropping client")
	// ErrIncompleteFrame signals the scanner consumed all available
	// bytes without completing a frame; not an error condition, just
	// "come back with more data".
	ErrIncompleteFrame = errors.New("ingest: incomplete frame")
	// ErrQueueOverflow is returned when a client's send queue would
	// exceed SendQueueMaxBytes.
	ErrQueueOverflow = errors.New("ingest: send queue overflow")
	// ErrDrainTimeout is returned when a client's send queue could not
	// be drained within SendQueueDrainDeadline.
	ErrDrainTimeout = errors.New("ingest: send queue drain timeout")
)

// Client is the narrow identity message.Client requires, implemented by
// every Connection so a Message can carry a back-pointer to its origin
// without an import cycle between internal/message and internal/ingest.
type Client interface {
	Key() string
}

// Connection is the generalization of clientconnection.go's
// `connection` interface: a transport-agnostic peer this process
// exchanges framed messages with, whether inbound (a listening socket
// accepted a peer) or outbound (a configured connector dialed one).
type Connection interface {
	Client

	// Queue returns the connection's outbound MessageQueue, lazily
	// created the way clientconnection.go's MessageQueue() getters do.
	Queue() *netio.MessageQueue
	// Writer returns the raw io.Writer frames are flushed to.
	Writer() io.Writer
	// IsThrottled reports whether only high-priority traffic should be
	// sent right now (startup grace period).
	IsThrottled() bool
	// IsSleeping reports whether the peer looks unreachable and only a
	// reduced packet rate should be attempted.
	IsSleeping() bool
	// Capabilities reports which service this connection belongs to.
	Capabilities() Capability
	// DesiredPacketSize hints how large an outbound write should be
	// before it is flushed as a discrete packet (relevant for UDP).
	DesiredPacketSize() int
	// OnError is called when a read or write fails; implementations
	// close the connection and its queue.
	OnError(error)
	// Close releases the connection's resources.
	Close()
	// LastRead reports when bytes were last successfully read from this
	// connection. No idle-close check reads it.
	LastRead() time.Time
	// TouchRead stamps LastRead to now.
	TouchRead(now time.Time)
}
