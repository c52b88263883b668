package ingest

import (
	"time"
)

// DrainClient writes every currently-queued, non-expired entry in conn's
// MessageQueue to its Writer, stopping and returning ErrDrainTimeout if
// SendQueueDrainDeadline elapses before the queue empties -- the drain
// deadline enforcement NetWriter.Flush's doc comment refers to.
//
// Grounded on the per-client writer goroutine in clientconnection.go
// (pop-and-write loop draining a MessageQueue to its
// net.Conn), generalized from a fixed-size ring buffer to this package's
// priority queue and from an unbounded blocking write loop to one bounded
// by SendQueueDrainDeadline so a single stalled peer cannot hold up the
// flush indefinitely.
func DrainClient(conn Connection, now time.Time) error {
	deadline := now.Add(SendQueueDrainDeadline)
	w := conn.Writer()
	q := conn.Queue()

	for {
		data, _ := q.PopFirst()
		if data == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrDrainTimeout
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
}
