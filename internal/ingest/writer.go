/*
	Copyright (c) 2021 Adrian Batzill
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	writer.go: shared outbound buffer fan-out, adapted from messagequeue.go
*/

package ingest

import (
	"sync"
	"time"
)

// NetWriter accumulates one service's outbound bytes and fans them out
// to every registered Connection on each Flush; FlushThreshold is the
// back-pressure point Reserve and ShouldFlush report ("Outbound writers").
//
// Grounded on original_source/net_io.c's prepare_write/complete_write
// pair (modes_message_to_beast et al. reserve space in a shared output
// buffer rather than each client formatting its own copy), paired with
// the per-client MessageQueue (main/messagequeue.go) as the per-client
// drop/backpressure boundary the original implements with a raw
// fixed-size ring buffer per client.
type NetWriter struct {
	mu             sync.Mutex
	buf            []byte
	FlushThreshold int

	clients map[string]Connection
}

// NewNetWriter creates a writer whose Reserve refuses more bytes, and
// whose ShouldFlush reports true, once its buffer reaches flushThreshold
// bytes.
func NewNetWriter(flushThreshold int) *NetWriter {
	return &NetWriter{FlushThreshold: flushThreshold, clients: make(map[string]Connection)}
}

// AddClient registers conn to receive every future flush.
func (w *NetWriter) AddClient(conn Connection) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clients[conn.Key()] = conn
}

// RemoveClient unregisters conn (called from Connection.Close via the
// onClose hook each Connection implementation carries).
func (w *NetWriter) RemoveClient(conn Connection) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.clients, conn.Key())
}

// Clients returns a snapshot of every currently registered connection,
// for callers (e.g. the ICMP sleep monitor) that need to iterate the
// client table without holding NetWriter's lock.
func (w *NetWriter) Clients() []Connection {
	w.mu.Lock()
	defer w.mu.Unlock()
	clients := make([]Connection, 0, len(w.clients))
	for _, c := range w.clients {
		clients = append(clients, c)
	}
	return clients
}

// Reserve returns a fresh slice of length n appended to the pending
// buffer; the caller fills it and then calls nothing further (unlike
// the original's raw-pointer prepare_write/complete_write pair, Go's
// append already commits the reservation, so there is no separate
// "complete" step -- Reserve both prepares and commits in one call).
// ok is false if the writer is already over FlushThreshold and the
// caller should Flush before reserving more (back-pressure).
func (w *NetWriter) Reserve(n int) (slice []byte, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) >= w.FlushThreshold {
		return nil, false
	}
	start := len(w.buf)
	w.buf = append(w.buf, make([]byte, n)...)
	return w.buf[start : start+n], true
}

// ShouldFlush reports whether the pending buffer has crossed
// FlushThreshold.
func (w *NetWriter) ShouldFlush() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buf) >= w.FlushThreshold
}

// Flush fans the pending buffer out to every registered client's send
// queue (priority 0, the highest, since this is live traffic rather
// than a retained snapshot) and resets the buffer. Sleeping clients are
// skipped; a client whose queue already holds more than
// SendQueueMaxBytes gets OnError(ErrQueueOverflow) instead of the data;
// throttled clients receive it at priority 10. The drain deadline is
// enforced separately, in DrainClient.
func (w *NetWriter) Flush(now time.Time, maxAge time.Duration) {
	w.mu.Lock()
	data := w.buf
	w.buf = nil
	clients := make([]Connection, 0, len(w.clients))
	for _, c := range w.clients {
		clients = append(clients, c)
	}
	w.mu.Unlock()

	if len(data) == 0 {
		return
	}
	for _, c := range clients {
		if c.IsSleeping() {
			continue
		}
		if c.Queue().ByteLen() > SendQueueMaxBytes {
			c.OnError(ErrQueueOverflow)
			continue
		}
		priority := int32(0)
		if c.IsThrottled() {
			priority = 10
		}
		c.Queue().Put(priority, maxAge, data)
	}
}

// SendHeartbeats pushes a service-appropriate heartbeat frame to every
// registered, non-sleeping client (Beast type-'1' zero frame, raw
// `*0000;\n`, SBS `\r\n`). It does not check how recently a client was
// sent other traffic: every call queues a heartbeat for each of them.
func (w *NetWriter) SendHeartbeats(now time.Time, frame []byte) {
	w.mu.Lock()
	clients := make([]Connection, 0, len(w.clients))
	for _, c := range w.clients {
		clients = append(clients, c)
	}
	w.mu.Unlock()

	for _, c := range clients {
		if c.IsSleeping() {
			continue
		}
		c.Queue().Put(0, 10*time.Second, frame)
	}
}
