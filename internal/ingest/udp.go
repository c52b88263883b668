/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	udp.go: outbound UDP peer connection, adapted from clientconnection.go
*/

package ingest

import (
	"io"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/b3nn0/adsbd/internal/clock"
	"github.com/b3nn0/adsbd/internal/netio"
)

// UDPConnection is an outbound UDP peer: the socket stays open
// regardless of peer reachability, so throttling/sleep detection (rather
// than connect/disconnect) is how a dead peer's traffic gets reduced.
//
// Grounded on networkConnection in main/clientconnection.go;
// IsThrottled/IsSleeping mirror its ICMP-
// Unreachable-driven heuristics, generalized to take the clock
// explicitly instead of reading the package-level stratuxClock, and
// with NoSleep/debug-mode bypasses replaced by an explicit AlwaysAwake
// flag the caller sets for test/debug builds.
type UDPConnection struct {
	mu sync.Mutex

	conn *net.UDPConn
	key  string
	cap  Capability

	queue *netio.MessageQueue
	clk   *clock.Clock

	lastRead         time.Time
	lastPingResponse time.Time
	lastUnreachable  time.Time

	AlwaysAwake bool // disables sleep-mode gating, for environments that can't receive ICMP
	onClose     func(Connection)
}

// NewUDPConnection wraps a connected *net.UDPConn (the peer address is
// fixed at dial time, as with stratux's per-client UDP sockets).
func NewUDPConnection(conn *net.UDPConn, key string, capability Capability, clk *clock.Clock, onClose func(Connection)) *UDPConnection {
	return &UDPConnection{
		conn:    conn,
		key:     key,
		cap:     capability,
		queue:   netio.New(clk, 1024),
		clk:     clk,
		onClose: onClose,
	}
}

func (c *UDPConnection) Key() string { return c.key }

func (c *UDPConnection) Queue() *netio.MessageQueue { return c.queue }

func (c *UDPConnection) Writer() io.Writer { return c.conn }

// IsThrottled mirrors the 15s start-up grace period after an
// ICMP Unreachable, letting only ~0.1% of packets (plus high-priority
// traffic the caller checks separately) through during that window.
func (c *UDPConnection) IsThrottled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return rand.Intn(1000) != 0 && c.clk.Since(c.lastUnreachable) < 15*time.Second
}

// IsSleeping mirrors stratux's IsSleeping: no ping response in 10s,
// or an ICMP Unreachable within the last 5s, marks the peer asleep.
func (c *UDPConnection) IsSleeping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AlwaysAwake {
		return false
	}
	if c.lastPingResponse.IsZero() || c.clk.Since(c.lastPingResponse) > 10*time.Second {
		return true
	}
	return c.clk.Since(c.lastUnreachable) < 5*time.Second
}

func (c *UDPConnection) Capabilities() Capability { return c.cap }

func (c *UDPConnection) DesiredPacketSize() int { return 1024 }

// OnError is a no-op for UDP: the socket stays open and we just keep
// trying to push data, matching networkConnection's behavior.
func (c *UDPConnection) OnError(err error) {}

func (c *UDPConnection) Close() {}

func (c *UDPConnection) LastRead() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRead
}

func (c *UDPConnection) TouchRead(now time.Time) {
	c.mu.Lock()
	c.lastRead = now
	c.mu.Unlock()
}

// NotePingResponse/NoteUnreachable feed the ICMP-probe results the
// SleepMonitor (golang.org/x/net/icmp) produces.
func (c *UDPConnection) NotePingResponse(now time.Time) {
	c.mu.Lock()
	c.lastPingResponse = now
	c.mu.Unlock()
}

func (c *UDPConnection) NoteUnreachable(now time.Time) {
	c.mu.Lock()
	c.lastUnreachable = now
	c.mu.Unlock()
}
