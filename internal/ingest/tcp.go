/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	tcp.go: inbound/outbound TCP connection, adapted from clientconnection.go
*/

package ingest

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/b3nn0/adsbd/internal/clock"
	"github.com/b3nn0/adsbd/internal/netio"
)

// TCPConnection is a single accepted or dialed TCP peer.
//
// Grounded on tcpConnection in main/clientconnection.go;
// DesiredPacketSize's 512-byte hint carries over unchanged, as does the
// nil-Conn-means-closed IsSleeping check.
type TCPConnection struct {
	mu       sync.Mutex
	conn     *net.TCPConn
	key      string
	cap      Capability
	queue    *netio.MessageQueue
	lastRead time.Time
	onClose  func(Connection)
}

// NewTCPConnection wraps an already-accepted or dialed net.TCPConn.
func NewTCPConnection(conn *net.TCPConn, key string, capability Capability, clk *clock.Clock, onClose func(Connection)) *TCPConnection {
	return &TCPConnection{
		conn:    conn,
		key:     key,
		cap:     capability,
		queue:   netio.New(clk, 1024),
		onClose: onClose,
	}
}

func (c *TCPConnection) Key() string { return c.key }

func (c *TCPConnection) Queue() *netio.MessageQueue { return c.queue }

func (c *TCPConnection) Writer() io.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *TCPConnection) IsThrottled() bool { return false }

func (c *TCPConnection) IsSleeping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == nil
}

func (c *TCPConnection) Capabilities() Capability { return c.cap }

func (c *TCPConnection) DesiredPacketSize() int { return 512 }

func (c *TCPConnection) OnError(err error) {
	c.Close()
}

func (c *TCPConnection) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return
	}
	conn.Close()
	c.queue.Close()
	if c.onClose != nil {
		c.onClose(c)
	}
}

func (c *TCPConnection) LastRead() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRead
}

func (c *TCPConnection) TouchRead(now time.Time) {
	c.mu.Lock()
	c.lastRead = now
	c.mu.Unlock()
}
