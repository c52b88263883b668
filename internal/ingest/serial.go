/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	serial.go: serial-attached Beast dongle connection, adapted from clientconnection.go
*/

package ingest

import (
	"io"
	"sync"
	"time"

	"github.com/b3nn0/adsbd/internal/clock"
	"github.com/b3nn0/adsbd/internal/netio"
	serial "github.com/tarm/serial"
)

// SerialConnection is a serial-attached Beast dongle.
//
// Grounded on serialConnection in main/clientconnection.go,
// generalized from a fixed baud/capability
// pair hardcoded per device type to configurable fields.
type SerialConnection struct {
	mu     sync.Mutex
	Device string
	Baud   int
	cap    Capability

	port    *serial.Port
	queue   *netio.MessageQueue
	lastRd  time.Time
	onClose func(Connection)
}

// OpenSerialConnection opens device at baud and wraps it.
func OpenSerialConnection(device string, baud int, capability Capability, clk *clock.Clock, onClose func(Connection)) (*SerialConnection, error) {
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, err
	}
	return &SerialConnection{
		Device:  device,
		Baud:    baud,
		cap:     capability,
		port:    port,
		queue:   netio.New(clk, 1024),
		onClose: onClose,
	}, nil
}

func (c *SerialConnection) Key() string { return c.Device }

func (c *SerialConnection) Queue() *netio.MessageQueue { return c.queue }

func (c *SerialConnection) Writer() io.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

func (c *SerialConnection) IsThrottled() bool { return false }

func (c *SerialConnection) IsSleeping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port == nil
}

func (c *SerialConnection) Capabilities() Capability { return c.cap }

func (c *SerialConnection) DesiredPacketSize() int { return 128 }

func (c *SerialConnection) OnError(err error) {
	c.Close()
}

func (c *SerialConnection) Close() {
	c.mu.Lock()
	port := c.port
	c.port = nil
	c.mu.Unlock()
	if port == nil {
		return
	}
	port.Close()
	c.queue.Close()
	if c.onClose != nil {
		c.onClose(c)
	}
}

func (c *SerialConnection) LastRead() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRd
}

func (c *SerialConnection) TouchRead(now time.Time) {
	c.mu.Lock()
	c.lastRd = now
	c.mu.Unlock()
}
