/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	icmp.go: peer-liveness ICMP probe, adapted from clientconnection.go and network.go
*/

package ingest

import (
	"context"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/b3nn0/adsbd/internal/clock"
)

// pingTarget is the subset of UDPConnection's API the sleep monitor
// needs; outbound connections that don't track ICMP reachability (TCP,
// serial) simply don't implement it and are skipped.
type pingTarget interface {
	NotePingResponse(now time.Time)
	NoteUnreachable(now time.Time)
}

// SleepMonitor sends periodic ICMP echoes to every outbound UDP peer's
// address and listens for echo replies and Destination Unreachable
// packets, feeding the result into each UDPConnection's sleep/throttle
// heuristics via NotePingResponse/NoteUnreachable.
//
// Grounded on main/network.go's icmpEchoSender/sleepMonitor pair,
// generalized from the package-level pingResponse map and
// outSockets table to NetWriter.Clients() and an injected clock.
type SleepMonitor struct {
	writer *NetWriter
	clk    *clock.Clock

	echoInterval time.Duration
}

// NewSleepMonitor creates a monitor that pings every distinct peer IP
// currently registered with writer once every echoInterval.
func NewSleepMonitor(writer *NetWriter, clk *clock.Clock, echoInterval time.Duration) *SleepMonitor {
	if echoInterval <= 0 {
		echoInterval = 5 * time.Second
	}
	return &SleepMonitor{writer: writer, clk: clk, echoInterval: echoInterval}
}

// Run opens a raw ICMP socket and blocks, sending echoes and processing
// replies until ctx is cancelled. Like stratux's sleepMonitor, a
// failure to open the socket (e.g. missing CAP_NET_RAW) is logged and
// treated as "assume every peer is awake" rather than fatal.
func (m *SleepMonitor) Run(ctx context.Context) error {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		log.Printf("sleep monitor: listening for ICMP: %v (peers will never be marked asleep)", err)
		<-ctx.Done()
		return ctx.Err()
	}
	defer conn.Close()

	go m.sendEchoes(ctx, conn)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		conn.SetReadDeadline(m.clk.Now().Add(time.Second))
		buf := make([]byte, 1500)
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			continue
		}
		m.handlePacket(peer.String(), buf[:n])
	}
}

func (m *SleepMonitor) sendEchoes(ctx context.Context, conn *icmp.PacketConn) {
	ticker := time.NewTicker(m.echoInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.echoAll(conn)
		}
	}
}

func (m *SleepMonitor) echoAll(conn *icmp.PacketConn) {
	ips := make(map[string]bool)
	for _, c := range m.writer.Clients() {
		if host, _, err := net.SplitHostPort(c.Key()); err == nil {
			ips[host] = true
		}
	}
	for ip := range ips {
		msg := icmp.Message{
			Type: ipv4.ICMPTypeEcho, Code: 0,
			Body: &icmp.Echo{ID: os.Getpid() & 0xffff, Seq: 1, Data: []byte("adsbd")},
		}
		wb, err := msg.Marshal(nil)
		if err != nil {
			log.Printf("sleep monitor: marshaling echo: %v", err)
			continue
		}
		if _, err := conn.WriteTo(wb, &net.IPAddr{IP: net.ParseIP(ip)}); err != nil {
			log.Printf("sleep monitor: sending echo to %s: %v", ip, err)
		}
	}
}

func (m *SleepMonitor) handlePacket(peerAddr string, buf []byte) {
	msg, err := icmp.ParseMessage(1, buf)
	if err != nil {
		return
	}
	now := m.clk.Now()

	if msg.Type == ipv4.ICMPTypeEchoReply {
		for _, c := range m.writer.Clients() {
			host, _, err := net.SplitHostPort(c.Key())
			if err != nil || host != peerAddr {
				continue
			}
			if t, ok := c.(pingTarget); ok {
				t.NotePingResponse(now)
			}
		}
		return
	}
	if msg.Type != ipv4.ICMPTypeDestinationUnreachable {
		return
	}

	mb, err := msg.Body.Marshal(1)
	if err != nil || len(mb) < 28 {
		return
	}
	port := (uint16(mb[26]) << 8) | uint16(mb[27])
	key := peerAddr + ":" + strconv.Itoa(int(port))

	for _, c := range m.writer.Clients() {
		if !strings.EqualFold(c.Key(), key) {
			continue
		}
		if t, ok := c.(pingTarget); ok {
			t.NoteUnreachable(now)
		}
	}
}
