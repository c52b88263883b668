package ingest

import (
	"net"
	"testing"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/b3nn0/adsbd/internal/clock"
)

// pingFakeConn adds the pingTarget methods to fakeConn so SleepMonitor
// tests can assert on NotePingResponse/NoteUnreachable calls.
type pingFakeConn struct {
	*fakeConn
	pingedAt      time.Time
	unreachableAt time.Time
}

func newPingFakeConn(clk *clock.Clock, key string) *pingFakeConn {
	return &pingFakeConn{fakeConn: newFakeConn(clk, key)}
}

func (p *pingFakeConn) NotePingResponse(now time.Time) { p.pingedAt = now }
func (p *pingFakeConn) NoteUnreachable(now time.Time)  { p.unreachableAt = now }

func TestSleepMonitorHandlesEchoReply(t *testing.T) {
	clk := clock.NewStopped()
	w := NewNetWriter(1024)
	peer := newPingFakeConn(clk, "203.0.113.5:12345")
	w.AddClient(peer)

	m := NewSleepMonitor(w, clk, time.Second)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEchoReply, Code: 0,
		Body: &icmp.Echo{ID: 1, Seq: 1, Data: []byte("adsbd")},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	m.handlePacket("203.0.113.5", wb)

	if peer.pingedAt.IsZero() {
		t.Errorf("expected NotePingResponse to be called for matching peer")
	}
}

func TestSleepMonitorIgnoresEchoReplyFromUnknownPeer(t *testing.T) {
	clk := clock.NewStopped()
	w := NewNetWriter(1024)
	peer := newPingFakeConn(clk, "203.0.113.5:12345")
	w.AddClient(peer)

	m := NewSleepMonitor(w, clk, time.Second)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEchoReply, Code: 0,
		Body: &icmp.Echo{ID: 1, Seq: 1, Data: []byte("adsbd")},
	}
	wb, _ := msg.Marshal(nil)

	m.handlePacket("198.51.100.9", wb)

	if !peer.pingedAt.IsZero() {
		t.Errorf("expected NotePingResponse not to fire for a non-matching peer address")
	}
}

func TestSleepMonitorHandlesDestinationUnreachable(t *testing.T) {
	clk := clock.NewStopped()
	w := NewNetWriter(1024)
	peer := newPingFakeConn(clk, "203.0.113.5:4000")
	w.AddClient(peer)

	m := NewSleepMonitor(w, clk, time.Second)

	// mb = 4 unused bytes + Data; the original datagram's dest port sits
	// at mb[26:28], i.e. Data[22:24], per RFC 792's "unreachable" body.
	data := make([]byte, 24)
	data[22] = byte(4000 >> 8)
	data[23] = byte(4000 & 0xff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeDestinationUnreachable, Code: 0,
		Body: &icmp.DstUnreach{Data: data},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	m.handlePacket("203.0.113.5", wb)

	if peer.unreachableAt.IsZero() {
		t.Errorf("expected NoteUnreachable to be called for matching peer:port")
	}
}

func TestSleepMonitorEchoAllCollectsDistinctIPs(t *testing.T) {
	clk := clock.NewStopped()
	w := NewNetWriter(1024)
	w.AddClient(newPingFakeConn(clk, "203.0.113.5:1"))
	w.AddClient(newPingFakeConn(clk, "203.0.113.5:2"))
	w.AddClient(newPingFakeConn(clk, "198.51.100.9:1"))

	ips := map[string]bool{}
	for _, c := range w.Clients() {
		host, _, err := net.SplitHostPort(c.Key())
		if err == nil {
			ips[host] = true
		}
	}
	if len(ips) != 2 {
		t.Errorf("len(ips) = %d, want 2 distinct peer addresses", len(ips))
	}
}
