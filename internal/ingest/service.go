/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	service.go: connection/framing/capability model, adapted from clientconnection.go and network.go
*/

// Package ingest implements the message ingestion/fan-out pipeline:
// accepting peer connections, framing inbound bytes into
// Beast/raw-ASCII/SBS messages, tagging them with a source, and handing
// them to a decode callback; and the outbound side, fanning frames out
// to connected clients and maintaining outbound connectors.
//
// Grounded throughout on main/clientconnection.go (connection interface
// and its tcp/udp/serial implementations) and main/network.go (the
// outbound connector state machine), generalized from stratux's fixed
// GDL90 output to per-service Beast/raw/SBS framing and from a
// capability bitmask to a service id, since each listener here serves
// one purpose rather than one fixed output format.
package ingest

import "time"

// FramingMode selects how inbound bytes are split into messages
// ("Services and framing modes").
type FramingMode uint8

const (
	// FramingIgnore discards inbound bytes; used for pure outputs.
	FramingIgnore FramingMode = iota
	// FramingASCII splits on a configured delimiter (typically newline).
	FramingASCII
	// FramingBeast scans for 0x1A-escaped binary frames.
	FramingBeast
	// FramingBeastCommand is FramingBeast restricted to short
	// out-of-band control frames.
	FramingBeastCommand
)

// Capability identifies which logical service a Connection belongs to
// (inbound Beast, inbound SBS, outbound Beast, outbound raw, outbound
// SBS, ...), replacing a fixed GDL90 NETWORK_* bitmask with an open
// service id the embedding binary defines.
type Capability uint8

const (
	CapBeastIn Capability = iota
	CapBeastOut
	CapRawOut
	CapSBSOut
	CapSBSIn
	// CapBeastReduceOut is the reduced-bandwidth companion to CapBeastOut:
	// a message-to-frame encoder should additionally Reserve a client
	// registered under this capability's NetWriter whenever
	// message.Message.ReduceForward is true for the frame it just wrote,
	// mirroring the original's second beast_reduce_out stream.
	CapBeastReduceOut
)

// Service bundles the framing mode and decode handler for one listener
// or connector (per-service configuration).
type Service struct {
	Name       string
	Framing    FramingMode
	Capability Capability

	// Decode is the injected "pure function" boundary // describes as decode_frame(bytes, sig_level) -> Message | Error;
	// actual Mode-S bit-level decoding is out of scope and
	// supplied by the embedding binary.
	Decode DecodeFunc

	// HeartbeatInterval records the service's heartbeat period. Nothing
	// in this package reads it: heartbeat frames go out on the periodic
	// driver's own cadence, and idle clients are not closed on a
	// HeartbeatInterval-based timeout.
	HeartbeatInterval time.Duration
}

// DecodeFunc decodes one framed message. remote is true for messages
// that arrived over the network rather than from local hardware.
// hwTimestamp is the 12MHz Beast timestamp, 0 if the framing mode
// doesn't carry one.
type DecodeFunc func(client Client, frame []byte, remote bool, sigLevel float64, hwTimestamp uint64, now time.Time) error

const (
	// DefaultHeartbeatInterval matches the keep-alive cadence for
	// outbound GDL90/Beast links.
	DefaultHeartbeatInterval = 1 * time.Second
	// ClientBufferSize is the per-client read buffer.
	ClientBufferSize = 64 * 1024
	// MaxGarbageBytes is the threshold of unframeable bytes that causes
	// a client to be dropped.
	MaxGarbageBytes = 512
	// MaxReadIterations bounds a single client's read loop so one busy
	// peer cannot starve the others.
	MaxReadIterations = 32
	// MaxReadWallClock is the hard wall-clock cap for the bounded read
	// loop.
	MaxReadWallClock = 200 * time.Millisecond
	// SendQueueMaxBytes is the per-client outbound queue capacity.
	SendQueueMaxBytes = 128 * 1024
	// SendQueueDrainDeadline is how long a stalled send queue is given
	// before the client is dropped.
	SendQueueDrainDeadline = 5 * time.Second
)
