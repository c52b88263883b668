package ingest

import (
	"io"
	"time"
)

// ClientReader drives the bounded per-client read loop: read into the
// tail of a ~64KiB buffer, frame what's complete, decode it, and track
// total garbage so a persistently noisy peer gets dropped.
//
// Grounded on the client read loop original_source/net_io.c's
// read_handler implements (scan-for-0x1A / ASCII-delimiter loop with a
// bounded iteration count per service pass), adapted to Go's blocking
// io.Reader model: one ClientReader instance is driven by one goroutine
// per client rather than a single-threaded select() loop over all
// clients.
type ClientReader struct {
	Conn    Connection
	Source  io.Reader
	Service *Service

	buf     []byte
	garbage int
}

// NewClientReader creates a reader for conn, pulling bytes from src
// (typically conn's own underlying net.Conn, since Connection itself
// only exposes the write side).
func NewClientReader(conn Connection, src io.Reader, svc *Service) *ClientReader {
	return &ClientReader{Conn: conn, Source: src, Service: svc, buf: make([]byte, 0, ClientBufferSize)}
}

// RunOnce performs one bounded pass: up to MaxReadIterations reads (or
// MaxReadWallClock of wall time, whichever comes first), each followed
// by framing and decoding whatever became available. Returns an error
// if the client should be dropped (I/O error, persistent garbage, or a
// decode handler rejecting a frame outright).
func (r *ClientReader) RunOnce(now time.Time) error {
	deadline := now.Add(MaxReadWallClock)
	for i := 0; i < MaxReadIterations; i++ {
		if time.Now().After(deadline) {
			return nil
		}

		tail := r.buf[len(r.buf):cap(r.buf)]
		if len(tail) == 0 {
			// Buffer full without a complete message: step
			// 1 treats this as garbage and drops everything pending.
			r.garbage += len(r.buf)
			r.buf = r.buf[:0]
			if r.garbage > MaxGarbageBytes {
				return ErrGarbage
			}
			continue
		}

		n, err := r.Source.Read(tail)
		if n > 0 {
			r.buf = r.buf[:len(r.buf)+n]
			r.Conn.TouchRead(time.Now())
			if drainErr := r.drain(); drainErr != nil {
				return drainErr
			}
		}
		if err != nil {
			if err == io.EOF {
				return err
			}
			if isTransient(err) {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}

// drain frames and decodes everything currently in r.buf, leaving any
// trailing incomplete frame in place for the next Read.
func (r *ClientReader) drain() error {
	switch r.Service.Framing {
	case FramingIgnore:
		r.buf = r.buf[:0]
		return nil
	case FramingBeast, FramingBeastCommand:
		return r.drainBeast()
	case FramingASCII:
		return r.drainASCII()
	}
	return nil
}

func (r *ClientReader) drainBeast() error {
	for {
		frame, garbage, err := ScanBeastFrame(r.buf)
		r.garbage += garbage
		if err == ErrIncompleteFrame {
			r.buf = r.buf[garbage:]
			if r.garbage > MaxGarbageBytes {
				return ErrGarbage
			}
			return nil
		}
		if err == ErrGarbage {
			r.buf = r.buf[garbage:]
			if r.garbage > MaxGarbageBytes {
				return ErrGarbage
			}
			continue
		}
		if err != nil {
			return err
		}

		if r.Service.Decode != nil && frame.Payload != nil {
			sig := float64(frame.SigByte) / 255.0
			if derr := r.Service.Decode(r.Conn, frame.Payload, true, sig, frame.HWTime, time.Now()); derr != nil {
				return derr
			}
		}
		r.buf = r.buf[frame.ConsumedTo:]
		if r.garbage > MaxGarbageBytes {
			return ErrGarbage
		}
	}
}

func (r *ClientReader) drainASCII() error {
	for {
		line, consumed, ok := ScanASCIILine(r.buf, '\n')
		if !ok {
			return nil
		}
		r.buf = r.buf[consumed:]

		if r.Service.Decode != nil && len(line) > 0 {
			if r.Service.Capability == CapSBSIn {
				if _, fieldsOK := SplitSBSFields(line); !fieldsOK {
					r.garbage += len(line)
					if r.garbage > MaxGarbageBytes {
						return ErrGarbage
					}
					continue
				}
				if derr := r.Service.Decode(r.Conn, line, true, 0, 0, time.Now()); derr != nil {
					return derr
				}
				continue
			}

			hex, hexOK := RawASCIIHexPayload(line)
			if !hexOK {
				r.garbage += len(line)
				if r.garbage > MaxGarbageBytes {
					return ErrGarbage
				}
				continue
			}
			if derr := r.Service.Decode(r.Conn, hex, true, 0, 0, time.Now()); derr != nil {
				return derr
			}
		}
	}
}

func isTransient(err error) bool {
	type timeout interface{ Timeout() bool }
	if te, ok := err.(timeout); ok {
		return te.Timeout()
	}
	return false
}
