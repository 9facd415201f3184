package scale

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Source yields complete frames from a device, real or simulated. ReadFrame
// blocks until a frame is available, the source fails, or ctx is cancelled.
type Source interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	Describe() string
	Close() error
}

// SerialSource reads terminator-delimited frames from a serial port. Reads
// are bounded by the port's read timeout, so a cancelled context is observed
// within one timeout interval.
type SerialSource struct {
	port       Porter
	path       string
	terminator byte
	pending    []byte
}

// NewSerialSource wraps an open port. terminator is the protocol's frame
// delimiter.
func NewSerialSource(port Porter, path string, terminator byte) *SerialSource {
	return &SerialSource{port: port, path: path, terminator: terminator}
}

func (s *SerialSource) Describe() string { return s.path }

func (s *SerialSource) Close() error { return s.port.Close() }

func (s *SerialSource) ReadFrame(ctx context.Context) ([]byte, error) {
	buf := make([]byte, 256)
	for {
		// A frame may already be buffered from a previous read.
		if i := bytes.IndexByte(s.pending, s.terminator); i >= 0 {
			frame := make([]byte, i+1)
			copy(frame, s.pending[:i+1])
			s.pending = s.pending[i+1:]
			return frame, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := s.port.Read(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Read timeout expired with no data; re-check cancellation.
			continue
		}
		s.pending = append(s.pending, buf[:n]...)
	}
}

// SimulatedSource generates synthetic frames in the configured protocol's
// wire format so the acquisition loop, decoder, and publish cadence stay
// identical to a real device.
type SimulatedSource struct {
	protocol    string
	el05Divisor float64
	interval    time.Duration
}

// NewSimulatedSource builds a generator for the given protocol selector.
// interval is the synthetic frame cadence; 0 selects 500ms.
func NewSimulatedSource(protocol string, el05Divisor float64, interval time.Duration) *SimulatedSource {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &SimulatedSource{protocol: protocol, el05Divisor: el05Divisor, interval: interval}
}

func (s *SimulatedSource) Describe() string { return "Simulación" }

func (s *SimulatedSource) Close() error { return nil }

func (s *SimulatedSource) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.interval):
	}

	// Plausible pallet weight, two decimal places.
	weight := 50.0 + rand.Float64()*450.0
	weight = float64(int(weight*100)) / 100

	if s.protocol == "cond" {
		return []byte(fmt.Sprintf("\x02%06.2fKG\r\n", weight)), nil
	}

	divisor := s.el05Divisor
	if divisor <= 0 {
		divisor = 10
	}
	return []byte(fmt.Sprintf("M%06d\r", int(weight*divisor))), nil
}
