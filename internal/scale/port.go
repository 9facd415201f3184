// Package scale owns the weighing-instrument connection: the serial port
// abstraction, the frame sources (real and simulated), and the acquisition
// loop that decodes frames and publishes readings into the shared state.
package scale

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// Porter is the minimal interface the acquisition loop needs from a serial
// port. The read timeout bounds how long a stop request can go unnoticed.
type Porter interface {
	io.ReadWriteCloser
	SetReadTimeout(timeout time.Duration) error
}

// PortFactory opens serial ports. The factory seam lets tests substitute a
// scripted port for real hardware.
type PortFactory interface {
	Open(path string, baud int) (Porter, error)
}

// SerialPortFactory opens real serial ports at 8N1 with a bounded read
// timeout.
type SerialPortFactory struct {
	// ReadTimeout bounds a single read; 0 selects one second.
	ReadTimeout time.Duration
}

func (f SerialPortFactory) Open(path string, baud int) (Porter, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	timeout := f.ReadTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, err
	}

	return port, nil
}
