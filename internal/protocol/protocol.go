// Package protocol decodes raw scale frames into normalized weight readings.
//
// Two wire protocols are supported: EL05 (carriage-return framed, unsigned
// digit run) and COND (newline framed, signed decimal with optional unit and
// type letters). Decoders are pure: identical input bytes always yield
// identical output.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Frame decode failures. Both are recoverable: the acquisition loop reports
// them as a status string and keeps reading.
var (
	ErrNoDigits       = errors.New("no digits in frame")
	ErrNoNumericToken = errors.New("no numeric token in frame")
)

// Reading is a normalized weight reading produced from one decoded frame.
// It is never mutated after creation.
type Reading struct {
	WeightKg float64 `json:"weight_kg"`
	Unit     string  `json:"unit,omitempty"` // "K" or "L" when the frame carries one
	Type     string  `json:"type,omitempty"` // "G" (gross) or "N" (net) when the frame carries one
	Valid    bool    `json:"valid"`
	RawHex   string  `json:"raw_hex"`
}

// Decoder turns one delimited frame into a Reading.
type Decoder interface {
	// Decode parses a complete frame, terminator included or not.
	Decode(frame []byte) (Reading, error)
	// Terminator is the byte that ends a frame on the wire.
	Terminator() byte
	// Name is the protocol selector token ("el05" or "cond").
	Name() string
}

// DecodeError reports a per-frame decode failure along with the offending
// frame so the raw bytes can be logged for diagnosis.
type DecodeError struct {
	Protocol string
	RawHex   string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode failed (%s): %v", e.Protocol, e.RawHex, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Hexdump renders frame bytes as space-separated uppercase hex pairs,
// matching the format stored in Reading.RawHex.
func Hexdump(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}

// ForName returns the decoder for a protocol selector. el05Divisor only
// applies to the EL05 decoder; pass 0 for the default.
func ForName(name string, el05Divisor float64) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "el05":
		return NewEL05(el05Divisor), nil
	case "cond":
		return Cond{}, nil
	default:
		return nil, fmt.Errorf("unknown scale protocol %q: expected el05 or cond", name)
	}
}
