package protocol

import (
	"strconv"
	"strings"
)

// DefaultEL05Divisor converts the EL05 raw digit run into kilograms. The value
// 10 reproduces the observed sample frame (M000010 reads 1.0 kg) but is not
// derived from the protocol itself; some hardware revisions may need 100 or
// 1000, so the divisor is configurable.
const DefaultEL05Divisor = 10

// EL05 decodes carriage-return framed scale output of the form M000010\r,
// where the digit run is the weight multiplied by Divisor.
type EL05 struct {
	Divisor float64
}

// NewEL05 returns an EL05 decoder. A divisor of 0 or less selects
// DefaultEL05Divisor.
func NewEL05(divisor float64) EL05 {
	if divisor <= 0 {
		divisor = DefaultEL05Divisor
	}
	return EL05{Divisor: divisor}
}

func (EL05) Name() string { return "el05" }

func (EL05) Terminator() byte { return '\r' }

// Decode locates the first contiguous run of ASCII digits anywhere in the
// frame and divides it by the configured divisor. Non-ASCII noise is ignored.
// The result is always Valid when digits are found: magnitude sanity checks
// are the caller's responsibility.
func (d EL05) Decode(frame []byte) (Reading, error) {
	raw := Hexdump(frame)

	var sb strings.Builder
	for _, c := range frame {
		if c < 0x80 {
			sb.WriteByte(c)
		}
	}
	payload := strings.TrimSpace(sb.String())

	digits := firstDigitRun(payload)
	if digits == "" {
		return Reading{RawHex: raw}, &DecodeError{Protocol: d.Name(), RawHex: raw, Err: ErrNoDigits}
	}

	value, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return Reading{RawHex: raw}, &DecodeError{Protocol: d.Name(), RawHex: raw, Err: err}
	}

	divisor := d.Divisor
	if divisor <= 0 {
		divisor = DefaultEL05Divisor
	}

	return Reading{
		WeightKg: float64(value) / divisor,
		Valid:    true,
		RawHex:   raw,
	}, nil
}

// firstDigitRun returns the first contiguous run of ASCII digits in s, or ""
// if s has none.
func firstDigitRun(s string) string {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}
