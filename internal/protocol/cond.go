package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	condNumberRe = regexp.MustCompile(`-?\d+(\.\d+)?`)
	condUnitRe   = regexp.MustCompile(`[KLkl]`)
	condTypeRe   = regexp.MustCompile(`[GNgn]`)
)

// Cond decodes newline-framed scale output such as -012.50KG\r\n: an optional
// leading STX byte, an optional sign (leading, or attached to the number
// itself), a decimal magnitude, and optional unit (K/L) and type (G/N)
// letters anywhere in the remaining text.
type Cond struct{}

func (Cond) Name() string { return "cond" }

func (Cond) Terminator() byte { return '\n' }

func (d Cond) Decode(frame []byte) (Reading, error) {
	raw := Hexdump(frame)

	payload := strings.TrimRight(string(frame), "\r\n")
	if len(payload) > 0 && payload[0] == 0x02 {
		payload = payload[1:]
	}

	sign := 1.0
	if strings.HasPrefix(payload, "-") {
		sign = -1.0
		payload = payload[1:]
	}

	reading := Reading{RawHex: raw}

	// Unit and type letters are optional metadata; their absence never
	// invalidates the frame.
	if m := condUnitRe.FindString(payload); m != "" {
		reading.Unit = strings.ToUpper(m)
	}
	if m := condTypeRe.FindString(payload); m != "" {
		reading.Type = strings.ToUpper(m)
	}

	token := condNumberRe.FindString(payload)
	if token == "" {
		return reading, &DecodeError{Protocol: d.Name(), RawHex: raw, Err: ErrNoNumericToken}
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return reading, &DecodeError{Protocol: d.Name(), RawHex: raw, Err: err}
	}

	// A token that carried its own sign already folded it into value; the
	// consumed leading sign only applies to an unsigned token.
	if !strings.HasPrefix(token, "-") {
		value = sign * value
	}
	reading.WeightKg = value
	reading.Valid = true
	return reading, nil
}
