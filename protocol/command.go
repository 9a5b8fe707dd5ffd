// Package protocol parses command packets, dispatches them to the door and
// renders the status line.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrRejected is returned for packets that are not acted on.
var ErrRejected = errors.New("command rejected")

// maxArgDigits is the longest argument read after the code byte.
const maxArgDigits = 3

// Command is one parsed packet.
type Command struct {
	Code   byte
	Arg    byte
	HasArg bool
}

func (c Command) String() string {
	if c.Code == 0 {
		return "<none>"
	}
	if c.HasArg {
		return fmt.Sprintf("%c%d", c.Code, c.Arg)
	}
	return string(rune(c.Code))
}

// Parse reads a packet of the form <code>[digits]. Bytes after the code
// are ignored unless the code takes an argument. The argument is the
// leading run of decimal digits in the first three bytes after any
// leading whitespace; anything after it is ignored. An empty packet
// yields a Command with no code.
func Parse(pkt []byte) (Command, error) {
	if len(pkt) == 0 {
		return Command{}, nil
	}
	cmd := Command{Code: pkt[0]}
	if !TakesArg(cmd.Code) {
		return cmd, nil
	}

	field := bytes.TrimLeft(pkt[1:], " \t\r\n")
	if len(field) > maxArgDigits {
		field = field[:maxArgDigits]
	}
	if len(field) == 0 {
		return cmd, nil
	}

	v, n := 0, 0
	for _, b := range field {
		if b < '0' || b > '9' {
			break
		}
		v = v*10 + int(b-'0')
		n++
	}
	if n == 0 {
		return cmd, fmt.Errorf("%w: %q has a non-numeric argument", ErrRejected, pkt)
	}
	if v > 255 {
		return cmd, fmt.Errorf("%w: argument %d out of range", ErrRejected, v)
	}

	cmd.Arg = byte(v)
	cmd.HasArg = true
	return cmd, nil
}
