// Package eventpipe reads door commands from a local named pipe, so
// scripts on the host can drive the controller with
// `echo "move open" > /tmp/coopdoor-cmd`.
package eventpipe

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"coopdoor/logging"
)

// Config holds configuration for the event pipe.
type Config struct {
	Path string `yaml:"path"` // Path to named pipe (e.g., "/tmp/coopdoor-cmd")
}

// Handler is called with the command packet for every accepted line.
type Handler func(pkt []byte)

// EventPipe listens for commands on a named pipe.
type EventPipe struct {
	path    string
	handler Handler
	log     *logging.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a new EventPipe. Returns nil if path is empty.
func New(cfg Config, handler Handler, log *logging.Logger) (*EventPipe, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	// Remove existing pipe if it exists
	os.Remove(cfg.Path)

	// Create the named pipe
	if err := syscall.Mkfifo(cfg.Path, 0660); err != nil {
		return nil, fmt.Errorf("create named pipe %s: %w", cfg.Path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPipe{
		path:    cfg.Path,
		handler: handler,
		log:     logging.OrDiscard(log).With("component", "eventpipe"),
		ctx:     ctx,
		cancel:  cancel,
	}

	return ep, nil
}

// Start begins listening for commands on the pipe.
// This should be called as a goroutine.
func (ep *EventPipe) Start() {
	ep.log.Info("event pipe listening", "path", ep.path)

	for {
		select {
		case <-ep.ctx.Done():
			return
		default:
		}

		// Open blocks until a writer connects
		file, err := os.OpenFile(ep.path, os.O_RDONLY, 0)
		if err != nil {
			if ep.ctx.Err() != nil {
				return
			}
			ep.log.Warn("event pipe open failed", "error", err)
			continue
		}

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			select {
			case <-ep.ctx.Done():
				file.Close()
				return
			default:
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			pkt, err := parseLine(line)
			if err != nil {
				ep.log.Warn("event pipe parse failed", "line", line, "error", err)
				continue
			}

			if ep.handler != nil {
				ep.handler(pkt)
			}
		}

		file.Close()
		// Writer closed the pipe, loop back to wait for next writer
	}
}

// Close stops the event pipe listener and removes the pipe.
func (ep *EventPipe) Close() error {
	ep.cancel()
	// Unblock a Start waiting in open
	if f, err := os.OpenFile(ep.path, os.O_WRONLY|syscall.O_NONBLOCK, 0); err == nil {
		f.Close()
	}
	return os.Remove(ep.path)
}

// parseLine turns a command line into a command packet.
// Command format:
//
//	move open|close               - Move the door
//	force open|closed             - Record the door state without moving
//	automation on|off             - Automation
//	ldr on|off                    - Light triggering
//	time on|off                   - Time triggering
//	tracking on|off               - Encoder position tracking
//	top|lower|upper|id|offset|movetime <n>
//	                              - Numeric settings
//	resume                        - Clear the automation delay
//	help | reset | restart
//	raw <packet>                  - Pass a packet through unchanged
func parseLine(line string) ([]byte, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.ToLower(parts[1])
	}

	switch cmd {
	case "raw":
		if arg == "" {
			return nil, fmt.Errorf("raw requires a packet")
		}
		return []byte(parts[1]), nil

	case "move":
		switch arg {
		case "open":
			return []byte("21"), nil
		case "close":
			return []byte("20"), nil
		}
		return nil, fmt.Errorf("move requires open or close")

	case "force":
		switch arg {
		case "open":
			return []byte("o"), nil
		case "close", "closed":
			return []byte("c"), nil
		}
		return nil, fmt.Errorf("force requires open or closed")

	case "automation", "ldr", "time", "tracking":
		on, err := parseSwitch(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cmd, err)
		}
		code := map[string]byte{"automation": '0', "ldr": 'l', "time": 't', "tracking": 'm'}[cmd]
		return []byte{code, on}, nil

	case "top", "lower", "upper", "id", "offset", "movetime":
		v, err := strconv.ParseUint(arg, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%s requires a value 0-255: %q", cmd, arg)
		}
		code := map[string]byte{"top": '4', "lower": '5', "upper": '6', "id": '7', "offset": '8', "movetime": 'n'}[cmd]
		return append([]byte{code}, strconv.FormatUint(v, 10)...), nil

	case "resume":
		return []byte("a"), nil
	case "help":
		return []byte("h"), nil
	case "reset":
		return []byte("f"), nil
	case "restart":
		return []byte("r"), nil

	default:
		return nil, fmt.Errorf("unknown command: %s", cmd)
	}
}

// parseSwitch converts on/off words to the packet argument digit.
func parseSwitch(s string) (byte, error) {
	switch s {
	case "on", "1", "true":
		return '1', nil
	case "off", "0", "false":
		return '0', nil
	default:
		return 0, fmt.Errorf("expected on or off, got %q", s)
	}
}
