// Package console accepts command packets one per line on a serial port
// and echoes pushed messages back to it.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tarm/serial"

	"coopdoor/logging"
)

const defaultBaud = 115200

// Config holds serial console settings.
type Config struct {
	Device string `yaml:"device"` // e.g. "/dev/ttyUSB0", empty disables
	Baud   int    `yaml:"baud"`
}

// Handler applies one packet and returns the reply text and status line.
type Handler func(pkt []byte) (reply, status string)

// Console is a line-oriented command endpoint.
type Console struct {
	port io.ReadWriteCloser
	log  *logging.Logger

	mu sync.Mutex // serializes writes
}

// Open opens the serial device described by cfg.
func Open(cfg Config, log *logging.Logger) (*Console, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = defaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{Name: cfg.Device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Device, err)
	}
	return New(port, log), nil
}

// New creates a Console over an already open port.
func New(port io.ReadWriteCloser, log *logging.Logger) *Console {
	return &Console{
		port: port,
		log:  logging.OrDiscard(log).With("component", "console"),
	}
}

// Serve reads lines until ctx is done or the port closes. Blank lines
// are ignored; surrounding whitespace is stripped before handle runs.
func (c *Console) Serve(ctx context.Context, handle Handler) error {
	go func() {
		<-ctx.Done()
		c.port.Close()
	}()

	scanner := bufio.NewScanner(c.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply, status := handle([]byte(line))
		if reply != "" {
			c.writeLine(reply)
		}
		if status != "" {
			c.writeLine(status)
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read console: %w", err)
	}
	return nil
}

// Notify implements the hatch notifier.
func (c *Console) Notify(msg string) {
	c.writeLine(msg)
}

func (c *Console) writeLine(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.port, strings.TrimRight(msg, "\n")+"\r\n"); err != nil {
		c.log.Warn("console write failed", "error", err)
	}
}

// Close closes the port.
func (c *Console) Close() error {
	return c.port.Close()
}
