// Package udp receives command packets on a UDP socket and pushes
// messages to a fixed collector address.
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"coopdoor/logging"
)

// maxPacket bounds one command datagram.
const maxPacket = 512

// Config holds UDP socket settings.
type Config struct {
	Listen string `yaml:"listen"` // e.g. ":3333", empty disables
	Target string `yaml:"target"` // collector for pushed messages, e.g. "192.168.1.20:3333"
}

// Handler applies one packet and returns the reply text and status line
// to send back to the sender. Either may be empty.
type Handler func(pkt []byte) (reply, status string)

// Server is a UDP command endpoint.
type Server struct {
	conn   *net.UDPConn
	target *net.UDPAddr
	log    *logging.Logger

	mu sync.Mutex // serializes writes
}

// Listen opens the socket described by cfg.
func Listen(cfg Config, log *logging.Logger) (*Server, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address %q: %w", cfg.Listen, err)
	}
	s := &Server{log: logging.OrDiscard(log).With("component", "udp")}

	if cfg.Target != "" {
		s.target, err = net.ResolveUDPAddr("udp", cfg.Target)
		if err != nil {
			return nil, fmt.Errorf("resolve target address %q: %w", cfg.Target, err)
		}
	}

	s.conn, err = net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", cfg.Listen, err)
	}
	s.log.Info("listening", "addr", s.conn.LocalAddr().String(), "target", cfg.Target)
	return s, nil
}

// Addr returns the local socket address.
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Serve reads packets until ctx is done, passing each to handle and
// answering the sender.
func (s *Server) Serve(ctx context.Context, handle Handler) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, maxPacket)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("read failed", "error", err)
			continue
		}
		if n == 0 {
			continue
		}

		pkt := append([]byte(nil), buf[:n]...)
		s.log.Debug("packet received", "from", from.String(), "len", n)

		reply, status := handle(pkt)
		for _, msg := range []string{reply, status} {
			if msg != "" {
				s.send(from, msg)
			}
		}
	}
}

// Notify implements the hatch notifier by sending msg to the target.
func (s *Server) Notify(msg string) {
	if s.target == nil {
		return
	}
	s.send(s.target, msg)
}

func (s *Server) send(to *net.UDPAddr, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.conn.WriteToUDP([]byte(msg), to); err != nil {
		s.log.Warn("send failed", "to", to.String(), "error", err)
	}
}

// Close closes the socket.
func (s *Server) Close() error {
	return s.conn.Close()
}
