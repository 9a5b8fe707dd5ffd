package udp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coopdoor/logging"
)

func read(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	buf := make([]byte, maxPacket)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestServe_RepliesToSender(t *testing.T) {
	s, err := Listen(Config{Listen: "127.0.0.1:0"}, logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, func(pkt []byte) (string, string) {
			if string(pkt) == "h" {
				return "help", "!ID=1"
			}
			return "", "!ID=1"
		})
	}()

	client, err := net.DialUDP("udp", nil, s.Addr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("h"))
	require.NoError(t, err)
	assert.Equal(t, "help", read(t, client))
	assert.Equal(t, "!ID=1", read(t, client))

	_, err = client.Write([]byte("21"))
	require.NoError(t, err)
	assert.Equal(t, "!ID=1", read(t, client))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestNotify_SendsToTarget(t *testing.T) {
	collector, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer collector.Close()

	s, err := Listen(Config{Listen: "127.0.0.1:0", Target: collector.LocalAddr().String()}, nil)
	require.NoError(t, err)
	defer s.Close()

	s.Notify("(ID:3)-DM:0")
	assert.Equal(t, "(ID:3)-DM:0", read(t, collector))
}

func TestNotify_NoTarget(t *testing.T) {
	s, err := Listen(Config{Listen: "127.0.0.1:0"}, nil)
	require.NoError(t, err)
	defer s.Close()
	s.Notify("dropped")
}

func TestListen_BadAddress(t *testing.T) {
	_, err := Listen(Config{Listen: "not-an-address:xx"}, nil)
	assert.Error(t, err)
}
