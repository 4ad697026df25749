package delivery

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRelayBackendForwardSendsSenderHandshake(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	clientID := uuid.NewString()
	got := make(chan []string, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var lines []string
		scanner := bufio.NewScanner(conn)
		for len(lines) < 3 && scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		got <- lines
	}()

	b := NewRelayBackend(clientID, l.Addr().String(), zap.NewNop())
	require.NoError(t, b.Forward("Drink water!", false))

	select {
	case lines := <-got:
		assert.Equal(t, []string{
			"ClientId: " + clientID,
			"Role: Sender",
			"Notification: Drink water!",
		}, lines)
	case <-time.After(2 * time.Second):
		t.Fatal("relay never received the push request")
	}
}

func TestRelayBackendForwardFailsWhenRelayUnreachable(t *testing.T) {
	// Grab a free port and release it so nothing is listening there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	b := NewRelayBackend(uuid.NewString(), addr, zap.NewNop())
	assert.Error(t, b.Forward("Drink water!", false))
}
