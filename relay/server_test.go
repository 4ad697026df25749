package relay

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(Options{
		Addr:       "127.0.0.1:0",
		RetryDelay: 10 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

func dialRelay(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendLines(t *testing.T, conn net.Conn, lines ...string) {
	t.Helper()
	for _, line := range lines {
		_, err := conn.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
}

func readReply(t *testing.T, conn net.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\n")
}

func registerReceiver(t *testing.T, s *Server, id uuid.UUID) net.Conn {
	t.Helper()
	conn := dialRelay(t, s)
	sendLines(t, conn, ClientIDPrefix+id.String(), RolePrefix+RoleReceiver)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, ok := s.Registry().Get(id); ok && r.Connected() {
			return conn
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("receiver was not registered in time")
	return nil
}

func TestRelayPushRoundTrip(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()
	receiver := registerReceiver(t, s, id)

	sender := dialRelay(t, s)
	sendLines(t, sender,
		ClientIDPrefix+id.String(),
		RolePrefix+RoleSender,
		NotificationPrefix+"Take your medication!")

	assert.Equal(t, NotificationPrefix+"Take your medication!", readReply(t, receiver))
}

func TestRelayMalformedClientID(t *testing.T) {
	s := newTestServer(t)

	conn := dialRelay(t, s)
	sendLines(t, conn, "ClientId: not-a-uuid")
	assert.Equal(t, ErrorPrefix+errMalformedClientID.Error(), readReply(t, conn))
	assert.Equal(t, 0, s.Registry().Len())
}

func TestRelayMalformedRole(t *testing.T) {
	s := newTestServer(t)

	conn := dialRelay(t, s)
	sendLines(t, conn, ClientIDPrefix+uuid.NewString(), RolePrefix+"Broadcaster")
	assert.Equal(t, ErrorPrefix+errMalformedRole.Error(), readReply(t, conn))
	assert.Equal(t, 0, s.Registry().Len())
}

func TestRelaySenderForUnknownReceiverClosedSilently(t *testing.T) {
	s := newTestServer(t)

	sender := dialRelay(t, s)
	sendLines(t, sender,
		ClientIDPrefix+uuid.NewString(),
		RolePrefix+RoleSender,
		NotificationPrefix+"into the void")

	// The connection is closed without any error line.
	require.NoError(t, sender.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := bufio.NewReader(sender).ReadString('\n')
	assert.ErrorIs(t, err, io.EOF)
}

func TestRelayReceiverReconnection(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()

	first := registerReceiver(t, s, id)
	_ = first.Close()
	s.Registry().Disconnect(id)

	second := registerReceiver(t, s, id)
	require.Equal(t, 1, s.Registry().Len())

	sender := dialRelay(t, s)
	sendLines(t, sender,
		ClientIDPrefix+id.String(),
		RolePrefix+RoleSender,
		NotificationPrefix+"still here")

	assert.Equal(t, NotificationPrefix+"still here", readReply(t, second))
}

func TestDeliverRetriesTransientFailures(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()

	conn := &fakeConn{writeErrs: []error{
		errors.New("temporary hiccup"),
		errors.New("temporary hiccup"),
	}}
	s.Registry().Register(id, conn)

	s.deliver(id, "hello")

	require.Len(t, conn.writes(), 1)
	assert.Equal(t, NotificationPrefix+"hello\n", conn.writes()[0])
}

func TestDeliverGivesUpAfterRetriesExhausted(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()

	conn := &fakeConn{writeErrs: []error{
		errors.New("temporary hiccup"),
		errors.New("temporary hiccup"),
		errors.New("temporary hiccup"),
	}}
	s.Registry().Register(id, conn)

	s.deliver(id, "hello")

	assert.Empty(t, conn.writes())
	// Transient failures leave the receiver registered and connected.
	r, ok := s.Registry().Get(id)
	require.True(t, ok)
	assert.True(t, r.Connected())
}

func TestDeliverPermanentErrorDisconnectsWithoutRetry(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()

	conn := &fakeConn{writeErrs: []error{syscall.EPIPE}}
	s.Registry().Register(id, conn)

	s.deliver(id, "hello")

	// A retry after the broken write would have succeeded and been recorded.
	assert.Empty(t, conn.writes())
	assert.True(t, s.Registry().IsRegistered(id), "entry survives for reconnection")
	r, _ := s.Registry().Get(id)
	assert.False(t, r.Connected())
	assert.True(t, conn.isClosed())
}

func TestDeliverDropsForOfflineReceiver(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()

	conn := &fakeConn{}
	s.Registry().Register(id, conn)
	s.Registry().Disconnect(id)

	s.deliver(id, "hello")
	assert.Empty(t, conn.writes())
}

func TestServerStartStopIdempotent(t *testing.T) {
	s := NewServer(Options{Addr: "127.0.0.1:0"}, zap.NewNop())
	require.NoError(t, s.Start())
	addr := s.Addr()
	require.NoError(t, s.Start(), "second start is a no-op")
	assert.Equal(t, addr.String(), s.Addr().String())

	s.Registry().Register(uuid.New(), &fakeConn{})
	s.Stop()
	assert.Nil(t, s.Addr())
	assert.Equal(t, 0, s.Registry().Len())
	s.Stop() // no-op
}
