package delivery

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

const relayDialTimeout = 10 * time.Second

// Relay wire constants, mirrored from the relay server's protocol. The
// backend acts as the Sender role: three lines per push, then the connection
// is closed.
const (
	relayClientIDPrefix     = "ClientId: "
	relayRolePrefix         = "Role: "
	relayNotificationPrefix = "Notification: "
	relayRoleSender         = "Sender"
)

// RelayBackend forwards notifications to a client device through the push
// relay. Each Forward opens a fresh sender connection; delivery retry is the
// relay's responsibility, not this backend's.
type RelayBackend struct {
	clientID string
	addr     string
	log      *zap.Logger
}

func NewRelayBackend(clientID, addr string, log *zap.Logger) *RelayBackend {
	return &RelayBackend{clientID: clientID, addr: addr, log: log}
}

// Forward pushes one notification. The relay transport does not consider
// priority.
func (b *RelayBackend) Forward(message string, highPriority bool) error {
	conn, err := net.DialTimeout("tcp", b.addr, relayDialTimeout)
	if err != nil {
		return fmt.Errorf("connect to relay at %s: %w", b.addr, err)
	}
	defer conn.Close()

	w := bufio.NewWriter(conn)
	lines := []string{
		relayClientIDPrefix + b.clientID,
		relayRolePrefix + relayRoleSender,
		relayNotificationPrefix + message,
	}
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write push request to relay: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush push request to relay: %w", err)
	}
	b.log.Debug("push request sent to relay",
		zap.String("clientId", b.clientID))
	return nil
}
