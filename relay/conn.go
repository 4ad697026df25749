package relay

import (
	"bufio"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// handleConn runs the per-connection protocol state machine:
//
//	AwaitClientId -> AwaitRole -> ReceiverRegistered            (long-lived)
//	                           -> AwaitNotification -> Delivering -> Closed
//
// Malformed input on the first two lines is answered with an ERROR line
// before closing; EOF closes silently. A registered receiver's connection is
// handed over to the registry and must not be closed here.
func (s *Server) handleConn(conn net.Conn) {
	reader := bufio.NewReader(conn)

	line, err := readLine(reader)
	if err != nil {
		_ = conn.Close()
		return
	}
	clientID, err := parseClientID(line)
	if err != nil {
		s.refuse(conn, err)
		return
	}

	line, err = readLine(reader)
	if err != nil {
		_ = conn.Close()
		return
	}
	role, err := parseRole(line)
	if err != nil {
		s.refuse(conn, err)
		return
	}

	switch role {
	case RoleReceiver:
		s.registry.Register(clientID, conn)
		s.log.Info("receiver registered", zap.String("receiverId", clientID.String()))
	case RoleSender:
		s.handleSender(conn, reader, clientID)
	}
}

// handleSender reads the notification line, acknowledges the sender by
// closing its connection and delivers asynchronously. A sender targeting an
// unregistered receiver is closed silently with no delivery attempt.
func (s *Server) handleSender(conn net.Conn, reader *bufio.Reader, receiverID uuid.UUID) {
	defer conn.Close()

	line, err := readLine(reader)
	if err != nil {
		return
	}
	message, err := parseNotification(line)
	if err != nil {
		s.writeError(conn, err)
		return
	}
	if !s.registry.IsRegistered(receiverID) {
		s.log.Warn("push for unregistered receiver dropped",
			zap.String("receiverId", receiverID.String()))
		return
	}
	go s.deliver(receiverID, message)
}

// deliver writes the notification to the receiver with bounded retry. The
// receiver is looked up from the registry before every attempt so a
// concurrent reconnection is picked up. A receiver that is offline at
// attempt time means the message is simply missed; there is no durability. A
// broken receiver socket marks the receiver disconnected and stops
// immediately; any other write failure is retried after a fixed delay.
func (s *Server) deliver(receiverID uuid.UUID, message string) {
	for attempt := 1; attempt <= s.retryCount; attempt++ {
		receiver, ok := s.registry.Get(receiverID)
		if !ok {
			return
		}
		if !receiver.Connected() {
			s.log.Info("receiver currently not connected, dropping notification",
				zap.String("receiverId", receiverID.String()))
			return
		}

		err := receiver.Write(NotificationPrefix + message)
		if err == nil {
			s.log.Info("notification delivered",
				zap.String("receiverId", receiverID.String()))
			return
		}
		if isPermanentSendErr(err) {
			s.log.Warn("receiver connection broken, marking disconnected",
				zap.String("receiverId", receiverID.String()),
				zap.Error(err))
			s.registry.Disconnect(receiverID)
			return
		}
		s.log.Warn("sending notification failed",
			zap.String("receiverId", receiverID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < s.retryCount {
			time.Sleep(s.retryDelay)
		}
	}
	s.log.Warn("notification dropped after retries exhausted",
		zap.String("receiverId", receiverID.String()))
}

// refuse answers a malformed request with an ERROR line and closes.
func (s *Server) refuse(conn net.Conn, cause error) {
	s.writeError(conn, cause)
	_ = conn.Close()
}

func (s *Server) writeError(conn net.Conn, cause error) {
	s.log.Warn("malformed relay request",
		zap.String("remote", conn.RemoteAddr().String()),
		zap.Error(cause))
	if _, err := conn.Write([]byte(ErrorPrefix + cause.Error() + "\n")); err != nil {
		s.log.Debug("writing error response failed", zap.Error(err))
	}
}

// readLine reads one protocol line without its trailing newline. A trailing
// carriage return is tolerated.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}
