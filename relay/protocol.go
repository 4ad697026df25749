package relay

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Wire protocol of the relay. Line-oriented, one value per line, UTF-8 text.
// A connection opens with a client id line and a role line; a Sender then
// sends exactly one notification line, a Receiver sends nothing further and
// is kept open for pushes. These prefixes are a bit-exact contract with
// client implementations.
const (
	ClientIDPrefix     = "ClientId: "
	RolePrefix         = "Role: "
	NotificationPrefix = "Notification: "
	ErrorPrefix        = "ERROR: "

	RoleSender   = "Sender"
	RoleReceiver = "Receiver"
)

var (
	errMalformedClientID     = errors.New("no valid ClientId")
	errMalformedRole         = errors.New("no valid role")
	errMalformedNotification = errors.New("no valid notification message")
)

// parseClientID extracts and validates the opaque client id from line 1.
func parseClientID(line string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(line, ClientIDPrefix)
	if !ok {
		return uuid.Nil, errMalformedClientID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errMalformedClientID
	}
	return id, nil
}

// parseRole extracts the role from line 2.
func parseRole(line string) (string, error) {
	role, ok := strings.CutPrefix(line, RolePrefix)
	if !ok {
		return "", errMalformedRole
	}
	if role != RoleSender && role != RoleReceiver {
		return "", errMalformedRole
	}
	return role, nil
}

// parseNotification extracts the message text from line 3. The text may be
// empty.
func parseNotification(line string) (string, error) {
	msg, ok := strings.CutPrefix(line, NotificationPrefix)
	if !ok {
		return "", errMalformedNotification
	}
	return msg, nil
}
