// internal/domain/shopper/owner.go
package shopper

import (
	"errors"
	"fmt"
)

// ErrNotFoundOrForbidden is returned when a record does not exist or is owned by someone else.
// Callers cannot tell the two cases apart.
var ErrNotFoundOrForbidden = errors.New("not found or forbidden")

// Owner identifies the shopper a cart or order belongs to.
// An identified shopper has a UserID; an anonymous shopper only has a SessionID.
type Owner struct {
	UserID    uint   `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// User returns an identified owner
func User(id uint) Owner {
	return Owner{UserID: id}
}

// Anonymous returns a session-scoped owner
func Anonymous(sessionID string) Owner {
	return Owner{SessionID: sessionID}
}

// Identified reports whether the owner is a known user account
func (o Owner) Identified() bool {
	return o.UserID != 0
}

// Valid reports whether the owner can be resolved to any cart at all
func (o Owner) Valid() bool {
	return o.Identified() || o.SessionID != ""
}

func (o Owner) String() string {
	if o.Identified() {
		return fmt.Sprintf("user:%d", o.UserID)
	}
	return fmt.Sprintf("session:%s", o.SessionID)
}
