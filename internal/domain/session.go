package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionID groups all segments produced by one ingested recording. It is
// the retrieval isolation boundary: a scoped search never crosses it.
// Threaded explicitly through every call rather than held as ambient state.
type SessionID string

// NewSessionID generates a fresh session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// ParseSessionID validates a caller-supplied session identifier.
func ParseSessionID(s string) (SessionID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid session id %q: %w", s, err)
	}
	return SessionID(s), nil
}

func (s SessionID) String() string { return string(s) }

// IsZero reports whether the id is unset, meaning an unscoped search.
func (s SessionID) IsZero() bool { return s == "" }
