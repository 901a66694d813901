// Package model defines the core affinity data types.
package model

import (
	"strings"

	"github.com/pkg/errors"
)

// Record is the assistant's stance toward one identity.
type Record struct {
	Favour       int    `json:"favour" yaml:"favour"`
	Attitude     string `json:"attitude" yaml:"attitude"`
	Relationship string `json:"relationship" yaml:"relationship"`
}

// Entry pairs a stored record with its key.
type Entry struct {
	Key    Key    `json:"key" yaml:"key"`
	Record Record `json:"record" yaml:"record"`
}

// DefaultRecord is the record handed out for identities that were never set.
var DefaultRecord = Record{Favour: 0, Attitude: "neutral", Relationship: "stranger"}

// Fill returns r with empty text fields taken from def.
func (r Record) Fill(def Record) Record {
	if strings.TrimSpace(r.Attitude) == "" {
		r.Attitude = def.Attitude
	}
	if strings.TrimSpace(r.Relationship) == "" {
		r.Relationship = def.Relationship
	}
	return r
}

// KeySeparator joins session and user IDs in session-scoped keys. It is not
// accepted inside either ID, so global and session keys cannot collide.
const KeySeparator = "\x1f"

// Key is the lookup key into a state store.
type Key string

// ErrInvalidIdentity is returned for IDs that cannot form a key.
var ErrInvalidIdentity = errors.New("invalid identity")

// Identity names the user a record belongs to, optionally within a session.
type Identity struct {
	UserID    string
	SessionID string
}

// Key derives the store key. When sessionScoped is false, or the identity
// has no session, the key is the user ID alone.
func (id Identity) Key(sessionScoped bool) (Key, error) {
	if id.UserID == "" {
		return "", errors.Wrap(ErrInvalidIdentity, "empty user id")
	}
	if strings.Contains(id.UserID, KeySeparator) {
		return "", errors.Wrapf(ErrInvalidIdentity, "user id %q contains separator", id.UserID)
	}
	if !sessionScoped || id.SessionID == "" {
		return Key(id.UserID), nil
	}
	if strings.Contains(id.SessionID, KeySeparator) {
		return "", errors.Wrapf(ErrInvalidIdentity, "session id %q contains separator", id.SessionID)
	}
	return Key(id.SessionID + KeySeparator + id.UserID), nil
}

// Split reports the session and user parts of k. Global keys have no session.
func (k Key) Split() (sessionID, userID string) {
	if i := strings.Index(string(k), KeySeparator); i >= 0 {
		return string(k[:i]), string(k[i+len(KeySeparator):])
	}
	return "", string(k)
}

// UserID returns the user part of k.
func (k Key) UserID() string {
	_, u := k.Split()
	return u
}
