package valueobjects

import (
	"errors"
	"strings"
)

// ErrEmptyIdentity is returned when no identity was supplied.
var ErrEmptyIdentity = errors.New("identity is required")

// Identity is the user-facing key that scopes an account and its records.
type Identity struct {
	value string
}

// NewIdentity trims surrounding space and rejects empty values.
func NewIdentity(raw string) (Identity, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Identity{}, ErrEmptyIdentity
	}
	return Identity{value: v}, nil
}

// MustIdentity panics on an empty identity. For tests and fixtures.
func MustIdentity(raw string) Identity {
	id, err := NewIdentity(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (i Identity) String() string { return i.value }

func (i Identity) IsZero() bool { return i.value == "" }

func (i Identity) Equals(other Identity) bool { return i.value == other.value }
