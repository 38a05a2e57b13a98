// Package journal persists snapshots of the attack records kept by the
// DDoS strategy, one per prefix and rate limiting cycle.
package journal

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown journal backend")

// FaceSnapshot is the per-face state of an attack record.
type FaceSnapshot struct {
	Face    uint64  `json:"face"`
	Weight  float64 `json:"weight"`
	Marked  uint64  `json:"marked"`
	Allowed int     `json:"allowed"`
}

// Snapshot is the state of one attack record at the end of a cycle.
type Snapshot struct {
	Time             time.Time      `json:"time"`
	Router           string         `json:"router"`
	Prefix           string         `json:"prefix"`
	Type             string         `json:"type"`
	FakeNackCounter  uint64         `json:"fake_nack_counter"`
	ValidNackCounter uint64         `json:"valid_nack_counter"`
	RateLimiting     bool           `json:"rate_limiting"`
	Tolerance        uint64         `json:"tolerance"`
	Faces            []FaceSnapshot `json:"faces"`
}

// Journal stores snapshots. A snapshot with the same time, router and prefix
// as a stored one replaces it. List returns snapshots by time, then router
// and prefix.
type Journal interface {
	fmt.Stringer
	Put(s *Snapshot) error
	List() ([]*Snapshot, error)
	Close() error
}

// Open opens a journal backend. Path is ignored by the memory and none backends.
func Open(backend string, path string) (Journal, error) {
	switch backend {
	case "", "none":
		return Discard{}, nil
	case "memory":
		return NewMemoryJournal(), nil
	case "badger":
		return NewBadgerJournal(path)
	case "sqlite":
		return NewSqliteJournal(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// Discard drops every snapshot.
type Discard struct{}

func (Discard) String() string {
	return "journal-none"
}

func (Discard) Put(*Snapshot) error {
	return nil
}

func (Discard) List() ([]*Snapshot, error) {
	return nil, nil
}

func (Discard) Close() error {
	return nil
}
