package visit

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ErrInvalidTransition is returned for status changes the visit lifecycle
// does not allow, and for edits to a closed visit.
var ErrInvalidTransition = errors.New("invalid visit status transition")

var progress = map[Status]int{
	StatusScheduled:  0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

// ParseStatus accepts any casing and "_" or " " in place of "-".
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	st := Status(norm)
	if !st.Valid() {
		return "", fmt.Errorf("unknown visit status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := progress[s]
	return ok || s == StatusCancelled
}

// Closed reports whether responses can no longer change.
func (s Status) Closed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether a visit may move from one status to
// another. Progress only moves forward, cancelling is always possible and
// nothing leaves cancelled. Staying put is allowed.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from == StatusCancelled {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return progress[to] > progress[from]
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
	}
	return nil
}
