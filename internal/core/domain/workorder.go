package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a work order.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// validTransitions defines the allowed state machine transitions. StatusDone is terminal.
var validTransitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress},
	StatusInProgress: {StatusDone},
}

// ParseStatus returns the status named by s.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.TrimSpace(s)); st {
	case StatusOpen, StatusInProgress, StatusDone:
		return st, true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition, wrapped with the offending
// values, when target is unknown or not reachable from s.
func (s Status) CheckTransition(target string) (Status, error) {
	next, ok := ParseStatus(target)
	if !ok {
		return "", fmt.Errorf("%w: invalid status %q", ErrInvalidTransition, target)
	}
	if !s.CanTransitionTo(next) {
		return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// Priority is the urgency of a work order.
type Priority string

const (
	PriorityLow  Priority = "low"
	PriorityMid  Priority = "mid"
	PriorityHigh Priority = "high"
)

// ParsePriority returns the priority named by s.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMid, PriorityHigh:
		return p, true
	default:
		return "", false
	}
}

// PriorityOrDefault falls back to PriorityMid for empty or unknown input.
func PriorityOrDefault(s string) Priority {
	if p, ok := ParsePriority(s); ok {
		return p
	}
	return PriorityMid
}

// Rank orders priorities for sorting: high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMid:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// WorkOrder is the tracked unit of work.
type WorkOrder struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	CreatedBy   int64     `json:"created_by"`
	AssignedTo  *int64    `json:"assigned_to"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SortMode selects the ordering of list results.
type SortMode string

const (
	SortUpdatedAt SortMode = "updated_at"
	SortCreatedAt SortMode = "created_at"
	SortPriority  SortMode = "priority"
)

// ParseSortMode maps an empty value to SortUpdatedAt.
func ParseSortMode(s string) (SortMode, bool) {
	switch m := SortMode(strings.TrimSpace(s)); m {
	case "":
		return SortUpdatedAt, true
	case SortUpdatedAt, SortCreatedAt, SortPriority:
		return m, true
	default:
		return "", false
	}
}
