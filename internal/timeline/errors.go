package timeline

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownElement = errors.New("unknown element")
	ErrLocked         = errors.New("timeline is locked")
	ErrOverlap        = errors.New("overlapping elements")
	ErrInvalidElement = errors.New("invalid element")
)

// InvariantError reports two elements sharing a track with overlapping
// intervals.
type InvariantError struct {
	Track int
	A, B  string
}

func (e *InvariantError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: track %d: %s and %s", ErrOverlap, e.Track, e.A, e.B)
}

func (e *InvariantError) Unwrap() error { return ErrOverlap }

// RejectReason explains why an edit was not applied. Rejections are
// expected outcomes of invalid placement, not errors.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectCollision
	RejectUnknown
	RejectLocked
	RejectEmpty
	RejectInvalid
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectCollision:
		return "collision"
	case RejectUnknown:
		return "unknown element"
	case RejectLocked:
		return "locked"
	case RejectEmpty:
		return "nothing to edit"
	case RejectInvalid:
		return "invalid delta"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}
