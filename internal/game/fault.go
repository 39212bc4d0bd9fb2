package game

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientStack is returned by Seat.Raise when the stack cannot
	// cover the amount.
	ErrInsufficientStack = errors.New("insufficient stack")

	// ErrBetNotAllowed marks a raise that breaks the table's limit rules.
	ErrBetNotAllowed = errors.New("bet not allowed")

	// ErrInvalidResponse marks an answer to an action request that is not a
	// fold, call or raise.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrInvalidConfig is returned by New for an unusable table setup.
	ErrInvalidConfig = errors.New("invalid table config")
)

// FaultKind classifies why a round was aborted
type FaultKind int

const (
	InvalidResponse FaultKind = iota
	BetNotAllowed
	BoundaryFailure
)

var faultKindNames = [...]string{"invalid_response", "bet_not_allowed", "boundary_failure"}

// String returns the string representation of a fault kind
func (k FaultKind) String() string {
	if k < 0 || int(k) >= len(faultKindNames) {
		return "unknown"
	}
	return faultKindNames[k]
}

// MarshalText encodes the fault kind as its name
func (k FaultKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(faultKindNames) {
		return nil, fmt.Errorf("invalid fault kind: %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a fault kind name
func (k *FaultKind) UnmarshalText(text []byte) error {
	for i, name := range faultKindNames {
		if name == string(text) {
			*k = FaultKind(i)
			return nil
		}
	}
	return fmt.Errorf("invalid fault kind: %q", text)
}

// Fault is returned by a Table when a round is aborted. Seat is -1 when the
// fault cannot be attributed to one seat.
type Fault struct {
	Seat int
	Kind FaultKind
	Err  error
}

func (f *Fault) Error() string {
	if f.Seat < 0 {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("seat %d: %s: %v", f.Seat, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// SeatError attributes a boundary failure to a seat. Boundaries that relay
// events to several participants return it so the table can name the
// participant that failed.
type SeatError struct {
	Seat int
	Err  error
}

func (e *SeatError) Error() string {
	return fmt.Sprintf("seat %d: %v", e.Seat, e.Err)
}

func (e *SeatError) Unwrap() error { return e.Err }

// boundaryFault converts a boundary error into a fault, preferring the seat
// named by a SeatError over the seat the event was for.
func boundaryFault(seat int, err error) *Fault {
	var se *SeatError
	if errors.As(err, &se) {
		seat = se.Seat
	}
	return &Fault{Seat: seat, Kind: BoundaryFailure, Err: err}
}
