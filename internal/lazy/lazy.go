// Package lazy is the residency state machine of a streamed zone.
//
//	Ghost --RequestHydrate--> Loading --Complete--> Ready
//	  ^                          |  \
//	  +--------Revert------------+   +--Fail--> Failed --Retry--> Loading
package lazy

import (
	"errors"
	"fmt"

	"github.com/OCAP2/portalview/pkg/core"
)

// ErrInvalidTransition is returned for a transition the current status does not allow.
var ErrInvalidTransition = errors.New("invalid lazy transition")

// Status of a zone's content.
type Status int

const (
	// Ghost: only the skeleton (id, bound) is known.
	Ghost Status = iota
	// Loading: a hydrate request is in flight.
	Loading
	// Ready: content applied, the zone can be traversed.
	Ready
	// Failed: the load failed. Terminal until Retry.
	Failed
)

func (s Status) String() string {
	switch s {
	case Ghost:
		return "ghost"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is the zero-value Ghost state of one zone. It is owned by the frame thread.
type State struct {
	status Status
	code   core.ErrorCode
}

// NewReady returns a state for content that is resident from the start.
func NewReady() State { return State{status: Ready} }

// Status returns the current status.
func (s *State) Status() Status { return s.status }

// FailureCode is the code of the last Fail, empty otherwise.
func (s *State) FailureCode() core.ErrorCode { return s.code }

// RequestHydrate moves Ghost to Loading. It returns true only on that transition, so
// a zone visited many times while loading asks for its content once.
func (s *State) RequestHydrate() bool {
	if s.status != Ghost {
		return false
	}
	s.status = Loading
	return true
}

// Revert moves Loading back to Ghost when the request could not be enqueued.
func (s *State) Revert() error {
	if s.status != Loading {
		return s.invalid("revert")
	}
	s.status = Ghost
	return nil
}

// Complete marks the content applied. Ghost is accepted so content pushed without
// a request (seeding, tests) can be applied directly.
func (s *State) Complete() error {
	switch s.status {
	case Ghost, Loading:
		s.status = Ready
		s.code = core.ErrorCodeNone
		return nil
	default:
		return s.invalid("complete")
	}
}

// Fail records a load failure.
func (s *State) Fail(code core.ErrorCode) error {
	if s.status != Loading {
		return s.invalid("fail")
	}
	s.status = Failed
	s.code = code
	return nil
}

// Retry moves Failed back to Loading. The caller issues the new request.
func (s *State) Retry() error {
	if s.status != Failed {
		return s.invalid("retry")
	}
	s.status = Loading
	s.code = core.ErrorCodeNone
	return nil
}

func (s *State) invalid(op string) error {
	return fmt.Errorf("%w: %s from %v", ErrInvalidTransition, op, s.status)
}
