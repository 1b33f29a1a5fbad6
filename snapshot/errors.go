package snapshot

import (
	"errors"
	"fmt"
)

// Error kinds. Every pipeline failure carries exactly one of them; match with
// errors.Is.
var (
	// ErrIo indicates the sink or source could not be reached or written.
	ErrIo = errors.New("io")
	// ErrParse indicates malformed snapshot bytes.
	ErrParse = errors.New("parse")
	// ErrDecode indicates well-formed data that cannot be interpreted, such as
	// an unregistered type key.
	ErrDecode = errors.New("decode")
	// ErrEncode indicates the snapshot could not be serialized.
	ErrEncode = errors.New("encode")
	// ErrReconstruct indicates decoded data could not be written into the
	// live store.
	ErrReconstruct = errors.New("reconstruct")
	// ErrInProgress is returned when a pipeline is started while another of
	// the same kind is active on the same store.
	ErrInProgress = errors.New("pipeline already in progress")
)

// Error describes a failed pipeline step.
type Error struct {
	Op    string // "save" or "load"
	Stage string
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{e.Kind, e.Err}
}

// Fail builds an *Error. A nil err yields nil.
func Fail(op, stage string, kind, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Op: op, Stage: stage, Kind: kind, Err: err}
}
