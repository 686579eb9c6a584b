package model

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by validation failures
var ErrInvalid = errors.New("invalid task")

// Validate checks that status and priority, when set, are known values
func (f Fields) Validate() error {
	return validate(ptrIf(f.Status != "", f.Status), ptrIf(f.Priority != "", f.Priority))
}

// Validate checks the status and priority of a patch
func (p Patch) Validate() error {
	return validate(p.Status, p.Priority)
}

func validate(s *Status, p *Priority) error {
	if s != nil && !s.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, *s)
	}
	if p != nil && !p.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalid, *p)
	}
	return nil
}

func ptrIf[T any](ok bool, v T) *T {
	if !ok {
		return nil
	}
	return &v
}
