package service

import (
	"errors"
	"fmt"

	"agenda/internal/models"
)

var (
	ErrTimeConflict       = errors.New("time conflict with another show")
	ErrInvalidShow        = errors.New("invalid show")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBlocked        = errors.New("user is blocked")
)

// ConflictError reports the show a rejected save collided with.
type ConflictError struct {
	With models.Show
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: show %d on %s %s-%s", ErrTimeConflict, e.With.ID, e.With.Date, e.With.StartTime, e.With.EndTime)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrTimeConflict
}

func invalidShow(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidShow, reason)
}

func invalidInput(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}
