package model

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrTriageNotFound = goerr.New("triage record not found")
	ErrAlreadyDecided = goerr.New("triage record already decided")
)

// IsTriageNotFound reports whether err wraps ErrTriageNotFound
func IsTriageNotFound(err error) bool {
	return errors.Is(err, ErrTriageNotFound)
}

// IsAlreadyDecided reports whether err wraps ErrAlreadyDecided
func IsAlreadyDecided(err error) bool {
	return errors.Is(err, ErrAlreadyDecided)
}
