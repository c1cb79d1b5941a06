package agent

import (
	"errors"
	"fmt"
)

// ModelUnavailableError reports that the model backend could not produce a
// usable response.
type ModelUnavailableError struct {
	Provider string
	Err      error
}

func (e *ModelUnavailableError) Error() string {
	if e.Provider == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

// LoopBoundExceededError reports that the model was still requesting tools
// when the round limit was reached.
type LoopBoundExceededError struct {
	Limit int
}

func (e *LoopBoundExceededError) Error() string {
	return fmt.Sprintf("max iterations (%d) exceeded", e.Limit)
}

func unavailable(provider string, err error) error {
	if err == nil {
		return nil
	}
	var mu *ModelUnavailableError
	if errors.As(err, &mu) {
		return err
	}
	return &ModelUnavailableError{Provider: provider, Err: err}
}
