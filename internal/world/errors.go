package world

import (
	"fmt"
	"strings"
)

// EventError is a runtime error caught while dispatching one event.
type EventError struct {
	Instance int
	Object   string
	Event    string
	Err      error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("%s.%s (instance %d): %v", e.Object, e.Event, e.Instance, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

// EventErrors collects every event that failed during one Step or Draw.
type EventErrors struct {
	Errors []*EventError
}

func (e *EventErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	lines := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		lines[i] = err.Error()
	}
	return fmt.Sprintf("%d events failed:\n%s", len(e.Errors), strings.Join(lines, "\n"))
}

func (e *EventErrors) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		out[i] = err
	}
	return out
}
