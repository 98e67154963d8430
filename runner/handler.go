package runner

import (
	"context"
	"errors"
)

// Runner sentinel errors.
var (
	// ErrNoDatabase is returned when a Runner has no database configured.
	ErrNoDatabase = errors.New("runner: no database configured")

	// ErrMaxFailures stops a run once the failure limit is reached.
	ErrMaxFailures = errors.New("runner: maximum failures reached")

	// ErrExprNotBool is returned when an expectation evaluates to a
	// non-boolean value.
	ErrExprNotBool = errors.New("runner: expectation did not return a boolean")
)

// Handler receives events during a run.
type Handler interface {
	// Event is called for every event. Returning an error stops the run.
	Event(ctx context.Context, event Event, result *Result) error

	// Err reports out-of-band error text (e.g., engine warnings).
	Err(text string) error
}

// MultiHandler dispatches events to multiple handlers in order, stopping
// at the first error.
type MultiHandler struct {
	handlers []Handler
}

// NewMultiHandler creates a handler that fans out to the given handlers.
func NewMultiHandler(handlers ...Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Event dispatches to each handler until one returns an error.
func (m *MultiHandler) Event(ctx context.Context, event Event, result *Result) error {
	for _, h := range m.handlers {
		err := h.Event(ctx, event, result)
		if err != nil {
			return err
		}
	}

	return nil
}

// Err dispatches error text to each handler.
func (m *MultiHandler) Err(text string) error {
	for _, h := range m.handlers {
		err := h.Err(text)
		if err != nil {
			return err
		}
	}

	return nil
}

// ResultHandler records events into the Result.
type ResultHandler struct{}

// NewResultHandler creates a handler that records events.
func NewResultHandler() *ResultHandler {
	return &ResultHandler{}
}

// Event adds the event to the result.
func (h *ResultHandler) Event(_ context.Context, event Event, result *Result) error {
	result.Add(event)

	return nil
}

// Err is a no-op for the result handler.
func (h *ResultHandler) Err(_ string) error {
	return nil
}

// StopOnFailHandler stops the run after max failures. A max of 0 disables
// the limit.
type StopOnFailHandler struct {
	max int
}

// NewStopOnFailHandler creates a handler that enforces a failure limit.
func NewStopOnFailHandler(maxFailures int) *StopOnFailHandler {
	return &StopOnFailHandler{max: maxFailures}
}

// Event returns ErrMaxFailures once the limit is reached.
func (h *StopOnFailHandler) Event(_ context.Context, event Event, result *Result) error {
	if h.max <= 0 {
		return nil
	}

	if !event.Action.IsTerminal() {
		return nil
	}

	if result.Failed+result.Errors >= h.max {
		return ErrMaxFailures
	}

	return nil
}

// Err is a no-op for the stop handler.
func (h *StopOnFailHandler) Err(_ string) error {
	return nil
}
