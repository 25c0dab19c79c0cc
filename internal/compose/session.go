// internal/compose/session.go
package compose

import (
	"context"
	stderrors "errors"
	"sync"

	"loyalty-admin/internal/audience"
	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/common/metrics"
	"loyalty-admin/internal/common/validation"
	"loyalty-admin/internal/customers"
	"loyalty-admin/internal/dispatch"
)

type State string

const (
	StateIdle            State = "idle"
	StateComposing       State = "composing"
	StateSubmitting      State = "submitting"
	StateSucceeded       State = "succeeded"
	StatePartiallyFailed State = "partially_failed"
	StateFailed          State = "failed"
)

func (s State) terminal() bool {
	return s == StateSucceeded || s == StatePartiallyFailed || s == StateFailed
}

var (
	ErrNotOpen         = stderrors.New("compose session is not open")
	ErrSubmitCancelled = stderrors.New("submission was cancelled")
)

// Dispatcher is the part of dispatch.Dispatcher a session needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, title, body string, tokens []string) (*dispatch.Summary, error)
}

type form struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Session drives one compose-and-send surface:
// Idle -> Composing -> Submitting -> {Succeeded | PartiallyFailed | Failed}.
// Editing the title or body in a terminal state moves back to Composing for a
// fresh dispatch; LastSummary keeps the previous result until the next dispatch finishes.
// Close returns to Idle from anywhere.
type Session struct {
	source     customers.Source
	dispatcher Dispatcher
	logger     logger.Logger

	mu       sync.Mutex
	state    State
	selector *audience.Selector
	form     form
	last     *dispatch.Summary
	cancel   context.CancelFunc
	// attempt is bumped whenever an outstanding submit must be discarded.
	attempt uint64
}

func NewSession(source customers.Source, dispatcher Dispatcher, log logger.Logger) *Session {
	return &Session{
		source:     source,
		dispatcher: dispatcher,
		logger:     logger.Component(log, "compose"),
		state:      StateIdle,
		selector:   audience.NewSelector(nil),
	}
}

// Open loads the customer population and starts a blank form.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return errors.NewSubmitInProgressError()
	}
	s.mu.Unlock()

	population, err := s.source.FetchCustomers(ctx)
	if err != nil {
		s.logger.Error("Failed to load customers", map[string]interface{}{"error": err})
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewCustomerFetchError("source", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return errors.NewSubmitInProgressError()
	}
	s.selector = audience.NewSelector(population)
	s.form = form{}
	s.last = nil
	s.state = StateComposing

	s.logger.Info("Compose session opened", map[string]interface{}{"customers": len(population)})
	return nil
}

func (s *Session) SetTitle(title string) error {
	return s.edit(func() { s.form.Title = title })
}

func (s *Session) SetBody(body string) error {
	return s.edit(func() { s.form.Body = body })
}

func (s *Session) edit(apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateIdle:
		return ErrNotOpen
	case s.state == StateSubmitting:
		return errors.NewSubmitInProgressError()
	case s.state.terminal():
		s.state = StateComposing
	}
	apply()
	return nil
}

// Selector exposes the audience selection of the open form.
func (s *Session) Selector() *audience.Selector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastSummary is the summary of the most recent finished dispatch, or nil.
func (s *Session) LastSummary() *dispatch.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	return &cp
}

// Submit validates the form, resolves the audience and dispatches. Local
// errors leave the session Composing. Only one submit may be outstanding.
func (s *Session) Submit(ctx context.Context) (*dispatch.Summary, error) {
	s.mu.Lock()
	switch {
	case s.state == StateIdle:
		s.mu.Unlock()
		return nil, ErrNotOpen
	case s.state == StateSubmitting:
		s.mu.Unlock()
		return nil, errors.NewSubmitInProgressError()
	}
	s.state = StateComposing

	f := s.form
	tokens, err := s.prepareLocked(f)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("Submission blocked", map[string]interface{}{"error_code": errors.CodeOf(err)})
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.attempt++
	attempt := s.attempt
	s.state = StateSubmitting
	s.mu.Unlock()

	summary, err := s.dispatcher.Dispatch(subCtx, f.Title, f.Body, tokens)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt != attempt {
		return nil, ErrSubmitCancelled
	}
	s.cancel = nil

	if err != nil && errors.IsLocal(err) {
		s.state = StateComposing
		return nil, err
	}
	if summary == nil {
		summary = &dispatch.Summary{Outcome: dispatch.OutcomeFailed}
		if err != nil {
			summary.FatalError = err.Error()
		}
	}

	s.last = summary
	s.state = stateFor(summary.Outcome)
	return summary, err
}

func (s *Session) prepareLocked(f form) ([]string, error) {
	result, err := validation.ComposeForm.Validate(f)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, errors.NewValidationError(result.FieldMessages())
	}

	recipients, err := s.selector.Resolve()
	if err != nil {
		return nil, err
	}
	metrics.AudienceSize.Observe(float64(len(recipients)))

	return audience.CollectTokens(recipients)
}

// Cancel abandons an outstanding submit and returns to Composing. It reports
// whether there was anything to cancel.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitting {
		return false
	}
	s.abortLocked()
	s.state = StateComposing
	s.logger.Info("Submission cancelled", nil)
	return true
}

// Close discards the form, selection and filters and returns to Idle.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortLocked()
	s.selector = audience.NewSelector(nil)
	s.form = form{}
	s.last = nil
	s.state = StateIdle
}

func (s *Session) abortLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.attempt++
}

func stateFor(o dispatch.Outcome) State {
	switch o {
	case dispatch.OutcomeSucceeded:
		return StateSucceeded
	case dispatch.OutcomePartiallyFailed:
		return StatePartiallyFailed
	default:
		return StateFailed
	}
}
