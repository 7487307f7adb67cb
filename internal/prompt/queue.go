// Package prompt is the single-slot request/response channel between editor
// flows that need an answer from the user and the presentation layer.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventEmitter allows the queue to notify the presentation layer.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

const (
	EventOpened   = "prompt:opened"
	EventResolved = "prompt:resolved"
)

// Kind is the input shape a request expects.
type Kind string

const (
	KindMessage Kind = "message"
	KindConfirm Kind = "confirm"
	KindChoice  Kind = "choice"
	KindText    Kind = "text"
)

// Answers to a confirm request.
const (
	Yes = "yes"
	No  = "no"
)

var (
	ErrNoSuchPrompt  = errors.New("no such prompt")
	ErrInvalidAnswer = errors.New("invalid answer")
)

// Choice is one fixed option of a choice request.
type Choice struct {
	Tag   string `json:"tag"`
	Label string `json:"label"`
}

// Request is a pending need for user input.
type Request struct {
	ID          string   `json:"id"`
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	Placeholder string   `json:"placeholder,omitempty"`
	Choices     []Choice `json:"choices,omitempty"`
	CreatedAt   string   `json:"createdAt"`
}

// Status is how a request ended.
type Status int

const (
	StatusSubmitted Status = iota + 1
	StatusCancelled
	StatusDismissed
	StatusSuperseded
)

func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusCancelled:
		return "cancelled"
	case StatusDismissed:
		return "dismissed"
	case StatusSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Outcome is the resolution of a request.
type Outcome struct {
	Status Status `json:"status"`
	Value  string `json:"value,omitempty"`
}

// Invoked reports whether the waiting flow should continue. Dismissed and
// superseded requests never continue.
func (o Outcome) Invoked() bool {
	return o.Status == StatusSubmitted || o.Status == StatusCancelled
}

// Confirmed reports a submitted "yes".
func (o Outcome) Confirmed() bool {
	return o.Status == StatusSubmitted && o.Value == Yes
}

// Ticket is the waiting side of one request.
type Ticket struct {
	req  Request
	done chan Outcome
	q    *Queue
}

func (t *Ticket) Request() Request { return t.req }

// Wait blocks until the request is resolved. Cancelling ctx dismisses it.
func (t *Ticket) Wait(ctx context.Context) Outcome {
	select {
	case o := <-t.done:
		return o
	case <-ctx.Done():
		t.q.resolve(ctx, t.req.ID, Outcome{Status: StatusDismissed})
		return <-t.done
	}
}

// Queue holds at most one outstanding request.
type Queue struct {
	mu      sync.Mutex
	current *Ticket
	emitter EventEmitter
}

func NewQueue(emitter EventEmitter) *Queue {
	return &Queue{emitter: emitter}
}

// Open publishes req, superseding any outstanding request.
func (q *Queue) Open(ctx context.Context, req Request) *Ticket {
	req.ID = uuid.New().String()
	req.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	t := &Ticket{req: req, done: make(chan Outcome, 1), q: q}

	q.mu.Lock()
	prev := q.current
	q.current = t
	q.mu.Unlock()

	if prev != nil {
		prev.done <- Outcome{Status: StatusSuperseded}
		q.emit(ctx, EventResolved, resolvedEvent{ID: prev.req.ID, Status: StatusSuperseded})
	}
	q.emit(ctx, EventOpened, req)
	return t
}

// Ask opens req and waits for its outcome.
func (q *Queue) Ask(ctx context.Context, req Request) Outcome {
	return q.Open(ctx, req).Wait(ctx)
}

// Pending returns the outstanding request, if any.
func (q *Queue) Pending() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return Request{}, false
	}
	return q.current.req, true
}

// Submit answers the outstanding request. Confirm answers must be yes or no,
// choice answers one of the request's tags; text passes through untouched.
func (q *Queue) Submit(ctx context.Context, id, value string) error {
	req, ok := q.Pending()
	if !ok || req.ID != id {
		return fmt.Errorf("submit %s: %w", id, ErrNoSuchPrompt)
	}
	switch req.Kind {
	case KindConfirm:
		value = strings.ToLower(strings.TrimSpace(value))
		if value != Yes && value != No {
			return fmt.Errorf("submit %s: %w: want %q or %q", id, ErrInvalidAnswer, Yes, No)
		}
	case KindChoice:
		if !slices.ContainsFunc(req.Choices, func(c Choice) bool { return c.Tag == value }) {
			return fmt.Errorf("submit %s: %w: %q is not a choice", id, ErrInvalidAnswer, value)
		}
	case KindMessage, KindText:
	}
	if !q.resolve(ctx, id, Outcome{Status: StatusSubmitted, Value: value}) {
		return fmt.Errorf("submit %s: %w", id, ErrNoSuchPrompt)
	}
	return nil
}

// Cancel resolves the outstanding request as cancelled.
func (q *Queue) Cancel(ctx context.Context, id string) error {
	if !q.resolve(ctx, id, Outcome{Status: StatusCancelled}) {
		return fmt.Errorf("cancel %s: %w", id, ErrNoSuchPrompt)
	}
	return nil
}

// Dismiss closes the outstanding request without continuing its flow.
func (q *Queue) Dismiss(ctx context.Context, id string) error {
	if !q.resolve(ctx, id, Outcome{Status: StatusDismissed}) {
		return fmt.Errorf("dismiss %s: %w", id, ErrNoSuchPrompt)
	}
	return nil
}

type resolvedEvent struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

func (q *Queue) resolve(ctx context.Context, id string, o Outcome) bool {
	q.mu.Lock()
	t := q.current
	if t == nil || t.req.ID != id {
		q.mu.Unlock()
		return false
	}
	q.current = nil
	q.mu.Unlock()

	t.done <- o
	q.emit(ctx, EventResolved, resolvedEvent{ID: id, Status: o.Status})
	return true
}

func (q *Queue) emit(ctx context.Context, event string, data any) {
	if q.emitter != nil {
		q.emitter.Emit(context.WithoutCancel(ctx), event, data)
	}
}
