package operations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when an Operation is moved out of order
var ErrInvalidTransition = errors.New("invalid operation state transition")

// State of an Operation. Idle -> Running -> Completed | Failed.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Finished reports whether s is terminal
func (s State) Finished() bool {
	return s == StateCompleted || s == StateFailed
}

// Kind names the batch action
type Kind string

const (
	KindUpload   Kind = "upload"
	KindDownload Kind = "download"
	KindDelete   Kind = "delete"
)

// ItemError records why one item of a batch failed
type ItemError struct {
	Item string
	Err  error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Item, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Result summarises a batch
type Result struct {
	Total     int
	Succeeded int
	Failures  []ItemError
}

// Operation tracks one batch from submission to its terminal event.
// It is safe for concurrent use.
type Operation struct {
	ID     string
	Kind   Kind
	Bucket string

	mu         sync.Mutex
	state      State
	events     []Event
	result     Result
	createdAt  time.Time
	finishedAt time.Time
	done       chan struct{}
	now        func() time.Time
}

func newOperation(kind Kind, bucket string, total int) *Operation {
	return &Operation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Bucket:    bucket,
		createdAt: time.Now(),
		result:    Result{Total: total},
		done:      make(chan struct{}),
		now:       time.Now,
	}
}

func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Done is closed after the terminal event has been dispatched
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation finishes or ctx is done
func (o *Operation) Wait(ctx context.Context) (Result, error) {
	select {
	case <-o.done:
		return o.Result(), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns a copy of the counters and failures recorded so far
func (o *Operation) Result() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	r := o.result
	r.Failures = append([]ItemError(nil), o.result.Failures...)
	return r
}

// Events returns a copy of every event recorded so far
func (o *Operation) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}

func (o *Operation) CreatedAt() time.Time {
	return o.createdAt
}

// FinishedAt returns the time of the terminal event, if there was one
func (o *Operation) FinishedAt() (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finishedAt, o.state.Finished()
}

func (o *Operation) start(message string) (Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return Event{}, fmt.Errorf("%w: start from %s", ErrInvalidTransition, o.state)
	}
	o.state = StateRunning
	return o.record(EventStarted, message), nil
}

func (o *Operation) progress(message string) (Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateRunning {
		return Event{}, fmt.Errorf("%w: progress in %s", ErrInvalidTransition, o.state)
	}
	return o.record(EventProgress, message), nil
}

func (o *Operation) succeed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.result.Succeeded++
}

func (o *Operation) fail(item string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.result.Failures = append(o.result.Failures, ItemError{Item: item, Err: err})
}

// finish moves the operation to its terminal state. It can only happen once.
// Done is not closed until release is called.
func (o *Operation) finish(state State, message string) (Event, error) {
	if !state.Finished() {
		return Event{}, fmt.Errorf("%w: %s is not terminal", ErrInvalidTransition, state)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateRunning {
		return Event{}, fmt.Errorf("%w: finish from %s", ErrInvalidTransition, o.state)
	}
	o.state = state
	o.finishedAt = o.now()
	eventType := EventCompleted
	if state == StateFailed {
		eventType = EventFailed
	}
	return o.record(eventType, message), nil
}

func (o *Operation) release() {
	close(o.done)
}

// record expects o.mu to be held
func (o *Operation) record(t EventType, message string) Event {
	ev := Event{Type: t, Message: message, Time: o.now()}
	o.events = append(o.events, ev)
	return ev
}

// Snapshot is the JSON view of an Operation
type Snapshot struct {
	ID         string      `json:"id"`
	Kind       Kind        `json:"kind"`
	Bucket     string      `json:"bucket"`
	State      State       `json:"state"`
	Total      int         `json:"total"`
	Succeeded  int         `json:"succeeded"`
	Failures   []ItemFault `json:"failures,omitempty"`
	Events     []Event     `json:"events"`
	CreatedAt  time.Time   `json:"createdAt"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
}

// ItemFault is the JSON form of an ItemError
type ItemFault struct {
	Item  string `json:"item"`
	Error string `json:"error"`
}

func (o *Operation) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot{
		ID:        o.ID,
		Kind:      o.Kind,
		Bucket:    o.Bucket,
		State:     o.state,
		Total:     o.result.Total,
		Succeeded: o.result.Succeeded,
		Events:    append([]Event(nil), o.events...),
		CreatedAt: o.createdAt,
	}
	for _, f := range o.result.Failures {
		s.Failures = append(s.Failures, ItemFault{Item: f.Item, Error: f.Err.Error()})
	}
	if o.state.Finished() {
		t := o.finishedAt
		s.FinishedAt = &t
	}
	return s
}
