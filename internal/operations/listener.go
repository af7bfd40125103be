package operations

import (
	"sync"
	"time"
)

// EventType is one of the four lifecycle notifications of a batch
type EventType int

const (
	EventStarted EventType = iota
	EventProgress
	EventCompleted
	EventFailed
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether t ends an operation
func (t EventType) Terminal() bool {
	return t == EventCompleted || t == EventFailed
}

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Event is a single lifecycle notification
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Listener receives the lifecycle of one batch. Exactly one of OnCompleted
// or OnFailed is called, after OnStarted and any OnProgress calls.
type Listener interface {
	OnStarted(message string)
	OnProgress(message string)
	OnCompleted(message string)
	OnFailed(message string)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Started   func(message string)
	Progress  func(message string)
	Completed func(message string)
	Failed    func(message string)
}

func (f ListenerFuncs) OnStarted(message string) {
	if f.Started != nil {
		f.Started(message)
	}
}

func (f ListenerFuncs) OnProgress(message string) {
	if f.Progress != nil {
		f.Progress(message)
	}
}

func (f ListenerFuncs) OnCompleted(message string) {
	if f.Completed != nil {
		f.Completed(message)
	}
}

func (f ListenerFuncs) OnFailed(message string) {
	if f.Failed != nil {
		f.Failed(message)
	}
}

// DefaultChannelBuffer is the event buffer used when NewChannelListener gets a non-positive size
const DefaultChannelBuffer = 16

// ChannelListener turns lifecycle callbacks into a stream of Events.
// The channel is closed after the terminal event. The consumer must keep
// draining it or the worker blocks once the buffer is full.
type ChannelListener struct {
	mu     sync.Mutex
	events chan Event
	closed bool
	now    func() time.Time
}

func NewChannelListener(buffer int) *ChannelListener {
	if buffer <= 0 {
		buffer = DefaultChannelBuffer
	}
	return &ChannelListener{events: make(chan Event, buffer), now: time.Now}
}

// Events returns the receive side of the stream
func (l *ChannelListener) Events() <-chan Event {
	return l.events
}

func (l *ChannelListener) OnStarted(message string)   { l.send(EventStarted, message) }
func (l *ChannelListener) OnProgress(message string)  { l.send(EventProgress, message) }
func (l *ChannelListener) OnCompleted(message string) { l.send(EventCompleted, message) }
func (l *ChannelListener) OnFailed(message string)    { l.send(EventFailed, message) }

func (l *ChannelListener) send(t EventType, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.events <- Event{Type: t, Message: message, Time: l.now()}
	if t.Terminal() {
		l.closed = true
		close(l.events)
	}
}
