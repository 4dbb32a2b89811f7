package video

import "time"

// Kind distinguishes progress from log events.
type Kind int

const (
	// KindProgress carries Percent.
	KindProgress Kind = iota
	// KindLog carries Level and Message.
	KindLog
)

// Level is the severity of a log event.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
	LevelSuccess Level = "SUCCESS"
)

// Event is one message from a running job.
type Event struct {
	Kind    Kind
	Job     string
	Percent int
	Level   Level
	Message string
	// Frame is the number of frames processed when the event was emitted.
	Frame int
	Time  time.Time
}

// Sink receives events synchronously on the job's goroutine.
type Sink interface {
	Emit(Event)
}

// FuncSink forwards events to a pair of callbacks. Either may be nil.
type FuncSink struct {
	OnProgress func(percent int)
	OnLog      func(level Level, message string)
}

// Emit implements Sink.
func (s FuncSink) Emit(e Event) {
	switch e.Kind {
	case KindProgress:
		if s.OnProgress != nil {
			s.OnProgress(e.Percent)
		}
	case KindLog:
		if s.OnLog != nil {
			s.OnLog(e.Level, e.Message)
		}
	}
}

// ChannelSink sends every event on a channel. Emit blocks while the channel
// is full, so a slow consumer slows the job rather than losing events.
type ChannelSink chan<- Event

// Emit implements Sink.
func (s ChannelSink) Emit(e Event) {
	s <- e
}

type discardSink struct{}

func (discardSink) Emit(Event) {}
