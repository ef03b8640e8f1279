// Package status carries short human-readable progress and error messages
// from the correction engine to whatever is showing them to the operator.
//
// Messages are advisory. A sink must not block and must never feed back into
// the engine's state.
package status

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Message is one status line. Alert marks lines that should draw the
// operator's attention (the terminal bell in a console front end).
type Message struct {
	Text  string
	Alert bool
}

func (m Message) String() string {
	return m.Text
}

// Sink receives status messages.
type Sink interface {
	Post(Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Message)

// Post calls f(m).
func (f SinkFunc) Post(m Message) { f(m) }

// Discard drops every message.
var Discard Sink = SinkFunc(func(Message) {})

// Infof posts a plain message.
func Infof(s Sink, format string, args ...any) {
	post(s, false, format, args...)
}

// Alertf posts a message that should ring the bell.
func Alertf(s Sink, format string, args ...any) {
	post(s, true, format, args...)
}

func post(s Sink, alert bool, format string, args ...any) {
	if s == nil {
		return
	}
	s.Post(Message{Text: fmt.Sprintf(format, args...), Alert: alert})
}

// LogSink forwards messages to a structured logger. Alerts are logged at
// warn level.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink wraps logger; a nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Post implements Sink.
func (l *LogSink) Post(m Message) {
	level := slog.LevelInfo
	if m.Alert {
		level = slog.LevelWarn
	}
	l.logger.Log(context.Background(), level, m.Text)
}

// WriterSink prints each message on its own line, prefixing alerts with
// the BEL character when Bell is set.
type WriterSink struct {
	mu   sync.Mutex
	w    io.Writer
	Bell bool
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer, bell bool) *WriterSink {
	return &WriterSink{w: w, Bell: bell}
}

// Post implements Sink.
func (ws *WriterSink) Post(m Message) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	text := strings.TrimRight(m.Text, "\n")
	if m.Alert && ws.Bell {
		text = "\a" + text
	}
	fmt.Fprintln(ws.w, text)
}

// Recorder keeps every message it receives, in order.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Post implements Sink.
func (r *Recorder) Post(m Message) {
	r.mu.Lock()
	r.messages = append(r.messages, m)
	r.mu.Unlock()
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent message, or a zero Message.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}
	}
	return r.messages[len(r.messages)-1]
}

// Contains reports whether any recorded message contains substr.
func (r *Recorder) Contains(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

// Reset forgets all recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}

// Tee posts every message to each of the sinks.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(m Message) {
		for _, s := range sinks {
			if s != nil {
				s.Post(m)
			}
		}
	})
}
