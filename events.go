package invoice2pdf

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Event is a status line or progress update emitted during a run.
type Event struct {
	Time        time.Time
	Level       slog.Level
	Message     string
	Progress    float64 // 0-100, meaningful when HasProgress
	HasProgress bool
}

// Sink receives run events. Calls are serialized; a Sink should return
// quickly since the stage that emitted the event waits for it.
type Sink func(Event)

// ChannelSink returns a Sink that sends events to ch without blocking.
// Events are dropped while ch is full.
func ChannelSink(ch chan<- Event) Sink {
	return func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}
}

// Progress milestones of a run.
const (
	progressStart      = 0
	progressExtracting = 10
	progressLocating   = 30
	progressDating     = 40
	progressConverting = 50
	progressAssembling = 80
	progressDone       = 100
)

// reporter is the run context handed to every stage: a logger carrying the
// run ID and the caller's sink. Safe for concurrent use.
type reporter struct {
	mu   sync.Mutex
	log  *slog.Logger
	sink Sink
	now  func() time.Time
}

func newReporter(log *slog.Logger, sink Sink, now func() time.Time) *reporter {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if now == nil {
		now = time.Now
	}
	return &reporter{log: log, sink: sink, now: now}
}

// Debug logs without notifying the sink.
func (r *reporter) Debug(msg string, args ...any) {
	r.log.Debug(msg, args...)
}

func (r *reporter) Info(msg string, args ...any) {
	r.log.Info(msg, args...)
	r.emit(Event{Level: slog.LevelInfo, Message: eventMessage(msg, args)})
}

func (r *reporter) Warn(msg string, args ...any) {
	r.log.Warn(msg, args...)
	r.emit(Event{Level: slog.LevelWarn, Message: eventMessage(msg, args)})
}

func (r *reporter) Error(msg string, args ...any) {
	r.log.Error(msg, args...)
	r.emit(Event{Level: slog.LevelError, Message: eventMessage(msg, args)})
}

// Progress reports completion in percent together with a status line.
func (r *reporter) Progress(pct float64, msg string) {
	r.log.Debug(msg, "progress", pct)
	r.emit(Event{Level: slog.LevelInfo, Message: msg, Progress: pct, HasProgress: true})
}

func (r *reporter) emit(e Event) {
	if r.sink == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Time = r.now()
	r.sink(e)
}

// eventMessage renders "msg (key=value, ...)" from slog-style arguments.
func eventMessage(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}

	rec := slog.NewRecord(time.Time{}, slog.LevelInfo, msg, 0)
	rec.Add(args...)

	parts := make([]string, 0, rec.NumAttrs())
	rec.Attrs(func(a slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s=%v", a.Key, a.Value.Resolve()))
		return true
	})
	return msg + " (" + strings.Join(parts, ", ") + ")"
}
