// -----------------------------------------------------------------------
// Progress Observers - Sinks for pipeline tick and log events
// -----------------------------------------------------------------------

package progress

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/quire/internal/interfaces"
	"github.com/ternarybob/quire/internal/models"
)

// LogObserver writes progress to the structured logger. Ticks are throttled to one per
// interval; the final tick of a run always gets through.
type LogObserver struct {
	logger  arbor.ILogger
	limiter *rate.Limiter
}

var _ interfaces.ProgressObserver = (*LogObserver)(nil)

// NewLogObserver creates a log observer. A zero interval logs every tick.
func NewLogObserver(logger arbor.ILogger, interval time.Duration) *LogObserver {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &LogObserver{logger: logger, limiter: rate.NewLimiter(limit, 1)}
}

func (o *LogObserver) OnTick(ctx context.Context, e models.TickEvent) {
	if e.Done < e.Total && !o.limiter.Allow() {
		return
	}
	pct := 0.0
	if e.Total > 0 {
		pct = float64(e.Done) * 100 / float64(e.Total)
	}
	o.logger.Info().
		Int("done", e.Done).
		Int("total", e.Total).
		Float64("percent", pct).
		Msg(e.Description)
}

func (o *LogObserver) OnLog(ctx context.Context, e models.LogEvent) {
	var ev arbor.ILogEvent
	switch e.Level {
	case models.LevelDebug:
		ev = o.logger.Debug()
	case models.LevelWarn:
		ev = o.logger.Warn()
	case models.LevelError:
		ev = o.logger.Error()
	default:
		ev = o.logger.Info()
	}
	if e.Source != "" {
		ev = ev.Str("source", e.Source)
	}
	if e.Article != "" {
		ev = ev.Str("article", e.Article)
	}
	ev.Msg(e.Message)
}

// Nop discards every event
type Nop struct{}

func (Nop) OnTick(context.Context, models.TickEvent) {}
func (Nop) OnLog(context.Context, models.LogEvent)   {}

// Recorder keeps every event in memory
type Recorder struct {
	mu    sync.Mutex
	Ticks []models.TickEvent
	Logs  []models.LogEvent
}

var _ interfaces.ProgressObserver = (*Recorder)(nil)

func (r *Recorder) OnTick(_ context.Context, e models.TickEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Ticks = append(r.Ticks, e)
}

func (r *Recorder) OnLog(_ context.Context, e models.LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Logs = append(r.Logs, e)
}

// LogsAt returns the recorded log events of one level
func (r *Recorder) LogsAt(level models.LogLevel) []models.LogEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LogEvent
	for _, e := range r.Logs {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Counter turns unit completions into monotonically numbered tick events
type Counter struct {
	mu       sync.Mutex
	done     int
	total    int
	observer interfaces.ProgressObserver
}

// NewCounter creates a counter over total units
func NewCounter(total int, observer interfaces.ProgressObserver) *Counter {
	return &Counter{total: total, observer: observer}
}

// Tick records one finished unit
func (c *Counter) Tick(ctx context.Context, description string) {
	c.mu.Lock()
	c.done++
	e := models.TickEvent{Done: c.done, Total: c.total, Description: description}
	c.observer.OnTick(ctx, e)
	c.mu.Unlock()
}

// Done returns the number of ticks so far
func (c *Counter) Done() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}
