package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/models"
)

func TestCounter_TicksAreMonotonic(t *testing.T) {
	rec := &Recorder{}
	c := NewCounter(50, rec)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Tick(context.Background(), "page")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Done())
	assert.Len(t, rec.Ticks, 50)
	for i, e := range rec.Ticks {
		assert.Equal(t, i+1, e.Done)
		assert.Equal(t, 50, e.Total)
	}
}

func TestRecorder_LogsAt(t *testing.T) {
	rec := &Recorder{}
	rec.OnLog(context.Background(), models.LogEvent{Level: models.LevelWarn, Message: "a"})
	rec.OnLog(context.Background(), models.LogEvent{Level: models.LevelInfo, Message: "b"})
	rec.OnLog(context.Background(), models.LogEvent{Level: models.LevelWarn, Message: "c"})

	warns := rec.LogsAt(models.LevelWarn)
	assert.Len(t, warns, 2)
	assert.Equal(t, "c", warns[1].Message)
}

func TestLogObserver_Throttles(t *testing.T) {
	o := NewLogObserver(arbor.NewLogger(), time.Hour)

	// first tick consumes the burst, the rest are dropped until the final one
	assert.True(t, o.limiter.Allow())
	assert.False(t, o.limiter.Allow())

	o.OnTick(context.Background(), models.TickEvent{Done: 1, Total: 3, Description: "x"})
	o.OnTick(context.Background(), models.TickEvent{Done: 3, Total: 3, Description: "x"})
	o.OnLog(context.Background(), models.LogEvent{Level: models.LevelError, Message: "boom", Source: "a.pdf"})

	unthrottled := NewLogObserver(arbor.NewLogger(), 0)
	for i := 0; i < 5; i++ {
		assert.True(t, unthrottled.limiter.Allow())
	}
}
