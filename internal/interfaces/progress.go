package interfaces

import (
	"context"

	"github.com/ternarybob/quire/internal/models"
)

// ProgressObserver receives progress events from a pipeline run. The core only emits
// events and never queries the observer. Implementations must be safe for concurrent use.
type ProgressObserver interface {
	OnTick(ctx context.Context, event models.TickEvent)
	OnLog(ctx context.Context, event models.LogEvent)
}
