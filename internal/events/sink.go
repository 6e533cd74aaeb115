// Package events batches progress change events on a background goroutine and
// fans them out to pluggable sinks such as message publishers, Prometheus
// gauges, or structured logs. The Service never waits on a sink.
package events

import (
	"context"

	"github.com/JakeFAU/progress-service/internal/progress"
)

// Sink consumes batches of change events. Implementations must be safe for
// repeated calls, honor ctx deadlines, and may be invoked concurrently.
type Sink interface {
	Consume(ctx context.Context, batch []progress.ChangeEvent) error
	Close(ctx context.Context) error
}
