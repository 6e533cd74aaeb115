package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/progress-service/internal/progress"
)

// LogSink emits one structured log line per change event. It is useful during
// development or audits where no broker is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.ChangeEvent) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("type", string(evt.Kind)),
			zap.Time("at", evt.TS),
			zap.Float64("trauma", evt.Document.Trauma),
			zap.Float64("upper", evt.Document.Upper),
			zap.Float64("lower", evt.Document.Lower),
		}
		if evt.Kind == progress.ChangeIncrement {
			fields = append(fields,
				zap.String("category", evt.Category.String()),
				zap.Float64("delta", evt.Delta),
			)
		}
		if evt.RequestID != "" {
			fields = append(fields, zap.String("request_id", evt.RequestID))
		}
		s.logger.Info("progress changed", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
