package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/progress"
)

// LogSink writes one debug line per event and a warning per failed request.
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
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.Stringer("run_id", evt.RunUUID()),
			zap.String("stage", string(evt.Stage)),
			zap.String("site", evt.Site),
			zap.String("url", evt.URL),
			zap.String("status_class", string(evt.StatusClass)),
			zap.Int("count", evt.Count),
			zap.Duration("dur", evt.Dur),
		}
		if evt.Failed() {
			s.logger.Warn("request failed", append(fields, zap.String("note", evt.Note))...)
			continue
		}
		s.logger.Debug("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
