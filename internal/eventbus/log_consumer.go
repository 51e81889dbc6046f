package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/matthewbaird/turbine/internal/event"
	"github.com/matthewbaird/turbine/internal/logger"
)

// LogConsumer logs every event for observability.
type LogConsumer struct {
	log *zap.SugaredLogger
}

func NewLogConsumer() *LogConsumer { return &LogConsumer{log: logger.Named("events")} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	fields := []any{
		logger.FieldEventType, evt.EventType,
		logger.FieldRunID, evt.RunID,
		logger.FieldProject, evt.Project,
	}
	switch evt.EventType {
	case event.TypeRunFailed:
		c.log.Warnw(evt.Summary, fields...)
	case event.TypeArtifactEmitted, event.TypeGapFound:
		c.log.Debugw(evt.Summary, fields...)
	default:
		c.log.Infow(evt.Summary, fields...)
	}
	return nil
}
