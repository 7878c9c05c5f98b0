package logging

import (
	"context"

	"go.uber.org/zap"
)

// AuditEvent describes an operation on a stored resource.
type AuditEvent struct {
	Action       string // e.g. "load"
	Actor        string // who performed it; "system" for startup work
	ResourceType string
	ResourceID   string
	Result       string // "success" or "failure"
	Details      map[string]any
}

// LogAuditEvent logs a structured audit event.
func LogAuditEvent(ctx context.Context, ev AuditEvent) {
	fields := []zap.Field{
		zap.String("audit.action", ev.Action),
		zap.String("audit.actor", ev.Actor),
		zap.String("audit.resource_type", ev.ResourceType),
		zap.String("audit.resource_id", ev.ResourceID),
		zap.String("audit.result", ev.Result),
	}
	if len(ev.Details) > 0 {
		fields = append(fields, zap.Any("audit.details", ev.Details))
	}
	LoggerFromContext(ctx).Info("Audit event", fields...)
}
