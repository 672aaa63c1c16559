package logging

import (
	"context"
	"log/slog"

	"reelsmith/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldProductionID is the standardized key for production identifiers.
	FieldProductionID = "production_id"
	// FieldStage is the standardized key for production stage names.
	FieldStage = "stage"
	// FieldAssetKind is the standardized key for ledger asset kinds.
	FieldAssetKind = "asset_kind"
	// FieldJobID is the standardized key for render job identifiers.
	FieldJobID = "job_id"
	// FieldCorrelationID is the standardized key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (stage_start, render_progress, ...).
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for a failure.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 5)
	if id, ok := services.ProductionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldProductionID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if kind, ok := services.AssetKindFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAssetKind, kind))
	}
	if job, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, job))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
