package services

import "context"

type contextKey string

const (
	productionIDKey contextKey = "production_id"
	stageKey        contextKey = "stage"
	assetKindKey    contextKey = "asset_kind"
	jobIDKey        contextKey = "job_id"
	requestIDKey    contextKey = "request_id"
)

// WithProductionID annotates context with the production identifier.
func WithProductionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, productionIDKey, id)
}

// ProductionIDFromContext extracts the production identifier if present.
func ProductionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(productionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the production stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithAssetKind annotates context with the asset kind being worked on.
func WithAssetKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, assetKindKey, kind)
}

// AssetKindFromContext returns the asset kind if present.
func AssetKindFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(assetKindKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJobID annotates context with a render job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext returns the render job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
