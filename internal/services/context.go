package services

import "context"

type contextKey string

const (
	runIDKey contextKey = "run_id"
	jobIDKey contextKey = "job_id"
	biomeKey contextKey = "biome"
)

// WithRunID annotates context with the build-run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the build-run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJobID annotates context with a conversion-job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the conversion-job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithBiome annotates context with the biome key being generated.
func WithBiome(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, biomeKey, key)
}

// BiomeFromContext returns the biome key if present.
func BiomeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(biomeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
