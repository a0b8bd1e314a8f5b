package services_test

import (
	"context"
	"testing"

	"starsound/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-42")
	ctx = services.WithJobID(ctx, "job-7")
	ctx = services.WithBiome(ctx, "surface/forest")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-42" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-7" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if key, ok := services.BiomeFromContext(ctx); !ok || key != "surface/forest" {
		t.Fatalf("unexpected biome: %v %v", key, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithBiome(ctx, "")
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.BiomeFromContext(ctx); ok {
		t.Fatal("expected no biome value")
	}
}
