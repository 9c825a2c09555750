// Package testutil provides shared helpers for the clustering engine's
// tests: quiet logger setup and deterministic synthetic store matrices.
package testutil

import (
	"fmt"
	"math/rand"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/storewise/cohort/internal/matrix"
)

// QuietLogs silences zerolog for a test and restores the previous level on
// cleanup. LOG_LEVEL overrides, so failing tests can be rerun verbosely.
func QuietLogs(t *testing.T) {
	t.Helper()
	level := zerolog.Disabled
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		if parsed, err := zerolog.ParseLevel(s); err == nil {
			level = parsed
		}
	}
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(level)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
}

// ConsoleLogs switches the global logger to a console writer, for manual
// debugging of engine tests.
func ConsoleLogs() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

// Blobs generates count points per center around well-separated gaussian
// blob centers in dims dimensions, deterministically for a seed. Points stay
// inside [0, 1] so they satisfy the feature-matrix invariants.
func Blobs(seed int64, centers, perCenter, dims int, spread float64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	ctrs := make([][]float64, centers)
	for c := range ctrs {
		ctrs[c] = make([]float64, dims)
		for d := range ctrs[c] {
			ctrs[c][d] = 0.15 + 0.7*rng.Float64()
		}
	}

	points := make([][]float64, 0, centers*perCenter)
	for c := 0; c < centers; c++ {
		for i := 0; i < perCenter; i++ {
			p := make([]float64, dims)
			for d := range p {
				v := ctrs[c][d] + rng.NormFloat64()*spread
				if v < 0 {
					v = 0
				}
				if v > 1 {
					v = 1
				}
				p[d] = v
			}
			points = append(points, p)
		}
	}
	return points
}

// BlobMatrix wraps Blobs output into a feature matrix with generated store
// ids and feature column names. bands, when non-empty, is cycled across
// blob centers so each center's stores share one band.
func BlobMatrix(t *testing.T, seed int64, centers, perCenter, dims int, spread float64, bands []string) *matrix.Matrix {
	t.Helper()
	points := Blobs(seed, centers, perCenter, dims, spread)

	columns := make([]string, dims)
	for d := range columns {
		columns[d] = fmt.Sprintf("feat_%03d", d)
	}
	stores := make([]matrix.Store, len(points))
	for i, p := range points {
		stores[i] = matrix.Store{ID: fmt.Sprintf("store_%04d", i), Features: p}
		if len(bands) > 0 {
			stores[i].Band = bands[(i/perCenter)%len(bands)]
		}
	}

	m, err := matrix.New(columns, stores)
	if err != nil {
		t.Fatalf("building blob matrix: %v", err)
	}
	return m
}
