package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storewise/cohort/test/testutil"
)

func TestAgglomerative(t *testing.T) {
	for _, name := range []string{StrategyAgglomerativeAverage, StrategyAgglomerativeWard} {
		t.Run(name, func(t *testing.T) {
			t.Run("recovers well separated blobs", func(t *testing.T) {
				points := testutil.Blobs(4, 3, 20, 6, 0.01)
				strat, err := New(Config{Strategy: name})
				require.NoError(t, err)

				res, err := strat.Partition(points, 3)
				require.NoError(t, err)
				assert.True(t, res.Converged)

				counts := map[int]int{}
				for c := 0; c < 3; c++ {
					first := res.Labels[c*20]
					for i := 1; i < 20; i++ {
						assert.Equal(t, first, res.Labels[c*20+i])
					}
					counts[first]++
				}
				assert.Len(t, counts, 3, "blobs collapsed into shared clusters")
			})

			t.Run("exact cluster count", func(t *testing.T) {
				points := testutil.Blobs(8, 4, 15, 5, 0.06)
				strat, err := New(Config{Strategy: name})
				require.NoError(t, err)

				res, err := strat.Partition(points, 7)
				require.NoError(t, err)

				seen := map[int]bool{}
				for _, l := range res.Labels {
					require.GreaterOrEqual(t, l, 0)
					require.Less(t, l, 7)
					seen[l] = true
				}
				assert.Len(t, seen, 7)
			})

			t.Run("deterministic", func(t *testing.T) {
				points := testutil.Blobs(12, 3, 15, 4, 0.05)
				strat, err := New(Config{Strategy: name})
				require.NoError(t, err)

				a, err := strat.Partition(points, 4)
				require.NoError(t, err)
				b, err := strat.Partition(points, 4)
				require.NoError(t, err)
				assert.Equal(t, a.Labels, b.Labels)
			})

			t.Run("fewer points than clusters", func(t *testing.T) {
				points := testutil.Blobs(1, 1, 2, 3, 0.01)
				strat, err := New(Config{Strategy: name})
				require.NoError(t, err)

				_, err = strat.Partition(points, 5)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInsufficientData)
			})
		})
	}
}
