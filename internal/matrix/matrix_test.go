package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	columns := []string{"a", "b"}

	t.Run("valid matrix", func(t *testing.T) {
		m, err := New(columns, []Store{
			{ID: "s1", Features: []float64{0.1, 0.9}},
			{ID: "s2", Features: []float64{0.5, 0.0}, Band: "b1"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, m.Rows())
		assert.Equal(t, 2, m.Cols())
	})

	t.Run("rejects empty store set", func(t *testing.T) {
		_, err := New(columns, nil)
		require.Error(t, err)
	})

	t.Run("rejects duplicate store ids", func(t *testing.T) {
		_, err := New(columns, []Store{
			{ID: "s1", Features: []float64{0.1, 0.2}},
			{ID: "s1", Features: []float64{0.3, 0.4}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("rejects inconsistent dimensions", func(t *testing.T) {
		_, err := New(columns, []Store{
			{ID: "s1", Features: []float64{0.1}},
		})
		require.Error(t, err)
	})

	t.Run("rejects values outside unit interval", func(t *testing.T) {
		_, err := New(columns, []Store{
			{ID: "s1", Features: []float64{0.1, 1.5}},
		})
		require.Error(t, err)
	})
}

func TestHasBands(t *testing.T) {
	columns := []string{"a"}

	m, err := New(columns, []Store{
		{ID: "s1", Features: []float64{0.1}, Band: "b1"},
		{ID: "s2", Features: []float64{0.2}},
	})
	require.NoError(t, err)
	all, any := m.HasBands()
	assert.False(t, all)
	assert.True(t, any)

	m, err = New(columns, []Store{
		{ID: "s1", Features: []float64{0.1}, Band: "b1"},
		{ID: "s2", Features: []float64{0.2}, Band: "b2"},
	})
	require.NoError(t, err)
	all, any = m.HasBands()
	assert.True(t, all)
	assert.True(t, any)
}

func TestVectors(t *testing.T) {
	m, err := New([]string{"a", "b"}, []Store{
		{ID: "s1", Features: []float64{0.1, 0.2}},
		{ID: "s2", Features: []float64{0.3, 0.4}},
	})
	require.NoError(t, err)

	rows := m.Vectors()
	require.Len(t, rows, 2)
	assert.Equal(t, []float64{0.3, 0.4}, rows[1])
}
