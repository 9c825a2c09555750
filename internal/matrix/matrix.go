// Package matrix defines the store feature matrix consumed by the clustering
// engine. Rows are stores, columns are tracked product features, and values
// are normalized to [0, 1] by the upstream feature-construction stage.
package matrix

import "fmt"

// Store is a single store record: an identifier, its normalized feature
// vector, and an optional temperature band assigned by the weather pipeline.
type Store struct {
	ID       string
	Features []float64
	Band     string // empty when no temperature classification exists
}

// Matrix is an immutable store-by-feature table. Every row shares the same
// column set and order.
type Matrix struct {
	Columns []string
	Stores  []Store
}

// New builds a Matrix and validates its invariants: at least one store,
// unique store identifiers, identical feature dimensions across rows, and
// values within [0, 1].
func New(columns []string, stores []Store) (*Matrix, error) {
	if len(stores) == 0 {
		return nil, fmt.Errorf("matrix: no stores")
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("matrix: no feature columns")
	}

	seen := make(map[string]struct{}, len(stores))
	for i, s := range stores {
		if s.ID == "" {
			return nil, fmt.Errorf("matrix: store %d has empty identifier", i)
		}
		if _, ok := seen[s.ID]; ok {
			return nil, fmt.Errorf("matrix: duplicate store %q", s.ID)
		}
		seen[s.ID] = struct{}{}

		if len(s.Features) != len(columns) {
			return nil, fmt.Errorf("matrix: store %q has %d features, want %d",
				s.ID, len(s.Features), len(columns))
		}
		for j, v := range s.Features {
			if v < 0 || v > 1 {
				return nil, fmt.Errorf("matrix: store %q feature %q = %v outside [0, 1]",
					s.ID, columns[j], v)
			}
		}
	}

	return &Matrix{Columns: columns, Stores: stores}, nil
}

// Rows returns the number of stores.
func (m *Matrix) Rows() int { return len(m.Stores) }

// Cols returns the number of feature columns.
func (m *Matrix) Cols() int { return len(m.Columns) }

// Vectors returns the feature rows as a dense slice-of-rows view. The rows
// alias the store records; callers must not mutate them.
func (m *Matrix) Vectors() [][]float64 {
	rows := make([][]float64, len(m.Stores))
	for i := range m.Stores {
		rows[i] = m.Stores[i].Features
	}
	return rows
}

// HasBands reports whether every store carries a temperature band. Partial
// classifications are rejected by the engine rather than guessed at.
func (m *Matrix) HasBands() (all bool, any bool) {
	all = true
	for _, s := range m.Stores {
		if s.Band == "" {
			all = false
		} else {
			any = true
		}
	}
	return all, any
}
