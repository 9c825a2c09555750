package reduce

import "errors"

var (
	// ErrInsufficientData is returned when the matrix has too few rows or
	// columns for the requested number of components
	ErrInsufficientData = errors.New("insufficient data for requested components")

	// ErrFactorization is returned when the eigendecomposition fails
	ErrFactorization = errors.New("eigendecomposition failed")
)

// IsInsufficientData checks if an error is an "insufficient data" error
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}
