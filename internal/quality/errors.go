package quality

import "errors"

var (
	// ErrDegenerateClustering is returned when the metrics are undefined
	// because every store is in one cluster or every store is its own
	// cluster. Runs that hit this are marked invalid, never given a
	// placeholder score.
	ErrDegenerateClustering = errors.New("quality metrics undefined for degenerate clustering")
)

// IsDegenerate checks if an error is a degenerate-clustering error
func IsDegenerate(err error) bool {
	return errors.Is(err, ErrDegenerateClustering)
}
