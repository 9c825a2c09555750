package cluster

import "errors"

var (
	// ErrInsufficientData is returned when there are fewer stores than
	// requested clusters
	ErrInsufficientData = errors.New("fewer points than requested clusters")

	// ErrDiverged is returned when no restart converges within the
	// iteration bound; callers retry once with a different seed
	ErrDiverged = errors.New("clustering did not converge")

	// ErrUnknownStrategy is returned for an unrecognized strategy name
	ErrUnknownStrategy = errors.New("unknown clustering strategy")
)

// IsDiverged checks if an error is a divergence error
func IsDiverged(err error) bool {
	return errors.Is(err, ErrDiverged)
}
