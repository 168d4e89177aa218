package domain

import "errors"

// Error kinds shared by every package. Callers wrap them with fmt.Errorf and
// branch with errors.Is.
var (
	// ErrConfiguration marks an invalid option combination or value. Fatal for the run.
	ErrConfiguration = errors.New("configuration error")

	// ErrDataAccess marks a required coordinate or field that is absent or
	// malformed when the archive is opened. Fatal for the run.
	ErrDataAccess = errors.New("data access error")

	// ErrNumericalDegeneracy marks inputs that would silently produce NaN or Inf,
	// such as zero grid spacing.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")

	// ErrRange marks a coordinate outside its physical range.
	ErrRange = errors.New("range error")
)

// IsFatal reports whether err must abort the whole run rather than a single timestep.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrDataAccess) ||
		errors.Is(err, ErrNumericalDegeneracy)
}
