package stats

import "errors"

// Request-time conditions. They are expected outcomes of a user's selection
// and callers should degrade gracefully rather than fail.
var (
	// ErrInsufficientGroups is returned when fewer than two groups are
	// available for a comparison.
	ErrInsufficientGroups = errors.New("at least two groups with data are required for a comparison")
	// ErrNoData is returned when every relevant value is missing.
	ErrNoData = errors.New("no non-missing values for the selected metric")
	// ErrEmptyDataset is returned when the dataset has no rows.
	ErrEmptyDataset = errors.New("dataset has no rows")
)
