package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	// ErrNoData means the aggregation window holds no matches, so a rate
	// would be a division by zero.
	ErrNoData        = errors.New("no data available")
	ErrInvalidWindow = errors.New("invalid aggregation window")
)
