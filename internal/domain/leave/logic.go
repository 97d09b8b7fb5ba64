package leave

import (
	"time"

	"timesheet/internal/domain/errs"
)

// CalculateDays returns inclusive day count between start and end.
func CalculateDays(start, end time.Time) (float64, error) {
	if end.Before(start) {
		return 0, errs.Invalid("endDate", "must be on or after startDate")
	}
	return end.Sub(start).Hours()/24 + 1, nil
}
