package report

import "errors"

var (
	ErrInvalidDateRange = errors.New("date_from must not be after date_to and the range must not exceed 60 days")
)
