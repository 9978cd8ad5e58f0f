package employee

import (
	"context"
	"time"
)

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (Employee, error)

	// ListSyncCandidates returns active, non-manual employees with an external
	// user id who joined on or before date
	ListSyncCandidates(ctx context.Context, date time.Time) ([]Employee, error)

	// ListForReport returns one page of employees matching the filter, excluding
	// ex-employees, ordered by employee code
	ListForReport(ctx context.Context, filter ReportFilter) ([]Employee, int64, error)
}
