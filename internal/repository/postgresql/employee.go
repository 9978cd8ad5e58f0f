package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

var employeeColumns = []string{
	"id", "company_id", "employee_code", "full_name", "department", "branch",
	"is_manual_attendance", "external_user_id", "joining_date", "employment_status",
	"is_active", "created_at", "updated_at", "deleted_at",
}

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var emp employee.Employee
	var status string
	err := row.Scan(
		&emp.ID, &emp.CompanyID, &emp.EmployeeCode, &emp.FullName, &emp.Department, &emp.Branch,
		&emp.IsManualAttendance, &emp.ExternalUserID, &emp.JoiningDate, &status,
		&emp.IsActive, &emp.CreatedAt, &emp.UpdatedAt, &emp.DeletedAt,
	)
	emp.EmploymentStatus = employee.EmploymentStatus(status)
	return emp, err
}

// GetByID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query, args, err := psql.Select(employeeColumns...).
		From("employees").
		Where(squirrel.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return employee.Employee{}, fmt.Errorf("failed to build employee query: %w", err)
	}

	emp, err := scanEmployee(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		// a malformed id cannot match any employee
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee by id %s: %w", id, err)
	}

	return emp, nil
}

// ListSyncCandidates implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListSyncCandidates(ctx context.Context, date time.Time) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query, args, err := psql.Select(employeeColumns...).
		From("employees").
		Where(squirrel.Eq{"is_active": true, "is_manual_attendance": false}).
		Where("deleted_at IS NULL").
		Where("external_user_id IS NOT NULL AND external_user_id <> ''").
		Where(squirrel.LtOrEq{"joining_date": date}).
		Where(squirrel.NotEq{"employment_status": string(employee.EmploymentStatusExEmployee)}).
		OrderBy("employee_code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sync candidate query: %w", err)
	}

	return e.queryEmployees(ctx, q, query, args)
}

func reportConditions(filter employee.ReportFilter) squirrel.And {
	where := squirrel.And{
		squirrel.Expr("deleted_at IS NULL"),
		squirrel.NotEq{"employment_status": string(employee.EmploymentStatusExEmployee)},
	}
	if filter.EmployeeCode != nil && *filter.EmployeeCode != "" {
		where = append(where, squirrel.Eq{"employee_code": *filter.EmployeeCode})
	}
	if filter.Name != nil && *filter.Name != "" {
		where = append(where, squirrel.ILike{"full_name": "%" + likeEscaper.Replace(*filter.Name) + "%"})
	}
	if filter.Department != nil && *filter.Department != "" {
		where = append(where, squirrel.Eq{"department": *filter.Department})
	}
	if filter.Branch != nil && *filter.Branch != "" {
		where = append(where, squirrel.Eq{"branch": *filter.Branch})
	}
	if filter.IsManualAttendance != nil {
		where = append(where, squirrel.Eq{"is_manual_attendance": *filter.IsManualAttendance})
	}
	return where
}

// ListForReport implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListForReport(ctx context.Context, filter employee.ReportFilter) ([]employee.Employee, int64, error) {
	q := GetQuerier(ctx, e.db)
	where := reportConditions(filter)

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("employees").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count employees: %w", err)
	}

	builder := psql.Select(employeeColumns...).From("employees").Where(where).OrderBy("employee_code")
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64((page - 1) * filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build report employee query: %w", err)
	}

	employees, err := e.queryEmployees(ctx, q, query, args)
	if err != nil {
		return nil, 0, err
	}

	return employees, total, nil
}

func (e *employeeRepositoryImpl) queryEmployees(ctx context.Context, q database.Querier, query string, args []any) ([]employee.Employee, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return employees, nil
}
