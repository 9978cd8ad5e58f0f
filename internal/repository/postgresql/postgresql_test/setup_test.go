package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-go/migrations"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// setupTestDB starts one PostgreSQL container for the whole run, applies the
// migrations and returns a truncated database. TEST_DATABASE_URL skips the
// container and uses an existing server instead.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	once.Do(func() {
		sharedDSN, initErr = startDatabase()
	})
	if initErr != nil {
		t.Fatalf("failed to setup test database: %v", initErr)
	}

	db, err := database.NewPostgreSQLDB(sharedDSN)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(db.Close)

	if err := truncateAllTables(context.Background(), db); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	return db
}

func startDatabase() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:17-alpine",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     "testuser",
					"POSTGRES_PASSWORD": "testpass",
					"POSTGRES_DB":       "hris_attendance_test",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			return "", fmt.Errorf("start container: %w", err)
		}

		host, err := container.Host(ctx)
		if err != nil {
			return "", fmt.Errorf("get container host: %w", err)
		}
		port, err := container.MappedPort(ctx, "5432")
		if err != nil {
			return "", fmt.Errorf("get mapped port: %w", err)
		}

		dsn = fmt.Sprintf("postgres://testuser:testpass@%s:%s/hris_attendance_test?sslmode=disable", host, port.Port())
	}

	if err := database.Migrate(ctx, dsn, migrations.FS, "up"); err != nil {
		return "", err
	}

	return dsn, nil
}

func truncateAllTables(ctx context.Context, db *database.DB) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"attendance_audit_events",
		"attendance_records",
		"employees",
	}

	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

type testEmployee struct {
	code           string
	name           string
	department     string
	manual         bool
	externalUserID *string
	joiningDate    time.Time
	status         string
}

func createTestEmployee(t *testing.T, ctx context.Context, db *database.DB, e testEmployee) string {
	t.Helper()
	if e.status == "" {
		e.status = "active"
	}
	if e.joiningDate.IsZero() {
		e.joiningDate = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	var id string
	err := db.QueryRow(ctx, `
		INSERT INTO employees (company_id, employee_code, full_name, department, is_manual_attendance,
			external_user_id, joining_date, employment_status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, e.code, e.name, e.department, e.manual, e.externalUserID, e.joiningDate, e.status).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}
	return id
}
