//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/cmd/doctor/internal/domain/doctor"
	"github.com/cmd/doctor/internal/domain/schedule"
	"github.com/cmd/doctor/internal/platform/db"
	"github.com/cmd/doctor/internal/platform/events"
)

// globalPool is shared by every test in the package; migrations are applied
// once in TestMain and each test truncates the tables it uses.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr, cleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, connStr, 20, 2)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}

	if _, err := db.NewMigrator(pool, findMigrationsDir()).Up(ctx); err != nil {
		pool.Close()
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// findMigrationsDir locates migrations/ relative to this file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

func resetTables(t *testing.T) {
	t.Helper()
	_, err := globalPool.Exec(context.Background(), `TRUNCATE doctor_schedule, doctor_address, doctor CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

type services struct {
	doctors   *doctor.Service
	schedules *schedule.Service
}

func newServices(t *testing.T) services {
	t.Helper()
	resetTables(t)
	validator := doctor.NewValidator(nil, doctor.ValidatorConfig{PhoneRegion: "IN"})
	doctorSvc := doctor.NewService(doctor.NewRepoPG(globalPool), validator, events.Nop{}, zerolog.Nop())
	scheduleSvc := schedule.NewService(schedule.NewStorePG(globalPool), doctorSvc, events.Nop{}, zerolog.Nop())
	return services{doctors: doctorSvc, schedules: scheduleSvc}
}
