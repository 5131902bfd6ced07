//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	msql "toggl-billing/internal/adapter/mysql"
	"toggl-billing/internal/domain"
	"toggl-billing/internal/migrate"
	"toggl-billing/internal/policy"
	"toggl-billing/internal/reconcile"
	"toggl-billing/internal/usecase"
)

type fakeToggl struct {
	entries []domain.TimeEntry
	writes  int
}

func (f *fakeToggl) Me(context.Context) (domain.User, error) {
	return domain.User{ID: 7, DefaultWorkspaceID: 456}, nil
}

func (f *fakeToggl) ListClients(context.Context, int64) ([]domain.Client, error) {
	return []domain.Client{{ID: 1, Name: "ACME"}}, nil
}

func (f *fakeToggl) ListProjects(context.Context, int64) ([]domain.Project, error) {
	client := int64(1)
	return []domain.Project{{ID: 123, ClientID: &client}}, nil
}

func (f *fakeToggl) ListTimeEntries(context.Context, time.Time, time.Time) ([]domain.TimeEntry, error) {
	return f.entries, nil
}

func (f *fakeToggl) UpdateTimeEntry(context.Context, int64, int64, reconcile.Patch) error {
	f.writes++
	return nil
}

func (f *fakeToggl) CreateTimeEntry(context.Context, reconcile.NewEntry) error {
	f.writes++
	return nil
}

func TestReconcileJournal_RecordsRunsAndOperations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_DATABASE":      "testdb",
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_USER":          "test",
			"MYSQL_PASSWORD":      "pass",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}
	t.Cleanup(func() { _ = mysqlC.Terminate(context.Background()) })

	host, err := mysqlC.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := mysqlC.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true", "test", "pass", host, port.Port(), "testdb")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := migrate.Run(ctx, dsn, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	journal, err := msql.NewClient(ctx, dsn, logger)
	if err != nil {
		t.Fatalf("mysql client: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	// 10h of work allows 1h of billable break; the 90 minute break gets split.
	start := time.Date(2025, 8, 4, 8, 0, 0, 0, time.UTC)
	projectID := int64(123)
	fake := &fakeToggl{entries: []domain.TimeEntry{
		{ID: 1, WorkspaceID: 456, ProjectID: &projectID, Description: "Dev work", Start: start, DurationSec: 36000},
		{ID: 2, WorkspaceID: 456, ProjectID: &projectID, Description: "Lunch", Tags: []string{"break"}, Start: start.Add(10 * time.Hour), DurationSec: 5400},
	}}

	runIDs := []string{"00000000-0000-0000-0000-000000000001", "00000000-0000-0000-0000-000000000002"}
	uc := &usecase.ReconcileUseCase{
		Log:      logger,
		Toggl:    fake,
		Journal:  journal,
		Policy:   policy.Policy{MaxBreakRatio: 10, Tags: policy.Tags{Traveling: "travel", Break: "break"}, Clients: []string{"ACME"}},
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC) },
		NewRunID: func() string {
			id := runIDs[0]
			runIDs = runIDs[1:]
			return id
		},
	}

	dry, err := uc.Run(ctx, usecase.Request{MonthOffset: 1, DryRun: true})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(dry.Operations) != 3 {
		t.Fatalf("expected 3 planned operations, got %d", len(dry.Operations))
	}
	live, err := uc.Run(ctx, usecase.Request{MonthOffset: 1})
	if err != nil {
		t.Fatalf("live run: %v", err)
	}
	if live.Applied != 3 || fake.writes != 3 {
		t.Fatalf("expected 3 applied operations, got %d (%d writes)", live.Applied, fake.writes)
	}

	// Verify rows
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	defer db.Close()

	var status string
	if err := db.QueryRowContext(ctx, "SELECT status FROM billing_runs WHERE id = ?", dry.RunID).Scan(&status); err != nil {
		t.Fatalf("dry run row: %v", err)
	}
	if status != string(domain.RunPlanned) {
		t.Fatalf("expected dry run status %q, got %q", domain.RunPlanned, status)
	}
	if err := db.QueryRowContext(ctx, "SELECT status FROM billing_runs WHERE id = ?", live.RunID).Scan(&status); err != nil {
		t.Fatalf("live run row: %v", err)
	}
	if status != string(domain.RunCompleted) {
		t.Fatalf("expected live run status %q, got %q", domain.RunCompleted, status)
	}

	var applied int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM billing_operations WHERE run_id = ? AND status = ?",
		live.RunID, string(domain.OpApplied),
	).Scan(&applied); err != nil {
		t.Fatalf("count operations: %v", err)
	}
	if applied != 3 {
		t.Fatalf("expected 3 applied operation rows, got %d", applied)
	}

	var snapshot int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM toggl_time_entries").Scan(&snapshot); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if snapshot != 2 {
		t.Fatalf("expected 2 snapshot rows after two runs, got %d", snapshot)
	}
}
