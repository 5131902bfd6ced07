package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"toggl-billing/internal/domain"
	"toggl-billing/internal/reconcile"
)

// Client implements ports.Journal on top of MySQL.
type Client struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// NewClient opens a MySQL connection using the provided DSN.
// Example DSN: user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
func NewClient(ctx context.Context, dsn string, log *slog.Logger) (*Client, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	// A run writes sequentially; a small pool is enough.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	return &Client{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}, nil
}

// StartRun inserts the run header.
func (c *Client) StartRun(ctx context.Context, run domain.Run) error {
	const q = `
INSERT INTO billing_runs
  (id, workspace_id, period_from, period_to, dry_run, status, started_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?);
`
	_, err := c.db.ExecContext(ctx, q,
		run.ID,
		run.WorkspaceID,
		run.From.UTC(),
		run.To.UTC(),
		run.DryRun,
		string(domain.RunStarted),
		run.StartedAt.UTC(),
	)
	return err
}

// RecordOperations stores the planned batch of a run, one row per operation.
func (c *Client) RecordOperations(ctx context.Context, runID string, ops []reconcile.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	const q = `
INSERT INTO billing_operations
  (run_id, seq, op_type, entry_id, description, payload, status, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?);
`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := c.now()
	for i, op := range ops {
		payload, err := payloadOf(op)
		if err != nil {
			tx.Rollback()
			return err
		}
		var entryID interface{}
		if op.Type == reconcile.OpModify {
			entryID = op.ID
		}
		if _, err := stmt.ExecContext(ctx,
			runID,
			i,
			string(op.Type),
			entryID,
			op.Desc,
			payload,
			string(domain.OpPlanned),
			now,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.log.Debug("journal recorded operations", slog.String("run", runID), slog.Int("count", len(ops)))
	return nil
}

// MarkOperation updates the status of operation index of run runID.
func (c *Client) MarkOperation(ctx context.Context, runID string, index int, status domain.OpStatus, opErr error) error {
	_, err := c.db.ExecContext(ctx,
		"UPDATE billing_operations SET status = ?, error = ?, updated_at = ? WHERE run_id = ? AND seq = ?",
		string(status), errText(opErr), c.now(), runID, index,
	)
	return err
}

// FinishRun closes the run header.
func (c *Client) FinishRun(ctx context.Context, runID string, status domain.RunStatus, runErr error) error {
	_, err := c.db.ExecContext(ctx,
		"UPDATE billing_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		string(status), errText(runErr), c.now(), runID,
	)
	return err
}

// SnapshotEntries upserts the entries a run was computed from.
func (c *Client) SnapshotEntries(ctx context.Context, entries []domain.TimeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	// Use ON DUPLICATE KEY UPDATE to perform upserts.
	const q = `
INSERT INTO toggl_time_entries
  (id, workspace_id, project_id, user_id, description, billable, tags, start, stop, duration_sec, seen_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  workspace_id=VALUES(workspace_id),
  project_id=VALUES(project_id),
  user_id=VALUES(user_id),
  description=VALUES(description),
  billable=VALUES(billable),
  tags=VALUES(tags),
  start=VALUES(start),
  stop=VALUES(stop),
  duration_sec=VALUES(duration_sec),
  seen_at=VALUES(seen_at);
`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := c.now()
	for _, e := range entries {
		// Marshal tags as JSON for readability; stored as TEXT.
		tagsJSON, _ := json.Marshal(e.Tags)
		var project interface{}
		if e.ProjectID != nil {
			project = *e.ProjectID
		}
		var stop interface{}
		if e.Stop != nil {
			stop = e.Stop.UTC()
		}
		if _, err := stmt.ExecContext(
			ctx,
			e.ID,
			e.WorkspaceID,
			project,
			e.UserID,
			e.Description,
			e.Billable,
			string(tagsJSON),
			e.Start.UTC(),
			stop,
			e.DurationSec,
			now,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.log.Info("journal snapshot upserted entries", slog.Int("count", len(entries)))
	return nil
}

// Close closes the underlying DB. Not wired via interface to keep ports minimal.
func (c *Client) Close() error { return c.db.Close() }

func payloadOf(op reconcile.Operation) (string, error) {
	var v any = op.Patch
	if op.Type == reconcile.OpInsert {
		v = op.TimeEntry
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func errText(err error) interface{} {
	if err == nil {
		return nil
	}
	return err.Error()
}
