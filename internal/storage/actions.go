package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/service"
)

// RecordAction journals the outcome of one executed action. It satisfies
// approval.Journal.
func (s *SQLiteStorage) RecordAction(ctx context.Context, action model.PendingAction, result model.ActionResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateActionResult(result); err != nil {
		return err
	}
	return s.recordActionTx(ctx, s.db, action, result)
}

func (s *SQLiteStorage) recordActionTx(ctx context.Context, q queryable, action model.PendingAction, result model.ActionResult) error {
	changes := result.Changes
	if changes == nil {
		changes = []model.Change{}
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("failed to marshal changes: %w", err)
	}

	errText := ""
	if result.Err != nil {
		errText = result.Err.Error()
	}
	appliedAt := result.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now()
	}
	identifier := result.Identifier
	if identifier == "" {
		identifier = action.Identifier
	}
	kind := result.Kind
	if kind == "" {
		kind = action.Fix.Kind
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO action_log (action_id, identifier, kind, status, error, changes, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, result.ActionID, identifier, string(kind), string(result.Status), errText, string(changesJSON), appliedAt)
	if err != nil {
		return fmt.Errorf("failed to record action: %w", err)
	}
	return nil
}

// GetActionLog returns journaled actions, newest first. An empty identifier
// returns entries for every identifier; a zero limit returns all entries.
func (s *SQLiteStorage) GetActionLog(ctx context.Context, identifier string, limit int) ([]service.ActionLogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getActionLogTx(ctx, s.db, identifier, limit)
}

func (s *SQLiteStorage) getActionLogTx(ctx context.Context, q queryable, identifier string, limit int) ([]service.ActionLogEntry, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	query := `
		SELECT action_id, identifier, kind, status, error, changes, applied_at
		FROM action_log
		WHERE (? = '' OR identifier = ?)
		ORDER BY applied_at DESC, id DESC`
	args := []any{identifier, identifier}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query action log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []service.ActionLogEntry
	for rows.Next() {
		var e service.ActionLogEntry
		var kind, status, changesJSON string
		if err := rows.Scan(&e.ActionID, &e.Identifier, &kind, &status, &e.Error, &changesJSON, &e.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action log entry: %w", err)
		}
		e.Kind = model.FixKind(kind)
		e.Status = model.ActionStatus(status)
		if err := json.Unmarshal([]byte(changesJSON), &e.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changes for action %s: %w", e.ActionID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
