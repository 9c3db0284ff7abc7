package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"flowgate/internal/workflow/models"
	"flowgate/pkg/platform/sentinel"
)

// uniqueViolation is the postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// Store persists approval requests and their audit trail in PostgreSQL.
// This store is pure I/O; gate checks, retry policy, and event emission
// belong in the service.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed workflow store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema applies the workflow DDL. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure workflow schema: %w", err)
	}
	return nil
}

// GetOrCreate retrieves the tracked request or creates it at version 0.
// The ON CONFLICT upsert returns the surviving row either way, so two
// concurrent first submissions both observe the same request.
func (s *Store) GetOrCreate(ctx context.Context, entityType, entityID, initialState string) (*models.ApprovalRequest, error) {
	query := `
		INSERT INTO approval_requests (id, entity_type, entity_id, current_state, version)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET
			entity_type = EXCLUDED.entity_type
		RETURNING id, entity_type, entity_id, current_state, version, created_at, updated_at
	`
	request, err := scanRequest(s.db.QueryRowContext(ctx, query, uuid.New(), entityType, entityID, initialState))
	if err != nil {
		return nil, fmt.Errorf("get or create approval request: %w", err)
	}
	return request, nil
}

// Find returns the request or sentinel.ErrNotFound. Read-only.
func (s *Store) Find(ctx context.Context, entityType, entityID string) (*models.ApprovalRequest, error) {
	query := `
		SELECT id, entity_type, entity_id, current_state, version, created_at, updated_at
		FROM approval_requests
		WHERE entity_type = $1 AND entity_id = $2
	`
	request, err := scanRequest(s.db.QueryRowContext(ctx, query, entityType, entityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find approval request: %w", err)
	}
	return request, nil
}

// CompareAndSwap commits the state change and its audit entry in one
// transaction. The conditional UPDATE is the sole serialization point: when
// the stored version moved on, zero rows match and nothing is written.
func (s *Store) CompareAndSwap(ctx context.Context, requestID string, expectedVersion int64, newState string, entry models.AuditEntry) (*models.ApprovalRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin compare and swap: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	swap := `
		UPDATE approval_requests
		SET current_state = $2,
		    version       = version + 1,
		    updated_at    = NOW()
		WHERE id = $1 AND version = $3
		RETURNING id, entity_type, entity_id, current_state, version, created_at, updated_at
	`
	request, err := scanRequest(tx.QueryRowContext(ctx, swap, requestID, newState, expectedVersion))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifySwapMiss(ctx, requestID, expectedVersion)
		}
		return nil, fmt.Errorf("compare and swap: %w", err)
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = request.UpdatedAt
	}
	appendAudit := `
		INSERT INTO approval_audit
		    (request_id, sequence_no, from_state, to_state, actor_id, actor_role, comment, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.ExecContext(ctx, appendAudit,
		requestID,
		expectedVersion+1,
		entry.FromState,
		entry.ToState,
		entry.ActorID,
		entry.ActorRole,
		entry.Comment,
		entry.Timestamp,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, fmt.Errorf("audit sequence %d taken: %w", expectedVersion+1, sentinel.ErrConflict)
		}
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit compare and swap: %w", err)
	}
	return request, nil
}

// classifySwapMiss distinguishes a missing request from a version conflict
// after a zero-row conditional update.
func (s *Store) classifySwapMiss(ctx context.Context, requestID string, expectedVersion int64) error {
	var current int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM approval_requests WHERE id = $1`, requestID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("request %s: %w", requestID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("classify swap miss: %w", err)
	}
	return fmt.Errorf("request %s at version %d, expected %d: %w",
		requestID, current, expectedVersion, sentinel.ErrConflict)
}

// History returns audit entries ascending by sequence_no. The single query
// runs under postgres's statement snapshot, so an in-progress read never
// observes a half-committed transition.
func (s *Store) History(ctx context.Context, requestID string, afterSeq int64, limit int) ([]models.AuditEntry, error) {
	query := `
		SELECT request_id, sequence_no, from_state, to_state, actor_id, actor_role, comment, occurred_at
		FROM approval_audit
		WHERE request_id = $1 AND sequence_no > $2
		ORDER BY sequence_no ASC
	`
	args := []any{requestID, afterSeq}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		var occurredAt time.Time
		if err := rows.Scan(
			&entry.RequestID,
			&entry.SequenceNo,
			&entry.FromState,
			&entry.ToState,
			&entry.ActorID,
			&entry.ActorRole,
			&entry.Comment,
			&occurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Timestamp = occurredAt
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

type requestRow interface {
	Scan(dest ...any) error
}

func scanRequest(row requestRow) (*models.ApprovalRequest, error) {
	var request models.ApprovalRequest
	if err := row.Scan(
		&request.ID,
		&request.EntityType,
		&request.EntityID,
		&request.CurrentState,
		&request.Version,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}
