// Package store defines the approval request persistence port. Stores are
// pure I/O; gate logic, retry policy, and event emission belong to the
// service layer.
package store

import (
	"context"

	"flowgate/internal/workflow/models"
)

//go:generate mockgen -source=store.go -destination=mocks/store-mocks.go -package=mocks Store

// Store owns all mutable workflow state. Every writer goes through
// CompareAndSwap; nothing bypasses it, including administrative fixes.
//
// Implementations return pkg/platform/sentinel errors for infrastructure
// facts (ErrNotFound, ErrConflict); the service translates them.
type Store interface {
	// GetOrCreate returns the tracked request for (entityType, entityID),
	// creating it at version 0 in initialState on first use. Atomic: two
	// concurrent callers observe the same single row. Idempotent, safe to
	// use as the re-query after an ambiguous timeout.
	GetOrCreate(ctx context.Context, entityType, entityID, initialState string) (*models.ApprovalRequest, error)

	// Find returns the request for (entityType, entityID) or
	// sentinel.ErrNotFound. Read-only; status queries use this so a GET
	// never creates rows.
	Find(ctx context.Context, entityType, entityID string) (*models.ApprovalRequest, error)

	// CompareAndSwap moves the request to newState and appends the audit
	// entry in one atomic commit, but only while the stored version still
	// equals expectedVersion; otherwise sentinel.ErrConflict and nothing is
	// written. The entry's SequenceNo is assigned by the store as
	// expectedVersion+1 so audit count always equals version.
	CompareAndSwap(ctx context.Context, requestID string, expectedVersion int64, newState string, entry models.AuditEntry) (*models.ApprovalRequest, error)

	// History returns audit entries for a request ascending by SequenceNo.
	// afterSeq/limit page through long histories; limit <= 0 means no limit.
	// The returned slice is an immutable snapshot.
	History(ctx context.Context, requestID string, afterSeq int64, limit int) ([]models.AuditEntry, error)
}
