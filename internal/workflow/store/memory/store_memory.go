package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowgate/internal/workflow/models"
	"flowgate/pkg/platform/sentinel"
)

// Store is the in-memory Store implementation. A single mutex arbitrates all
// writers, which gives GetOrCreate and CompareAndSwap the same atomicity the
// postgres store gets from unique constraints and conditional updates.
type Store struct {
	mu        sync.RWMutex
	byEntity  map[string]*models.ApprovalRequest
	byID      map[string]*models.ApprovalRequest
	histories map[string][]models.AuditEntry
}

func New() *Store {
	return &Store{
		byEntity:  make(map[string]*models.ApprovalRequest),
		byID:      make(map[string]*models.ApprovalRequest),
		histories: make(map[string][]models.AuditEntry),
	}
}

func entityKey(entityType, entityID string) string {
	return entityType + "/" + entityID
}

func (s *Store) GetOrCreate(_ context.Context, entityType, entityID, initialState string) (*models.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entityKey(entityType, entityID)
	if existing, ok := s.byEntity[key]; ok {
		return copyRequest(existing), nil
	}

	now := time.Now()
	request := &models.ApprovalRequest{
		ID:           uuid.NewString(),
		EntityType:   entityType,
		EntityID:     entityID,
		CurrentState: initialState,
		Version:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byEntity[key] = request
	s.byID[request.ID] = request
	return copyRequest(request), nil
}

func (s *Store) Find(_ context.Context, entityType, entityID string) (*models.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.byEntity[entityKey(entityType, entityID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRequest(request), nil
}

func (s *Store) CompareAndSwap(_ context.Context, requestID string, expectedVersion int64, newState string, entry models.AuditEntry) (*models.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.byID[requestID]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", requestID, sentinel.ErrNotFound)
	}
	if request.Version != expectedVersion {
		return nil, fmt.Errorf("request %s at version %d, expected %d: %w",
			requestID, request.Version, expectedVersion, sentinel.ErrConflict)
	}

	request.CurrentState = newState
	request.Version = expectedVersion + 1
	request.UpdatedAt = time.Now()

	entry.RequestID = requestID
	entry.SequenceNo = request.Version
	if entry.Timestamp.IsZero() {
		entry.Timestamp = request.UpdatedAt
	}
	s.histories[requestID] = append(s.histories[requestID], entry)

	return copyRequest(request), nil
}

func (s *Store) History(_ context.Context, requestID string, afterSeq int64, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[requestID]; !ok {
		return nil, fmt.Errorf("request %s: %w", requestID, sentinel.ErrNotFound)
	}

	// Entries are appended in sequence order, so a filtered copy is already
	// sorted. Copying gives callers a stable snapshot.
	var out []models.AuditEntry
	for _, entry := range s.histories[requestID] {
		if entry.SequenceNo <= afterSeq {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func copyRequest(r *models.ApprovalRequest) *models.ApprovalRequest {
	c := *r
	return &c
}
