//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"flowgate/internal/workflow/models"
	"flowgate/internal/workflow/store/postgres"
	"flowgate/pkg/platform/sentinel"
	"flowgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "approval_audit", "approval_requests")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestGetOrCreateIsIdempotent() {
	ctx := context.Background()

	first, err := s.store.GetOrCreate(ctx, "invoice", "INV-1", "DRAFT")
	s.Require().NoError(err)
	s.Equal("DRAFT", first.CurrentState)
	s.Equal(int64(0), first.Version)
	s.NotEmpty(first.ID)

	second, err := s.store.GetOrCreate(ctx, "invoice", "INV-1", "DRAFT")
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
}

// TestConcurrentGetOrCreate verifies that racing creators all land on the
// same row thanks to the unique (entity_type, entity_id) constraint.
func (s *PostgresStoreSuite) TestConcurrentGetOrCreate() {
	ctx := context.Background()
	const goroutines = 20

	ids := make([]string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			request, err := s.store.GetOrCreate(ctx, "invoice", "INV-RACE", "DRAFT")
			s.Require().NoError(err)
			ids[idx] = request.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		s.Equal(ids[0], ids[i])
	}
}

func (s *PostgresStoreSuite) TestCompareAndSwapCommitsAtomically() {
	ctx := context.Background()

	request, err := s.store.GetOrCreate(ctx, "invoice", "INV-1", "DRAFT")
	s.Require().NoError(err)

	updated, err := s.store.CompareAndSwap(ctx, request.ID, 0, "APPLIED", models.AuditEntry{
		FromState: "DRAFT",
		ToState:   "APPLIED",
		ActorID:   "u-1",
		ActorRole: "owner",
		Timestamp: time.Now().UTC(),
	})
	s.Require().NoError(err)
	s.Equal("APPLIED", updated.CurrentState)
	s.Equal(int64(1), updated.Version)

	history, err := s.store.History(ctx, request.ID, 0, 0)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(int64(1), history[0].SequenceNo)
	s.Equal("u-1", history[0].ActorID)
}

func (s *PostgresStoreSuite) TestCompareAndSwapStaleVersion() {
	ctx := context.Background()

	request, err := s.store.GetOrCreate(ctx, "invoice", "INV-1", "DRAFT")
	s.Require().NoError(err)

	_, err = s.store.CompareAndSwap(ctx, request.ID, 0, "APPLIED", models.AuditEntry{
		FromState: "DRAFT", ToState: "APPLIED", ActorID: "u-1", ActorRole: "owner",
		Timestamp: time.Now().UTC(),
	})
	s.Require().NoError(err)

	_, err = s.store.CompareAndSwap(ctx, request.ID, 0, "APPLIED", models.AuditEntry{
		FromState: "DRAFT", ToState: "APPLIED", ActorID: "u-2", ActorRole: "owner",
		Timestamp: time.Now().UTC(),
	})
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// The losing swap wrote nothing.
	history, err := s.store.History(ctx, request.ID, 0, 0)
	s.Require().NoError(err)
	s.Len(history, 1)
}

func (s *PostgresStoreSuite) TestCompareAndSwapUnknownRequest() {
	ctx := context.Background()
	_, err := s.store.CompareAndSwap(ctx, "00000000-0000-0000-0000-000000000000", 0, "APPLIED", models.AuditEntry{
		FromState: "DRAFT", ToState: "APPLIED", ActorID: "u-1", ActorRole: "owner",
		Timestamp: time.Now().UTC(),
	})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentCompareAndSwap verifies that exactly one of many racing
// writers commits from the same version and the audit count tracks the
// version afterwards.
func (s *PostgresStoreSuite) TestConcurrentCompareAndSwap() {
	ctx := context.Background()

	request, err := s.store.GetOrCreate(ctx, "invoice", "INV-1", "DRAFT")
	s.Require().NoError(err)

	const goroutines = 10
	var commits, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.CompareAndSwap(ctx, request.ID, 0, "APPLIED", models.AuditEntry{
				FromState: "DRAFT", ToState: "APPLIED", ActorID: "u-1", ActorRole: "owner",
				Timestamp: time.Now().UTC(),
			})
			switch {
			case err == nil:
				commits.Add(1)
			default:
				s.Require().ErrorIs(err, sentinel.ErrConflict)
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), commits.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())

	current, err := s.store.Find(ctx, "invoice", "INV-1")
	s.Require().NoError(err)
	s.Equal(int64(1), current.Version)

	history, err := s.store.History(ctx, request.ID, 0, 0)
	s.Require().NoError(err)
	s.Len(history, int(current.Version))
}

func (s *PostgresStoreSuite) TestHistoryPaging() {
	ctx := context.Background()

	request, err := s.store.GetOrCreate(ctx, "invoice", "INV-1", "DRAFT")
	s.Require().NoError(err)

	states := []string{"APPLIED", "DRAFT", "APPLIED"}
	from := "DRAFT"
	for i, to := range states {
		_, err := s.store.CompareAndSwap(ctx, request.ID, int64(i), to, models.AuditEntry{
			FromState: from, ToState: to, ActorID: "u-1", ActorRole: "owner",
			Timestamp: time.Now().UTC(),
		})
		s.Require().NoError(err)
		from = to
	}

	all, err := s.store.History(ctx, request.ID, 0, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	for i, entry := range all {
		s.Equal(int64(i+1), entry.SequenceNo)
	}

	page, err := s.store.History(ctx, request.ID, 1, 1)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal(int64(2), page[0].SequenceNo)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	ctx := context.Background()
	_, err := s.store.Find(ctx, "invoice", "NOPE")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
