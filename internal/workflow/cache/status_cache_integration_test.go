//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"flowgate/internal/platform/redis"
	"flowgate/internal/workflow/cache"
	"flowgate/internal/workflow/models"
	"flowgate/pkg/testutil/containers"
)

type StatusCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.StatusCache
}

func TestStatusCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StatusCacheSuite))
}

func (s *StatusCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.cache = cache.New(&redis.Client{Client: s.redis.Client}, time.Minute)
}

func (s *StatusCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *StatusCacheSuite) TestSetGetRoundTrip() {
	ctx := context.Background()
	request := &models.ApprovalRequest{
		ID: "req-1", EntityType: "invoice", EntityID: "INV-1",
		CurrentState: "APPLIED", Version: 1,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}

	s.cache.Set(ctx, request)

	cached := s.cache.Get(ctx, "invoice", "INV-1")
	s.Require().NotNil(cached)
	s.Equal(request.ID, cached.ID)
	s.Equal(request.CurrentState, cached.CurrentState)
	s.Equal(request.Version, cached.Version)
}

func (s *StatusCacheSuite) TestMissReturnsNil() {
	s.Nil(s.cache.Get(context.Background(), "invoice", "NOPE"))
}

func (s *StatusCacheSuite) TestInvalidateDropsEntry() {
	ctx := context.Background()
	request := &models.ApprovalRequest{
		ID: "req-1", EntityType: "invoice", EntityID: "INV-1",
		CurrentState: "APPLIED", Version: 1,
	}
	s.cache.Set(ctx, request)
	s.Require().NotNil(s.cache.Get(ctx, "invoice", "INV-1"))

	s.cache.Invalidate(ctx, "invoice", "INV-1")
	s.Nil(s.cache.Get(ctx, "invoice", "INV-1"))
}

func (s *StatusCacheSuite) TestTTLExpiry() {
	ctx := context.Background()
	short := cache.New(&redis.Client{Client: s.redis.Client}, 100*time.Millisecond)
	short.Set(ctx, &models.ApprovalRequest{
		ID: "req-1", EntityType: "invoice", EntityID: "INV-TTL", CurrentState: "DRAFT",
	})
	s.Require().NotNil(short.Get(ctx, "invoice", "INV-TTL"))

	time.Sleep(200 * time.Millisecond)
	s.Nil(short.Get(ctx, "invoice", "INV-TTL"))
}

func (s *StatusCacheSuite) TestNilCacheIsNoOp() {
	ctx := context.Background()
	var nilCache *cache.StatusCache
	nilCache.Set(ctx, &models.ApprovalRequest{ID: "req-1"})
	s.Nil(nilCache.Get(ctx, "invoice", "INV-1"))
	nilCache.Invalidate(ctx, "invoice", "INV-1")
}
