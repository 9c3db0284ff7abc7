// Package service implements the transition coordinator: the single choke
// point every workflow mutation funnels through.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"flowgate/internal/workflow/cache"
	"flowgate/internal/workflow/events"
	"flowgate/internal/workflow/gate"
	wfmetrics "flowgate/internal/workflow/metrics"
	"flowgate/internal/workflow/models"
	"flowgate/internal/workflow/registry"
	"flowgate/internal/workflow/store"
	dErrors "flowgate/pkg/domain-errors"
	"flowgate/pkg/platform/sentinel"
	"flowgate/pkg/requestcontext"
)

// defaultMaxAttempts bounds the compare-and-swap retry loop. The first
// committer wins; the loser re-evaluates against fresh state, which usually
// resolves to a legitimate deny rather than another attempt.
const defaultMaxAttempts = 3

const (
	outcomeCommitted = "committed"
	outcomeDenied    = "denied"
	outcomeBusy      = "busy"
)

// Service coordinates transitions: resolve template, load-or-create the
// request, gate, compare-and-swap with bounded retry, audit, emit.
type Service struct {
	registry    *registry.Registry
	store       store.Store
	emitter     events.Emitter
	cache       *cache.StatusCache
	metrics     *wfmetrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	maxAttempts int
}

type serviceConfig struct {
	emitter     events.Emitter
	cache       *cache.StatusCache
	metrics     *wfmetrics.Metrics
	logger      *slog.Logger
	maxAttempts int
}

// Option customizes optional service collaborators.
type Option func(*serviceConfig)

// WithEmitter sets the transition event emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(c *serviceConfig) { c.emitter = emitter }
}

// WithCache sets the read-through status cache.
func WithCache(statusCache *cache.StatusCache) Option {
	return func(c *serviceConfig) { c.cache = statusCache }
}

// WithMetrics sets the prometheus metrics.
func WithMetrics(m *wfmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

// WithMaxAttempts overrides the compare-and-swap retry bound.
func WithMaxAttempts(n int) Option {
	return func(c *serviceConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func New(reg *registry.Registry, st store.Store, opts ...Option) *Service {
	cfg := &serviceConfig{maxAttempts: defaultMaxAttempts}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.emitter == nil {
		cfg.emitter = events.NopEmitter{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Service{
		registry:    reg,
		store:       st,
		emitter:     cfg.emitter,
		cache:       cfg.cache,
		metrics:     cfg.metrics,
		logger:      cfg.logger,
		tracer:      otel.Tracer("flowgate/workflow"),
		maxAttempts: cfg.maxAttempts,
	}
}

// RequestTransition attempts to move (entityType, entityID) to toState.
//
// Gate denials come back as a non-committed result, not an error; nothing is
// written and the deny is not audited. A version conflict reloads and
// re-evaluates against fresh state, bounded by maxAttempts; exhaustion
// surfaces as CodeUnavailable ("busy"). Storage errors propagate unchanged.
func (s *Service) RequestTransition(ctx context.Context, entityType, entityID, toState string, actor models.Actor, payload models.Payload) (*models.TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.request_transition", trace.WithAttributes(
		attribute.String("workflow.entity_type", entityType),
		attribute.String("workflow.to_state", toState),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.ObserveTransitionLatency(time.Since(start))
	}()

	if actor.ID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "actor is required")
	}
	if toState == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "target state is required")
	}

	template, err := s.registry.Get(entityType)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		request, err := s.store.GetOrCreate(ctx, entityType, entityID, template.InitialState)
		if err != nil {
			return nil, err
		}

		decision := gate.Evaluate(template, request.CurrentState, toState, actor, payload)
		if !decision.Allowed {
			span.SetAttributes(attribute.String("workflow.outcome", outcomeDenied))
			s.metrics.IncrementTransition(entityType, outcomeDenied)
			s.metrics.IncrementDenial(string(decision.Reason))
			return &models.TransitionResult{
				State:   request.CurrentState,
				Version: request.Version,
				Denied:  &decision,
			}, nil
		}

		entry := models.AuditEntry{
			FromState: request.CurrentState,
			ToState:   toState,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Comment:   payload.Comment,
			Timestamp: requestcontext.Now(ctx),
		}

		updated, err := s.store.CompareAndSwap(ctx, request.ID, request.Version, toState, entry)
		if errors.Is(err, sentinel.ErrConflict) {
			// Another reviewer committed first. Reload and re-evaluate; the
			// gate usually turns the retry into a legitimate deny.
			s.metrics.IncrementVersionConflict()
			s.logger.InfoContext(ctx, "transition version conflict",
				"request_id", requestcontext.RequestID(ctx),
				"entity_type", entityType,
				"entity_id", entityID,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.cache.Invalidate(ctx, entityType, entityID)
		s.emitter.Publish(ctx, events.TransitionEvent{
			EntityType: entityType,
			EntityID:   entityID,
			FromState:  entry.FromState,
			ToState:    toState,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Version:    updated.Version,
			Timestamp:  entry.Timestamp,
		})

		span.SetAttributes(attribute.String("workflow.outcome", outcomeCommitted))
		s.metrics.IncrementTransition(entityType, outcomeCommitted)
		s.logger.InfoContext(ctx, "transition committed",
			"request_id", requestcontext.RequestID(ctx),
			"entity_type", entityType,
			"entity_id", entityID,
			"from_state", entry.FromState,
			"to_state", toState,
			"version", updated.Version,
			"actor_id", actor.ID,
		)
		return &models.TransitionResult{
			Committed: true,
			State:     updated.CurrentState,
			Version:   updated.Version,
		}, nil
	}

	span.SetAttributes(attribute.String("workflow.outcome", outcomeBusy))
	s.metrics.IncrementTransition(entityType, outcomeBusy)
	return nil, dErrors.Newf(dErrors.CodeUnavailable, "transition busy after %d attempts, retry", s.maxAttempts)
}

// Submit moves an entity toward review. A thin wrapper so domain modules
// read naturally; the template decides what the target state is allowed to be.
func (s *Service) Submit(ctx context.Context, entityType, entityID, toState string, actor models.Actor, payload models.Payload) (*models.TransitionResult, error) {
	return s.RequestTransition(ctx, entityType, entityID, toState, actor, payload)
}

// Approve advances an entity along a forward edge.
func (s *Service) Approve(ctx context.Context, entityType, entityID, toState string, actor models.Actor, payload models.Payload) (*models.TransitionResult, error) {
	return s.RequestTransition(ctx, entityType, entityID, toState, actor, payload)
}

// Reject moves an entity along a backward edge. Whether a justification is
// mandatory is the template's call (RequiresComment), not this wrapper's.
func (s *Service) Reject(ctx context.Context, entityType, entityID, toState string, actor models.Actor, payload models.Payload) (*models.TransitionResult, error) {
	return s.RequestTransition(ctx, entityType, entityID, toState, actor, payload)
}

// GetStatus returns the tracked request, consulting the cache first. A GET
// never creates rows: unknown entities yield CodeNotFound.
func (s *Service) GetStatus(ctx context.Context, entityType, entityID string) (*models.ApprovalRequest, error) {
	if _, err := s.registry.Get(entityType); err != nil {
		return nil, err
	}

	if cached := s.cache.Get(ctx, entityType, entityID); cached != nil {
		return cached, nil
	}

	request, err := s.store.Find(ctx, entityType, entityID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no approval request for %s/%s", entityType, entityID)
	}
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, request)
	return request, nil
}

// GetHistory returns the audit trail ascending by sequence number.
// afterSeq/limit page through long histories; limit <= 0 returns everything.
func (s *Service) GetHistory(ctx context.Context, entityType, entityID string, afterSeq int64, limit int) ([]models.AuditEntry, error) {
	if _, err := s.registry.Get(entityType); err != nil {
		return nil, err
	}

	request, err := s.store.Find(ctx, entityType, entityID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no approval request for %s/%s", entityType, entityID)
	}
	if err != nil {
		return nil, err
	}

	return s.store.History(ctx, request.ID, afterSeq, limit)
}

// DescribeTemplate exposes a template's states and transitions so clients
// can render the legal actions. The registry stays immutable.
func (s *Service) DescribeTemplate(entityType string) (*models.WorkflowTemplate, error) {
	return s.registry.Get(entityType)
}
