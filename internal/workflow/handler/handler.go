// Package handler is the thin HTTP layer over the transition coordinator.
// It translates DTOs and context, never business logic.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"flowgate/internal/platform/middleware"
	"flowgate/internal/workflow/models"
	dErrors "flowgate/pkg/domain-errors"
	"flowgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks

// Service is the coordinator surface the handler needs.
type Service interface {
	Submit(ctx context.Context, entityType, entityID, toState string, actor models.Actor, payload models.Payload) (*models.TransitionResult, error)
	Approve(ctx context.Context, entityType, entityID, toState string, actor models.Actor, payload models.Payload) (*models.TransitionResult, error)
	Reject(ctx context.Context, entityType, entityID, toState string, actor models.Actor, payload models.Payload) (*models.TransitionResult, error)
	GetStatus(ctx context.Context, entityType, entityID string) (*models.ApprovalRequest, error)
	GetHistory(ctx context.Context, entityType, entityID string, afterSeq int64, limit int) ([]models.AuditEntry, error)
	DescribeTemplate(entityType string) (*models.WorkflowTemplate, error)
}

// Handler handles workflow endpoints.
type Handler struct {
	logger       *slog.Logger
	workflow     Service
	jwtValidator middleware.TokenValidator
}

// New creates a workflow Handler.
func New(workflow Service, logger *slog.Logger, jwtValidator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:       logger,
		workflow:     workflow,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the workflow routes with the shared middleware chain.
func (h *Handler) Register(r chi.Router) {
	workflowRouter := chi.NewRouter()
	workflowRouter.Use(middleware.Recovery(h.logger))
	workflowRouter.Use(middleware.RequestID)
	workflowRouter.Use(middleware.Logger(h.logger))
	workflowRouter.Use(middleware.Timeout(30 * time.Second))
	workflowRouter.Use(middleware.ContentTypeJSON)
	workflowRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	workflowRouter.Get("/templates/{entityType}", h.handleDescribeTemplate)
	workflowRouter.Post("/{entityType}/{entityID}/submit", h.transitionHandler(h.workflow.Submit))
	workflowRouter.Post("/{entityType}/{entityID}/approve", h.transitionHandler(h.workflow.Approve))
	workflowRouter.Post("/{entityType}/{entityID}/reject", h.transitionHandler(h.workflow.Reject))
	workflowRouter.Get("/{entityType}/{entityID}", h.handleStatus)
	workflowRouter.Get("/{entityType}/{entityID}/history", h.handleHistory)

	r.Mount("/workflow", workflowRouter)
}

type transitionFunc func(ctx context.Context, entityType, entityID, toState string, actor models.Actor, payload models.Payload) (*models.TransitionResult, error)

func (h *Handler) transitionHandler(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		entityType := chi.URLParam(r, "entityType")
		entityID := chi.URLParam(r, "entityID")

		actor := actorFromContext(ctx)
		if actor.ID == "" {
			// RequireAuth guarantees an actor; reaching here means the
			// middleware chain is miswired.
			h.logger.ErrorContext(ctx, "actor missing from context despite auth middleware",
				"request_id", requestcontext.RequestID(ctx),
			)
			writeError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.WarnContext(ctx, "invalid transition request",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}

		result, err := fn(ctx, entityType, entityID, req.ToState, actor, models.Payload{
			Comment: req.Comment,
			Fields:  req.Fields,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newTransitionResponse(result))
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	request, err := h.workflow.GetStatus(ctx, chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatusResponse(request))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	afterSeq := int64(0)
	if raw := r.URL.Query().Get("after_seq"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "after_seq must be a non-negative integer"))
			return
		}
		afterSeq = v
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = v
	}

	entries, err := h.workflow.GetHistory(ctx, chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"), afterSeq, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, AuditEntryResponse{
			SequenceNo: entry.SequenceNo,
			FromState:  entry.FromState,
			ToState:    entry.ToState,
			ActorID:    entry.ActorID,
			ActorRole:  entry.ActorRole,
			Comment:    entry.Comment,
			Timestamp:  entry.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *Handler) handleDescribeTemplate(w http.ResponseWriter, r *http.Request) {
	template, err := h.workflow.DescribeTemplate(chi.URLParam(r, "entityType"))
	if err != nil {
		writeError(w, err)
		return
	}

	rules := make([]TransitionRuleView, 0, len(template.Transitions))
	for _, tr := range template.Transitions {
		rules = append(rules, TransitionRuleView{
			From:            tr.From,
			To:              tr.To,
			RequiredRole:    tr.RequiredRole,
			RequiresComment: tr.RequiresComment,
			RequiredFields:  tr.RequiredFields,
		})
	}
	writeJSON(w, http.StatusOK, TemplateResponse{
		EntityType:     template.EntityType,
		States:         template.States,
		InitialState:   template.InitialState,
		TerminalStates: template.TerminalStates,
		Transitions:    rules,
	})
}

func actorFromContext(ctx context.Context) models.Actor {
	return models.Actor{
		ID:   requestcontext.ActorID(ctx),
		Role: requestcontext.ActorRole(ctx),
	}
}
