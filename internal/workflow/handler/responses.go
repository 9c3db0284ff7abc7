package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"flowgate/internal/workflow/models"
	dErrors "flowgate/pkg/domain-errors"
)

// TransitionResponse reports a transition outcome. Denials are expected
// results, not errors, so they come back 200 with Committed=false and the
// reason for the caller to render.
type TransitionResponse struct {
	Committed     bool     `json:"committed"`
	State         string   `json:"state"`
	Version       int64    `json:"version"`
	DenyReason    string   `json:"deny_reason,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// StatusResponse is the read-path view of an approval request.
type StatusResponse struct {
	ID           string    `json:"id"`
	EntityType   string    `json:"entity_type"`
	EntityID     string    `json:"entity_id"`
	CurrentState string    `json:"current_state"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AuditEntryResponse is one line of the history view.
type AuditEntryResponse struct {
	SequenceNo int64     `json:"sequence_no"`
	FromState  string    `json:"from_state"`
	ToState    string    `json:"to_state"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Comment    string    `json:"comment,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TemplateResponse describes a template so clients can render legal actions.
type TemplateResponse struct {
	EntityType     string               `json:"entity_type"`
	States         []string             `json:"states"`
	InitialState   string               `json:"initial_state"`
	TerminalStates []string             `json:"terminal_states"`
	Transitions    []TransitionRuleView `json:"transitions"`
}

// TransitionRuleView is the client view of one transition rule.
type TransitionRuleView struct {
	From            string   `json:"from"`
	To              string   `json:"to"`
	RequiredRole    string   `json:"required_role"`
	RequiresComment bool     `json:"requires_comment"`
	RequiredFields  []string `json:"required_fields,omitempty"`
}

func newTransitionResponse(result *models.TransitionResult) TransitionResponse {
	resp := TransitionResponse{
		Committed: result.Committed,
		State:     result.State,
		Version:   result.Version,
	}
	if result.Denied != nil {
		resp.DenyReason = string(result.Denied.Reason)
		resp.MissingFields = result.Denied.MissingFields
	}
	return resp
}

func newStatusResponse(request *models.ApprovalRequest) StatusResponse {
	return StatusResponse{
		ID:           request.ID,
		EntityType:   request.EntityType,
		EntityID:     request.EntityID,
		CurrentState: request.CurrentState,
		Version:      request.Version,
		CreatedAt:    request.CreatedAt,
		UpdatedAt:    request.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation so every endpoint returns
// the same JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": dErrors.MessageOf(err),
	})
}
