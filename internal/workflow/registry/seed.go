package registry

import (
	"flowgate/internal/workflow/models"
)

// Built-in entity types.
const (
	EntityTypeInvoice        = "invoice"
	EntityTypeOpportunity    = "opportunity"
	EntityTypeProjectClosure = "project_closure"
)

// Seed registers the built-in templates and freezes the registry. Operators
// extend the catalog here; end users never define graphs.
func Seed(r *Registry) error {
	for _, template := range []*models.WorkflowTemplate{
		invoiceTemplate(),
		opportunityTemplate(),
		projectClosureTemplate(),
	} {
		if err := r.Register(template); err != nil {
			return err
		}
	}
	r.Freeze()
	return nil
}

// invoiceTemplate: DRAFT -> APPLIED -> APPROVED -> ISSUED, with a rejection
// edge APPLIED -> DRAFT that demands a justification, and ISSUED -> VOID into
// the terminal state.
func invoiceTemplate() *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		EntityType:     EntityTypeInvoice,
		States:         []string{"DRAFT", "APPLIED", "APPROVED", "ISSUED", "VOID"},
		InitialState:   "DRAFT",
		TerminalStates: []string{"VOID"},
		Transitions: []models.Transition{
			{From: "DRAFT", To: "APPLIED", RequiredRole: models.RoleAny},
			{From: "APPLIED", To: "APPROVED", RequiredRole: "approver"},
			{From: "APPLIED", To: "DRAFT", RequiredRole: "approver", RequiresComment: true},
			{From: "APPROVED", To: "ISSUED", RequiredRole: "finance", RequiredFields: []string{"invoice_number", "amount"}},
			{From: "ISSUED", To: "VOID", RequiredRole: "finance", RequiresComment: true},
		},
	}
}

// opportunityTemplate: the sales pipeline with WON/LOST terminals and a
// resumable ON_HOLD parking state reachable from every active stage.
func opportunityTemplate() *models.WorkflowTemplate {
	activeStages := []string{"DISCOVERY", "QUALIFIED", "PROPOSAL", "NEGOTIATION"}

	transitions := []models.Transition{
		{From: "DISCOVERY", To: "QUALIFIED", RequiredRole: "sales"},
		{From: "QUALIFIED", To: "PROPOSAL", RequiredRole: "sales"},
		{From: "PROPOSAL", To: "NEGOTIATION", RequiredRole: "sales"},
		{From: "NEGOTIATION", To: "WON", RequiredRole: "sales_manager", RequiredFields: []string{"contract_value"}},
		{From: "NEGOTIATION", To: "LOST", RequiredRole: "sales_manager", RequiresComment: true},
	}
	for _, stage := range activeStages {
		transitions = append(transitions,
			models.Transition{From: stage, To: "ON_HOLD", RequiredRole: models.RoleAny, RequiresComment: true},
			models.Transition{From: "ON_HOLD", To: stage, RequiredRole: "sales_manager"},
		)
	}

	return &models.WorkflowTemplate{
		EntityType:     EntityTypeOpportunity,
		States:         []string{"DISCOVERY", "QUALIFIED", "PROPOSAL", "NEGOTIATION", "ON_HOLD", "WON", "LOST"},
		InitialState:   "DISCOVERY",
		TerminalStates: []string{"WON", "LOST"},
		Transitions:    transitions,
	}
}

// projectClosureTemplate: strictly forward, ARCHIVED terminal. Closure
// records are never reopened.
func projectClosureTemplate() *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		EntityType:     EntityTypeProjectClosure,
		States:         []string{"DRAFT", "SUBMITTED", "REVIEWED", "ARCHIVED"},
		InitialState:   "DRAFT",
		TerminalStates: []string{"ARCHIVED"},
		Transitions: []models.Transition{
			{From: "DRAFT", To: "SUBMITTED", RequiredRole: models.RoleAny},
			{From: "SUBMITTED", To: "REVIEWED", RequiredRole: "reviewer"},
			{From: "REVIEWED", To: "ARCHIVED", RequiredRole: "admin", RequiresComment: true},
		},
	}
}
