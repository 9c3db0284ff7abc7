package models

import (
	dErrors "flowgate/pkg/domain-errors"
)

// RoleAny is the wildcard role: any authenticated actor may take the
// transition.
const RoleAny = "ANY"

// Actor identifies who is attempting a transition. Authentication happens at
// the boundary; the engine only matches the role against the transition rule.
type Actor struct {
	ID   string
	Role string
}

// Transition is one legal edge in a template's state graph. At most one
// transition may exist per (From, To) pair within a template.
type Transition struct {
	From            string
	To              string
	RequiredRole    string
	RequiresComment bool
	RequiredFields  []string
}

// WorkflowTemplate is the static declaration of states and legal transitions
// for one entity type. Templates are immutable once registered; the registry
// freezes at startup.
type WorkflowTemplate struct {
	EntityType     string
	States         []string
	InitialState   string
	TerminalStates []string
	Transitions    []Transition
}

// Validate enforces template well-formedness at registration time. These are
// operator configuration errors, fatal and never auto-recovered.
func (t *WorkflowTemplate) Validate() error {
	if t.EntityType == "" {
		return dErrors.New(dErrors.CodeBadRequest, "template entity type is required")
	}
	if len(t.States) == 0 {
		return dErrors.Newf(dErrors.CodeBadRequest, "template %s declares no states", t.EntityType)
	}
	if t.InitialState == "" {
		return dErrors.Newf(dErrors.CodeBadRequest, "template %s has no initial state", t.EntityType)
	}

	declared := make(map[string]struct{}, len(t.States))
	for _, s := range t.States {
		if s == "" {
			return dErrors.Newf(dErrors.CodeBadRequest, "template %s declares an empty state name", t.EntityType)
		}
		if _, dup := declared[s]; dup {
			return dErrors.Newf(dErrors.CodeBadRequest, "template %s declares state %s twice", t.EntityType, s)
		}
		declared[s] = struct{}{}
	}

	if _, ok := declared[t.InitialState]; !ok {
		return dErrors.Newf(dErrors.CodeBadRequest, "template %s initial state %s is not declared", t.EntityType, t.InitialState)
	}
	for _, s := range t.TerminalStates {
		if _, ok := declared[s]; !ok {
			return dErrors.Newf(dErrors.CodeBadRequest, "template %s terminal state %s is not declared", t.EntityType, s)
		}
	}

	seen := make(map[[2]string]struct{}, len(t.Transitions))
	for _, tr := range t.Transitions {
		if _, ok := declared[tr.From]; !ok {
			return dErrors.Newf(dErrors.CodeBadRequest, "template %s transition references undeclared state %s", t.EntityType, tr.From)
		}
		if _, ok := declared[tr.To]; !ok {
			return dErrors.Newf(dErrors.CodeBadRequest, "template %s transition references undeclared state %s", t.EntityType, tr.To)
		}
		key := [2]string{tr.From, tr.To}
		if _, dup := seen[key]; dup {
			return dErrors.Newf(dErrors.CodeBadRequest, "template %s declares transition %s -> %s twice", t.EntityType, tr.From, tr.To)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// HasState reports whether the template declares the state.
func (t *WorkflowTemplate) HasState(state string) bool {
	for _, s := range t.States {
		if s == state {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state is declared terminal.
func (t *WorkflowTemplate) IsTerminal(state string) bool {
	for _, s := range t.TerminalStates {
		if s == state {
			return true
		}
	}
	return false
}

// FindTransition returns the transition for (from, to) if the template
// declares one.
func (t *WorkflowTemplate) FindTransition(from, to string) (Transition, bool) {
	for _, tr := range t.Transitions {
		if tr.From == from && tr.To == to {
			return tr, true
		}
	}
	return Transition{}, false
}
