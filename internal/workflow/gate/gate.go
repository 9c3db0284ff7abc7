// Package gate implements the pure transition guard. Evaluate does no I/O
// and is deterministic: the same inputs always produce the same decision,
// which keeps it trivially safe under any scheduling model.
package gate

import (
	"sort"
	"strings"

	"flowgate/internal/workflow/models"
)

// Evaluate decides whether the actor may move a request from currentState to
// toState under the template's rules. Check order is fixed:
//
//  1. currentState must not be terminal, checked before and independently of
//     the transition table so a misconfigured template cannot reopen a
//     terminal record and terminal attempts always report TerminalState
//  2. a transition for (currentState, toState) must exist
//  3. the actor's role must match, unless the rule is the ANY wildcard
//  4. a transition that requires a comment refuses a blank one
//  5. every required field must be present and non-nil in the snapshot
func Evaluate(template *models.WorkflowTemplate, currentState, toState string, actor models.Actor, payload models.Payload) models.Decision {
	if template.IsTerminal(currentState) {
		return models.Deny(models.DenyTerminalState)
	}

	transition, ok := template.FindTransition(currentState, toState)
	if !ok {
		return models.Deny(models.DenyNoSuchTransition)
	}

	if transition.RequiredRole != models.RoleAny && transition.RequiredRole != actor.Role {
		return models.Deny(models.DenyRoleNotPermitted)
	}

	if transition.RequiresComment && strings.TrimSpace(payload.Comment) == "" {
		return models.Deny(models.DenyCommentRequired)
	}

	if len(transition.RequiredFields) > 0 {
		var missing []string
		for _, field := range transition.RequiredFields {
			if v, present := payload.Fields[field]; !present || v == nil {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return models.DenyWithFields(missing)
		}
	}

	return models.Allow()
}
