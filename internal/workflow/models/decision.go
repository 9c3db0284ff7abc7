package models

// DenyReason enumerates why the gate refused a transition. Denials are
// expected outcomes, rendered as validation messages, never errors.
type DenyReason string

const (
	DenyNoSuchTransition DenyReason = "no_such_transition"
	DenyTerminalState    DenyReason = "terminal_state"
	DenyRoleNotPermitted DenyReason = "role_not_permitted"
	DenyCommentRequired  DenyReason = "comment_required"
	DenyMissingFields    DenyReason = "missing_fields"
)

// Decision is the gate evaluator's verdict on one transition attempt.
type Decision struct {
	Allowed       bool
	Reason        DenyReason
	MissingFields []string
}

// Allow returns the permitting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a refusing decision with the given reason.
func Deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// DenyWithFields returns a MissingFields refusal listing the absent fields.
func DenyWithFields(fields []string) Decision {
	return Decision{Reason: DenyMissingFields, MissingFields: fields}
}
