package models

import "time"

// ApprovalRequest tracks one entity's progress through its workflow template.
// Exactly one exists per (EntityType, EntityID); it is created lazily in the
// template's initial state and never deleted. Version is the optimistic
// concurrency token: every committed transition increments it by one.
type ApprovalRequest struct {
	ID           string
	EntityType   string
	EntityID     string
	CurrentState string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuditEntry is one immutable line of a request's history. SequenceNo is
// strictly increasing per request and equals the request version after the
// transition it records.
type AuditEntry struct {
	RequestID  string
	SequenceNo int64
	FromState  string
	ToState    string
	ActorID    string
	ActorRole  string
	Comment    string
	Timestamp  time.Time
}

// Payload carries the caller-supplied inputs the gate evaluates: the
// transition comment and a snapshot of domain fields. The engine never reads
// domain storage directly.
type Payload struct {
	Comment string
	Fields  map[string]any
}

// TransitionResult is the outcome of a transition attempt. Exactly one of
// Committed or Denied applies; retryable conflicts surface as errors, not
// results.
type TransitionResult struct {
	Committed bool
	State     string
	Version   int64
	Denied    *Decision
}
