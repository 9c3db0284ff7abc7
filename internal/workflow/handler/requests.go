package handler

// TransitionRequest is the body for submit/approve/reject calls.
//
// Fields is the caller-supplied domain snapshot the gate checks required
// fields against; the engine never reads domain storage itself.
type TransitionRequest struct {
	ToState string         `json:"to_state"`
	Comment string         `json:"comment,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}
