package models

// Phase names which of the five interaction states currently holds
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSelected
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:       "idle",
	PhaseSelected:   "selected",
	PhaseSubmitting: "submitting",
	PhaseSucceeded:  "succeeded",
	PhaseFailed:     "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// InteractionState is the single source of truth for what the interface shows.
// Result is only set in PhaseSucceeded and Message only in PhaseFailed.
// Selection is set in PhaseSelected and PhaseSubmitting.
type InteractionState struct {
	Phase     Phase
	Selection *Selection
	Result    *ValidationResult
	Message   string
}

// Busy reports whether a submission is in flight
func (s InteractionState) Busy() bool {
	return s.Phase == PhaseSubmitting
}

// CanSubmit mirrors the submit affordance: enabled only with a selection and no attempt in flight
func (s InteractionState) CanSubmit() bool {
	return s.Selection != nil && !s.Busy()
}

// Response converts the state into its JSON rendering
func (s InteractionState) Response() StateResponse {
	return StateResponse{
		Phase:     s.Phase.String(),
		Busy:      s.Busy(),
		CanSubmit: s.CanSubmit(),
		Selection: s.Selection,
		Result:    s.Result,
		Error:     s.Message,
	}
}
