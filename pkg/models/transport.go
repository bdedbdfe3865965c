package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StateResponse is the JSON rendering of one controller's interaction state
type StateResponse struct {
	Phase     string            `json:"phase"`
	Busy      bool              `json:"busy"`
	CanSubmit bool              `json:"can_submit"`
	Selection *Selection        `json:"selection,omitempty"`
	Result    *ValidationResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// HistoryResponse lists recently completed attempts
type HistoryResponse struct {
	Attempts []AttemptSummary `json:"attempts"`
}
