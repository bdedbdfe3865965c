package models

import "time"

// ValidationResult is the verdict returned by the validation service on success.
// The shape is trusted as-is; no field-level checks are applied after decoding.
type ValidationResult struct {
	Classification string                 `json:"classification"`
	Details        map[string]interface{} `json:"details"`
	MetadataFlags  bool                   `json:"metadata_flags"` // true = metadata consistent
	LogoVerified   bool                   `json:"logo_verified"`
	TemplateOK     bool                   `json:"template_ok"`
}

// Clone returns a deep copy so callers can never mutate a result held elsewhere
func (r *ValidationResult) Clone() *ValidationResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Details != nil {
		out.Details = cloneValue(r.Details).(map[string]interface{})
	}
	return &out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

// Attempt outcomes recorded for every completed submission
const (
	OutcomeSucceeded       = "succeeded"
	OutcomeNoFileSelected  = "no_file_selected"
	OutcomeTransportFailed = "transport_failure"
	OutcomeNetworkFailed   = "network_failure"
)

// AttemptSummary is the history view of one completed submission. It never
// carries the session id, which doubles as the session cookie value.
type AttemptSummary struct {
	FileName       string    `json:"file_name,omitempty"`
	Outcome        string    `json:"outcome"`
	Classification string    `json:"classification,omitempty"`
	MetadataFlags  bool      `json:"metadata_flags"`
	LogoVerified   bool      `json:"logo_verified"`
	TemplateOK     bool      `json:"template_ok"`
	UpstreamStatus int       `json:"upstream_status,omitempty"`
	Message        string    `json:"message,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
