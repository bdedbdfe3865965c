// Package render turns an interaction state into something a person can read.
package render

import (
	"encoding/json"

	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

const (
	Title       = "Authenticity Validator"
	SubmitLabel = "Upload and Validate"
	BusyLabel   = "Validating..."
)

// View is the presentation model of one interaction state
type View struct {
	Title       string
	ButtonLabel string
	CanSubmit   bool
	Busy        bool
	Selection   *models.Selection
	Error       string
	Result      *ResultView
}

// ResultView holds the display strings of a verdict
type ResultView struct {
	Classification string
	Details        string
	MetadataFlags  string
	LogoVerified   string
	TemplateOK     string
}

// NewView builds the view for state
func NewView(state models.InteractionState) View {
	v := View{
		Title:       Title,
		ButtonLabel: ButtonLabel(state),
		CanSubmit:   state.CanSubmit(),
		Busy:        state.Busy(),
		Selection:   state.Selection,
		Error:       state.Message,
	}
	if state.Phase == models.PhaseSucceeded && state.Result != nil {
		v.Result = NewResultView(state.Result)
	}
	return v
}

// NewResultView formats a verdict for display
func NewResultView(r *models.ValidationResult) *ResultView {
	return &ResultView{
		Classification: r.Classification,
		Details:        DetailsJSON(r.Details),
		MetadataFlags:  MetadataLabel(r.MetadataFlags),
		LogoVerified:   YesNo(r.LogoVerified),
		TemplateOK:     YesNo(r.TemplateOK),
	}
}

// ButtonLabel is the submit button caption for state
func ButtonLabel(state models.InteractionState) string {
	if state.Busy() {
		return BusyLabel
	}
	return SubmitLabel
}

// MetadataLabel renders the metadata consistency flag
func MetadataLabel(consistent bool) string {
	if consistent {
		return "OK"
	}
	return "Suspicious"
}

func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// DetailsJSON pretty-prints the free-form details with two-space indentation
func DetailsJSON(details map[string]interface{}) string {
	if details == nil {
		return "null"
	}
	data, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
