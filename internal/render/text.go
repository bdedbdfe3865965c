package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

// WriteText prints state the way a terminal user expects to read it
func WriteText(w io.Writer, state models.InteractionState) error {
	v := NewView(state)
	var b strings.Builder

	switch state.Phase {
	case models.PhaseIdle:
		b.WriteString("No file selected.\n")
	case models.PhaseSelected:
		fmt.Fprintf(&b, "Selected: %s (%d bytes, %s)\n", v.Selection.Name, v.Selection.Size, v.Selection.ContentType)
	case models.PhaseSubmitting:
		fmt.Fprintf(&b, "%s %s\n", BusyLabel, v.Selection.Name)
	case models.PhaseFailed:
		fmt.Fprintf(&b, "Error: %s\n", v.Error)
	case models.PhaseSucceeded:
		if v.Result == nil {
			break
		}
		b.WriteString("Validation Result\n")
		fmt.Fprintf(&b, "  Classification: %s\n", v.Result.Classification)
		fmt.Fprintf(&b, "  Details:\n%s\n", indent(v.Result.Details, "    "))
		fmt.Fprintf(&b, "  Metadata Flags: %s\n", v.Result.MetadataFlags)
		fmt.Fprintf(&b, "  Logo Verified:  %s\n", v.Result.LogoVerified)
		fmt.Fprintf(&b, "  Template OK:    %s\n", v.Result.TemplateOK)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
