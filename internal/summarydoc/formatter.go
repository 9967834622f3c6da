// Package summarydoc renders AI meeting summaries as plain-text documents
// suitable for upload alongside recording files.
package summarydoc

import (
	"strings"

	"github.com/meetops/zoom-to-drive/internal/zoom"
)

const disclaimer = "This summary was generated automatically by AI and may contain inaccuracies. Please verify important details against the recording or transcript."

// Format renders a meeting summary into a deterministic plain-text layout:
// title, date, an overview block when present and each detail section under
// an uppercased header, in input order.
func Format(topic, date string, detail *zoom.SummaryDetail) string {
	var b strings.Builder

	b.WriteString("Meeting Summary: " + topic + "\n")
	b.WriteString("Date: " + date + "\n")
	b.WriteString("\n")

	if overview := strings.TrimSpace(detail.SummaryOverview); overview != "" {
		b.WriteString("OVERVIEW\n")
		b.WriteString(overview + "\n")
		b.WriteString("\n")
	}

	if len(detail.SummaryDetails) > 0 {
		b.WriteString("FULL SUMMARY\n")
		b.WriteString("\n")
		for _, section := range detail.SummaryDetails {
			b.WriteString(strings.ToUpper(section.Label) + "\n")
			b.WriteString(section.Summary + "\n")
			b.WriteString("\n")
		}
	}

	b.WriteString("---\n")
	b.WriteString(disclaimer + "\n")

	return b.String()
}
