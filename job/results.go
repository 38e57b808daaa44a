package job

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxListedEntries caps how many businesses or contacts appear in a
// formatted result before truncating with an "N more" suffix.
const maxListedEntries = 10

// Results is the decoded shape of a harness result document. Optional
// fields are pointers so that absent values can be omitted from the
// rendered output rather than shown as placeholders.
type Results struct {
	Job        *ResultJob `json:"job"`
	Businesses []Business `json:"businesses"`
	Contacts   []Contact  `json:"contacts"`
}

// ResultJob carries the job summary echoed back by the harness.
type ResultJob struct {
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Business is one discovered business in a result document.
type Business struct {
	Name        string   `json:"name"`
	Rating      *float64 `json:"rating"`
	ReviewCount *int64   `json:"reviewCount"`
	Phone       *string  `json:"phone"`
	Website     *string  `json:"website"`
}

// Contact is one enriched contact in a result document.
type Contact struct {
	Name  *string `json:"name"`
	Role  *string `json:"role"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// FormatResults renders a harness result document for chat display.
// It is a pure function: sections whose data is absent are skipped, and
// list sections are truncated to the first 10 entries.
func FormatResults(raw json.RawMessage) string {
	var results Results
	// Best effort: an undecodable document renders as just the header.
	_ = json.Unmarshal(raw, &results)

	var out strings.Builder
	out.WriteString("📊 **Job Results**\n\n")

	if results.Job != nil {
		if results.Job.Description != "" {
			fmt.Fprintf(&out, "**Task**: %s\n", results.Job.Description)
		}
		if results.Job.Status != "" {
			fmt.Fprintf(&out, "**Status**: %s\n", results.Job.Status)
		}
		out.WriteString("\n")
	}

	if len(results.Businesses) > 0 {
		fmt.Fprintf(&out, "🏢 **Found %d Businesses:**\n\n", len(results.Businesses))

		for i, b := range results.Businesses {
			if i >= maxListedEntries {
				break
			}
			name := b.Name
			if name == "" {
				name = "Unknown"
			}
			fmt.Fprintf(&out, "%d. **%s**", i+1, name)
			if b.Rating != nil {
				fmt.Fprintf(&out, " ⭐ %.1f", *b.Rating)
			}
			if b.ReviewCount != nil {
				fmt.Fprintf(&out, " (%d reviews)", *b.ReviewCount)
			}
			out.WriteString("\n")

			if b.Phone != nil {
				fmt.Fprintf(&out, "   📞 %s\n", *b.Phone)
			}
			if b.Website != nil {
				fmt.Fprintf(&out, "   🌐 %s\n", *b.Website)
			}
			out.WriteString("\n")
		}

		if extra := len(results.Businesses) - maxListedEntries; extra > 0 {
			fmt.Fprintf(&out, "...and %d more\n\n", extra)
		}
	}

	if len(results.Contacts) > 0 {
		fmt.Fprintf(&out, "📇 **Found %d Contacts:**\n\n", len(results.Contacts))

		for i, c := range results.Contacts {
			if i >= maxListedEntries {
				break
			}
			if c.Name != nil {
				fmt.Fprintf(&out, "%d. **%s**", i+1, *c.Name)
				if c.Role != nil {
					fmt.Fprintf(&out, " (%s)", *c.Role)
				}
				out.WriteString("\n")
			}

			if c.Email != nil {
				fmt.Fprintf(&out, "   ✉️ %s\n", *c.Email)
			}
			if c.Phone != nil {
				fmt.Fprintf(&out, "   📞 %s\n", *c.Phone)
			}
			out.WriteString("\n")
		}

		if extra := len(results.Contacts) - maxListedEntries; extra > 0 {
			fmt.Fprintf(&out, "...and %d more\n\n", extra)
		}
	}

	return out.String()
}
