package job_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscout/leadscout/job"
)

func TestFormatResults_FullDocument(t *testing.T) {
	raw := json.RawMessage(`{
		"job": {"description": "Find plumbers in Austin", "status": "completed"},
		"businesses": [
			{"name": "Ace Plumbing", "rating": 4.5, "reviewCount": 120, "phone": "+1-512-555-0101", "website": "https://aceplumbing.example"},
			{"name": "Budget Pipes", "rating": 3.9}
		],
		"contacts": [
			{"name": "Jane Smith", "role": "Owner", "email": "jane@aceplumbing.example", "phone": "+1-512-555-0102"}
		]
	}`)

	out := job.FormatResults(raw)

	assert.Contains(t, out, "📊 **Job Results**")
	assert.Contains(t, out, "**Task**: Find plumbers in Austin")
	assert.Contains(t, out, "**Status**: completed")

	assert.Contains(t, out, "🏢 **Found 2 Businesses:**")
	assert.Contains(t, out, "1. **Ace Plumbing** ⭐ 4.5 (120 reviews)")
	assert.Contains(t, out, "📞 +1-512-555-0101")
	assert.Contains(t, out, "🌐 https://aceplumbing.example")
	assert.Contains(t, out, "2. **Budget Pipes** ⭐ 3.9")

	assert.Contains(t, out, "📇 **Found 1 Contacts:**")
	assert.Contains(t, out, "1. **Jane Smith** (Owner)")
	assert.Contains(t, out, "✉️ jane@aceplumbing.example")
}

func TestFormatResults_OmitsMissingOptionals(t *testing.T) {
	raw := json.RawMessage(`{
		"businesses": [{"name": "No Frills Co"}]
	}`)

	out := job.FormatResults(raw)

	assert.Contains(t, out, "1. **No Frills Co**")
	assert.NotContains(t, out, "⭐")
	assert.NotContains(t, out, "reviews")
	assert.NotContains(t, out, "📞")
	assert.NotContains(t, out, "🌐")
}

func TestFormatResults_TruncatesBusinesses(t *testing.T) {
	var businesses []map[string]any
	for i := 1; i <= 15; i++ {
		businesses = append(businesses, map[string]any{
			"name": fmt.Sprintf("Business %d", i),
		})
	}
	doc, err := json.Marshal(map[string]any{"businesses": businesses})
	require.NoError(t, err)

	out := job.FormatResults(doc)

	assert.Contains(t, out, "🏢 **Found 15 Businesses:**")
	assert.Contains(t, out, "10. **Business 10**")
	assert.NotContains(t, out, "**Business 11**")
	assert.Contains(t, out, "...and 5 more")
}

func TestFormatResults_TruncatesContacts(t *testing.T) {
	var contacts []map[string]any
	for i := 1; i <= 12; i++ {
		contacts = append(contacts, map[string]any{
			"name":  fmt.Sprintf("Contact %d", i),
			"email": fmt.Sprintf("c%d@example.com", i),
		})
	}
	doc, err := json.Marshal(map[string]any{"contacts": contacts})
	require.NoError(t, err)

	out := job.FormatResults(doc)

	assert.Contains(t, out, "📇 **Found 12 Contacts:**")
	assert.Contains(t, out, "**Contact 10**")
	assert.NotContains(t, out, "**Contact 11**")
	assert.Contains(t, out, "...and 2 more")
}

func TestFormatResults_ExactlyTenEntries(t *testing.T) {
	var businesses []map[string]any
	for i := 1; i <= 10; i++ {
		businesses = append(businesses, map[string]any{
			"name": fmt.Sprintf("Business %d", i),
		})
	}
	doc, err := json.Marshal(map[string]any{"businesses": businesses})
	require.NoError(t, err)

	out := job.FormatResults(doc)

	assert.Contains(t, out, "10. **Business 10**")
	assert.NotContains(t, out, "more")
}

func TestFormatResults_EmptyAndInvalid(t *testing.T) {
	for _, raw := range []json.RawMessage{
		json.RawMessage(`{}`),
		json.RawMessage(`not json at all`),
		nil,
	} {
		out := job.FormatResults(raw)
		assert.True(t, strings.HasPrefix(out, "📊 **Job Results**"))
		assert.NotContains(t, out, "Businesses")
		assert.NotContains(t, out, "Contacts")
	}
}

func TestFormatResults_UnnamedBusiness(t *testing.T) {
	raw := json.RawMessage(`{"businesses": [{"rating": 4.2}]}`)

	out := job.FormatResults(raw)

	assert.Contains(t, out, "1. **Unknown** ⭐ 4.2")
}
