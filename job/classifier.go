package job

import "strings"

// multiStepPhrases are lexical cues that a request needs several
// coordinated actions rather than a single tool call.
var multiStepPhrases = []string{
	"and then",
	"after that",
	"next",
	"followed by",
	"and get me",
	"then draft",
	"then send",
	"analyze and",
	"find and",
	"get me the",
}

// compoundPhrases are phrasings that historically imply a
// discover+enrich or analyze+act sequence even without an explicit
// sequencing cue.
var compoundPhrases = []string{
	"point of contact",
	"contact info",
	"owner email",
	"decision maker",
	"analyze",
	"compare",
	"rank",
	"draft email",
	"outreach",
}

// actionVerbs are the verbs counted to detect multi-action requests.
var actionVerbs = []string{"find", "get", "analyze", "draft", "send"}

// IsComplex reports whether a user request requires multi-step autonomous
// execution rather than simple single-tool execution. It is pure,
// deterministic, and case-insensitive; toolResultCount is the number of tool
// results already produced for this turn.
func IsComplex(message string, toolResultCount int) bool {
	lower := strings.ToLower(message)

	for _, phrase := range multiStepPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	// A request naming two or more actions needs coordination even
	// without an explicit sequencing phrase.
	verbCount := 0
	for _, verb := range actionVerbs {
		verbCount += strings.Count(lower, verb)
	}
	if verbCount >= 2 {
		return true
	}

	for _, phrase := range compoundPhrases {
		if strings.Contains(lower, phrase) {
			// "get me the point of contact" = discover businesses + enrich contacts
			return true
		}
	}

	// If the model already called multiple tools, it's complex.
	return toolResultCount > 1
}
