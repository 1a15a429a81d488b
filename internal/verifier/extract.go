package verifier

import (
	"encoding/json"
	"strings"
)

// ExtractJSONSpan returns the text from the first '{' through the last '}'.
// The span is greedy, not brace-balanced: prose before the object is skipped,
// but two separate objects yield one unparsable span.
func ExtractJSONSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(raw, "}")
	if end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// verdict is the object the model is instructed to emit
type verdict struct {
	Decision string
	Feedback string
}

// parseVerdict decodes span and requires non-empty string decision and feedback.
// Extra keys are ignored.
func parseVerdict(span string) (verdict, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(span), &obj); err != nil || obj == nil {
		return verdict{}, false
	}

	decision, _ := obj["decision"].(string)
	feedback, _ := obj["feedback"].(string)
	if decision == "" || feedback == "" {
		return verdict{}, false
	}

	return verdict{Decision: decision, Feedback: feedback}, true
}
