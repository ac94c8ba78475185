package inference

import "regexp"

// NoTopics is the verdict meaning no topic was fully covered.
const NoTopics = "!"

// verdictPattern accepts only digits, whitespace, and exclamation marks over
// the whole string. Anything else is a malformed model response.
var verdictPattern = regexp.MustCompile(`^[0-9\s!]+$`)

// SanitizeVerdict coerces a raw model response into a well-formed verdict.
// Responses that are empty or contain any character outside the verdict
// alphabet collapse to NoTopics.
func SanitizeVerdict(raw string) string {
	if raw == "" || !verdictPattern.MatchString(raw) {
		return NoTopics
	}
	return raw
}
