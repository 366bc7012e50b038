package studio

import (
	"fmt"
	"strings"
)

// modificationKeywords route a chat message to the code modification
// endpoint when any of them occurs anywhere in it.
var modificationKeywords = []string{
	"change", "add", "modify", "update", "create", "implement", "fix", "code",
}

// IsCodeModificationRequest is a case-insensitive substring check against
// modificationKeywords. It is a heuristic: "address" matches "add", and
// prose such as "I can't fix my sleep schedule" is routed as a
// modification too.
func IsCodeModificationRequest(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range modificationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// FallbackReply is the canned answer for messages that are not code
// modification requests. It is produced locally.
func FallbackReply(message string) string {
	return fmt.Sprintf(`I understand you're asking about: "%s". I can help modify your code, explain it, or suggest improvements. Try asking me to add a feature or change something specific in your code.`, message)
}
