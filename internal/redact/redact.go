// Package redact strips credentials from strings before they are logged.
// Extraction errors from the LLM client can echo request URLs that carry API
// keys, and database errors can echo connection strings.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted values.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedTokenPlaceholder      = "[REDACTED_TOKEN]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules are applied in order. Replacements may reference capture groups.
var rules = []rule{
	// user:password@ in connection strings
	{
		pattern:     regexp.MustCompile(`(?i)\b(postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis)://[^\s/@]+@`),
		replacement: "$1://" + RedactedCredentialPlaceholder + "@",
	},
	// key=... and api_key: ... style assignments, including URL query params
	{
		pattern:     regexp.MustCompile(`(?i)\b(api[_-]?key|key|token|secret|password)(\s*[=:]\s*["']?)[^\s"'&,;:]{4,}`),
		replacement: "${1}${2}" + RedactedKeyPlaceholder,
	},
	// Google API keys
	{
		pattern:     regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`),
		replacement: RedactedKeyPlaceholder,
	},
	// Authorization: Bearer ...
	{
		pattern:     regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9_\-.~+/]+=*`),
		replacement: "$1 " + RedactedTokenPlaceholder,
	},
}

// String redacts credentials from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts credentials from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
