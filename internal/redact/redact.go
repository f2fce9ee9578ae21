// Package redact provides utilities for redacting sensitive information from strings
// before they are logged or returned in error responses. Driver errors from the
// document store routinely embed connection strings and host names, so every
// error that reaches a log line goes through Error first.
package redact

import (
	"regexp"
	"sync"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedHostPlaceholder       = "[REDACTED_HOST]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
)

// Precompiled regex patterns, applied in order.
var (
	// Connection strings with embedded user info, e.g. mongodb+srv://user:pw@
	connCredRegex = regexp.MustCompile(`(?i)(mongodb(?:\+srv)?|postgres(?:ql)?|mysql|redis|amqp)://[^@\s/]+@`)

	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`)
	apiKeyRegex   = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	stackTraceRegex = regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`)

	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)
	winPathRegex  = regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`)

	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// Server addresses as reported by server selection errors: "cluster0.abcd.mongodb.net:27017"
	hostPortRegex = regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
	)

	patterns = []struct {
		re          *regexp.Regexp
		placeholder string
	}{
		{connCredRegex, RedactedCredentialPlaceholder},
		{passwordRegex, RedactedCredentialPlaceholder},
		{apiKeyRegex, RedactedKeyPlaceholder},
		{stackTraceRegex, "[STACK_TRACE_REDACTED]"},
		{emailRegex, RedactedEmailPlaceholder},
		{unixPathRegex, RedactedPathPlaceholder},
		{winPathRegex, RedactedPathPlaceholder},
		{hostPortRegex, RedactedHostPlaceholder},
	}

	mu sync.RWMutex
)

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	mu.RLock()
	defer mu.RUnlock()

	result := input
	for _, p := range patterns {
		result = p.re.ReplaceAllString(result, p.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
