package worker

import "regexp"

// credentialPatterns masks known credential shapes before a line is ever
// exposed to a subscriber — mandatory, unconditional, and applied first
// in the reader pipeline. Long hex/base64 tokens, key=value secrets, and
// vendor-prefixed API keys are all covered; redaction must never let a
// raw credential through.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsk-[a-z0-9-]{10,}\b`),
	regexp.MustCompile(`(?i)\b(token|password|secret|api[_-]?key)\s*=\s*\S+`),
	regexp.MustCompile(`\b[a-f0-9]{32,}\b`),
	regexp.MustCompile(`\b[A-Za-z0-9+/]{40,}={0,2}\b`),
	regexp.MustCompile(`(?i)\bbearer\s+\S+`),
}

const redactedPlaceholder = "[REDACTED]"

// Redact masks every credential-shaped substring in line.
func Redact(line string) string {
	for _, p := range credentialPatterns {
		line = p.ReplaceAllString(line, redactedPlaceholder)
	}
	return line
}
