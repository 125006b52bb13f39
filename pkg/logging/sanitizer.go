// Package logging keeps secrets out of log output.
package logging

import "regexp"

const redacted = "[REDACTED]"

// Credentials reach error text two ways: database drivers echo the DSN
// back on connection failures, and provider clients quote request
// parameters. Each pattern strips one of those shapes.
var redactions = []struct {
	pattern *regexp.Regexp
	replace string
}{
	// password=..., pwd=..., pass=... in key-value DSNs
	{regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`), "${1}=" + redacted},
	// bearer tokens quoted from auth headers
	{regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`), "Bearer " + redacted},
	// api keys long enough to be real; short values stay readable
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`), "${1}=" + redacted},
	// user:pass@host in URL-style connection strings
	{regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`), "://" + redacted + "@" + redacted},
}

// SanitizeError redacts credentials from an error before it is logged.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, r := range redactions {
		msg = r.pattern.ReplaceAllString(msg, r.replace)
	}
	return msg
}
