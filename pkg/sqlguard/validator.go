// Package sqlguard validates LLM-generated SQL before it reaches a target
// database: single-statement normalization, a read-only statement gate, and
// injection fingerprinting of user-supplied parameters.
package sqlguard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrNotReadOnly indicates the statement is not a read-only query.
	ErrNotReadOnly = errors.New("only read-only statements (SELECT, WITH, SHOW, EXPLAIN) are permitted")
)

// readOnlyKeywords are the statement-leading keywords the executor accepts.
var readOnlyKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"SHOW":    true,
	"EXPLAIN": true,
}

// ValidateReadOnly normalizes the SQL and rejects anything that is not a
// single read-only statement. Returns the normalized SQL on success.
func ValidateReadOnly(sqlQuery string) (string, error) {
	normalized, err := Normalize(sqlQuery)
	if err != nil {
		return "", err
	}
	if normalized == "" {
		return "", fmt.Errorf("empty SQL statement")
	}

	keyword := leadingKeyword(normalized)
	if !readOnlyKeywords[keyword] {
		return "", fmt.Errorf("%w (got %s)", ErrNotReadOnly, keyword)
	}

	return normalized, nil
}

// Normalize strips the trailing semicolon and rejects multi-statement input.
// Any semicolon remaining outside string literals after normalization means
// more than one statement.
func Normalize(sqlQuery string) (string, error) {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return "", nil
	}

	normalized := stripTrailingSemicolon(sqlQuery)

	if hasSemicolonOutsideStrings(normalized) {
		return "", ErrMultipleStatements
	}

	return normalized, nil
}

// leadingKeyword returns the first SQL keyword, uppercased, skipping
// leading comments.
func leadingKeyword(sqlQuery string) string {
	s := strings.TrimSpace(stripLeadingComments(sqlQuery))
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' {
			end++
			continue
		}
		break
	}
	return strings.ToUpper(s[:end])
}

// stripLeadingComments removes leading -- and /* */ comments.
func stripLeadingComments(s string) string {
	for {
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "--") {
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = s[idx+1:]
			continue
		}
		if strings.HasPrefix(s, "/*") {
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = s[idx+2:]
			continue
		}
		return s
	}
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handle both backslash escape (\') and SQL standard escape ('').
			// A doubled quote exits and immediately re-enters on the next
			// quote, which correctly keeps us inside the string.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and surrounding whitespace.
func stripTrailingSemicolon(sqlQuery string) string {
	trimmed := strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimRight(trimmed[:len(trimmed)-1], " \t\n\r")
	}
	return trimmed
}
