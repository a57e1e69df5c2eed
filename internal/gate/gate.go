// Package gate is the validation and sanitization boundary for content
// mutations. Every write path passes through Submit exactly once; the gate
// never talks to a store itself, it only invokes the caller-supplied writer
// once the whole payload is valid.
package gate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// maxFieldLength clamps sanitized strings. Defense in depth, not a
// correctness guarantee.
const maxFieldLength = 1000

const maxEmailLength = 254

var (
	scriptTagPattern    = regexp.MustCompile(`(?i)<\s*/?\s*script[^>]*>`)
	uriSchemePattern    = regexp.MustCompile(`(?i)(javascript|vbscript|data)\s*:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	emailPattern        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Rule is the declarative per-field constraint set attached to a mutation's
// input schema. The zero value accepts anything.
type Rule struct {
	Required  bool
	Email     bool
	URL       bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	// SkipSQLCheck opts a field out of the injection heuristic, for fields
	// that legitimately carry SQL-looking prose (e.g. code snippets).
	SkipSQLCheck bool
}

// FieldError describes a single failed constraint. It is recoverable and
// surfaced inline; it never reaches a store.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors collects every failed field so callers can render the full set at
// once instead of fixing one field per round trip.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Sanitize strips script-tag sequences, javascript:/vbscript:/data: URI
// schemes, inline event-handler attribute patterns, and angle brackets, then
// trims whitespace and clamps the result. Removal runs to a fixed point so
// the output is idempotent under re-sanitization: nested payloads like
// "javasjavascript:cript:" cannot survive one pass and reappear clean.
func Sanitize(s string) string {
	out := s
	for {
		prev := out
		out = scriptTagPattern.ReplaceAllString(out, "")
		out = uriSchemePattern.ReplaceAllString(out, "")
		out = eventHandlerPattern.ReplaceAllString(out, "")
		out = strings.ReplaceAll(out, "<", "")
		out = strings.ReplaceAll(out, ">", "")
		if out == prev {
			break
		}
	}
	out = strings.TrimSpace(out)
	if runes := []rune(out); len(runes) > maxFieldLength {
		out = strings.TrimSpace(string(runes[:maxFieldLength]))
	}
	return out
}

// ValidateEmail accepts addresses of the form local@domain.tld, bounded at
// 254 characters.
func ValidateEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// ValidateURL accepts absolute http/https URLs only.
func ValidateURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ValidateField checks one value against its rule. Order is fixed:
// required, SQL-injection heuristic, then email/url/pattern/length. A field
// with no value and Required false short-circuits to valid.
func ValidateField(field, value string, rule Rule) error {
	trimmed := strings.TrimSpace(value)

	if trimmed == "" {
		if rule.Required {
			return &FieldError{Field: field, Message: "this field is required"}
		}
		return nil
	}

	if !rule.SkipSQLCheck && DetectSQLInjection(trimmed) {
		return &FieldError{Field: field, Message: "contains disallowed characters"}
	}

	if rule.Email && !ValidateEmail(trimmed) {
		return &FieldError{Field: field, Message: "invalid email address"}
	}

	if rule.URL && !ValidateURL(trimmed) {
		return &FieldError{Field: field, Message: "invalid URL"}
	}

	if rule.Pattern != nil && !rule.Pattern.MatchString(trimmed) {
		return &FieldError{Field: field, Message: "invalid format"}
	}

	if rule.MinLength > 0 && len([]rune(trimmed)) < rule.MinLength {
		return &FieldError{Field: field, Message: fmt.Sprintf("must be at least %d characters", rule.MinLength)}
	}

	if rule.MaxLength > 0 && len([]rune(trimmed)) > rule.MaxLength {
		return &FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters", rule.MaxLength)}
	}

	return nil
}

// Writer is the committed write the gate guards. It receives the sanitized
// payload and is only invoked when every field validated.
type Writer func(ctx context.Context, payload map[string]any) error

// Submit validates the whole payload against rules, collecting every field
// error rather than failing fast, sanitizes string values, and invokes the
// writer on success. Validation errors are returned as Errors and never
// reach the writer.
func Submit(ctx context.Context, payload map[string]any, rules map[string]Rule, writer Writer) error {
	errs := Errors{}
	for field, rule := range rules {
		value := ""
		if raw, ok := payload[field]; ok && raw != nil {
			value = fmt.Sprintf("%v", raw)
		}
		if err := ValidateField(field, value, rule); err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				errs[fe.Field] = fe.Message
			} else {
				errs[field] = err.Error()
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}

	sanitized := make(map[string]any, len(payload))
	for key, raw := range payload {
		if s, ok := raw.(string); ok {
			sanitized[key] = Sanitize(s)
			continue
		}
		sanitized[key] = raw
	}

	return writer(ctx, sanitized)
}
