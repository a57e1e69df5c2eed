package gate

import "regexp"

// The injection heuristic is pattern-based and intentionally conservative:
// it signals reject rather than attempting correction, since a false
// positive costs a resubmit while a false negative reaches the store.
// Known false positives: prose containing a double dash ("see notes --
// draft") and sentences that happen to pair a quote with OR/AND.
var sqlPatterns = []*regexp.Regexp{
	// Statement keywords that have no business in content fields.
	regexp.MustCompile(`(?i)\b(union\s+all\s+select|union\s+select)\b`),
	regexp.MustCompile(`(?i)\b(drop|alter|truncate)\s+table\b`),
	regexp.MustCompile(`(?i)\binsert\s+into\b`),
	regexp.MustCompile(`(?i)\bdelete\s+from\b`),
	regexp.MustCompile(`(?i)\bselect\s+.+\bfrom\b`),
	// Comment delimiters used to cut off the rest of a statement.
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*|\*/`),
	// Stacked statement after a terminator.
	regexp.MustCompile(`(?i);\s*(drop|delete|insert|update|exec)\b`),
	// Tautologies: ' OR 1=1, ' OR 'a'='a and friends.
	regexp.MustCompile(`(?i)\b(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`(?i)'\s*(or|and)\s+'[^']*'\s*=\s*'`),
	regexp.MustCompile(`(?i)'\s*(or|and)\s+\d`),
}

// DetectSQLInjection reports whether the value matches any of the heuristic
// injection patterns. A lone apostrophe ("O'Brien") does not trip it.
func DetectSQLInjection(value string) bool {
	for _, p := range sqlPatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}
