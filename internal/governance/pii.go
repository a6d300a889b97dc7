package governance

import (
	"fmt"
	"regexp"
	"sort"
)

// piiPatterns are the identifying-content shapes scanned for in every
// string-bearing field before a row may be considered anonymized
var piiPatterns = map[string]*regexp.Regexp{
	"email":       regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	"phone":       regexp.MustCompile(`\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b`),
	"ssn":         regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	"ipv4":        regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	"credit_card": regexp.MustCompile(`\b\d{4}[-\s]\d{4}[-\s]\d{4}[-\s]\d{4}\b`),
}

// scanPII checks the named string fields for identifying content and returns
// one hit description per (field, pattern) match
func scanPII(fields map[string]string) []string {
	var hits []string
	for field, value := range fields {
		if value == "" {
			continue
		}
		for name, pattern := range piiPatterns {
			if pattern.MatchString(value) {
				hits = append(hits, fmt.Sprintf("pii %s in field %s", name, field))
			}
		}
	}
	// Map iteration order is random; sort for deterministic reports
	sort.Strings(hits)
	return hits
}
