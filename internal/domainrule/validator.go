// Package domainrule validates an agent's widget-embedding allow-list.
//
// Entries are exact hosts ("example.com") or single-level wildcards
// ("*.example.com"), compared case-insensitively. All functions are pure;
// whether a reported conflict is a hard error or a warning is the caller's
// call.
package domainrule

import (
	"fmt"
	"strings"
)

// DefaultMaxPatterns caps the allow-list size when the caller does not
// configure its own limit.
const DefaultMaxPatterns = 20

// maxPatternLength bounds a single entry. 253 is the DNS hostname limit.
const maxPatternLength = 253

// Normalize lowercases and trims a pattern. All comparisons operate on
// normalized form.
func Normalize(pattern string) string {
	return strings.ToLower(strings.TrimSpace(pattern))
}

// Validate reports structural problems with a candidate allow-list: empty or
// malformed entries, oversized entries, case-insensitive duplicates, and a
// set over the limit. Duplicates are a validation error, deliberately
// distinct from the subsumption conflicts FindConflicts reports.
func Validate(patterns []string, maxPatterns int) []string {
	if maxPatterns <= 0 {
		maxPatterns = DefaultMaxPatterns
	}

	var errs []string
	if len(patterns) > maxPatterns {
		errs = append(errs, fmt.Sprintf("too many domain patterns: %d (limit %d)", len(patterns), maxPatterns))
	}

	seen := make(map[string]string, len(patterns))
	for _, raw := range patterns {
		p := Normalize(raw)
		if p == "" {
			errs = append(errs, "empty domain pattern")
			continue
		}
		if len(p) > maxPatternLength {
			errs = append(errs, fmt.Sprintf("domain pattern %q exceeds %d characters", raw, maxPatternLength))
			continue
		}
		if !validHost(strings.TrimPrefix(p, "*.")) || strings.Contains(strings.TrimPrefix(p, "*."), "*") {
			errs = append(errs, fmt.Sprintf("invalid domain pattern %q: expected a host like example.com or *.example.com", raw))
			continue
		}
		if prior, dup := seen[p]; dup {
			errs = append(errs, fmt.Sprintf("duplicate domain pattern %q (same as %q)", raw, prior))
			continue
		}
		seen[p] = raw
	}

	return errs
}

// FindConflicts reports redundant or subsumed entries in a candidate
// allow-list, one human-readable description per pair. Comparison is
// case-insensitive; literal duplicates are Validate's concern and produce no
// conflict here.
//
// The scan is pairwise O(n²). The set is capped at a handful of entries, so
// anything cleverer than that would be overdesign.
func FindConflicts(patterns []string) []string {
	var conflicts []string

	for i := 0; i < len(patterns); i++ {
		for j := i + 1; j < len(patterns); j++ {
			a := Normalize(patterns[i])
			b := Normalize(patterns[j])
			if a == b || a == "" || b == "" {
				continue
			}
			if c := coverage(a, b); c != "" {
				conflicts = append(conflicts, c)
			} else if c := coverage(b, a); c != "" {
				conflicts = append(conflicts, c)
			}
		}
	}

	return conflicts
}

// coverage reports how wildcard covers other, or "" when it does not.
func coverage(wildcard, other string) string {
	if !strings.HasPrefix(wildcard, "*.") {
		return ""
	}
	base := strings.TrimPrefix(wildcard, "*.")
	if other == base {
		return fmt.Sprintf("%q is redundant: already covered by wildcard %q", other, wildcard)
	}
	if strings.HasSuffix(other, "."+base) {
		return fmt.Sprintf("%q is already covered by %q", other, wildcard)
	}
	return ""
}

func validHost(host string) bool {
	if host == "" || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z':
			case r >= '0' && r <= '9':
			case r == '-':
			default:
				return false
			}
		}
	}
	return true
}
