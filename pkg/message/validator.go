// Package message provides the shared message model, its field validators,
// and the message options accepted by every channel adapter.
package message

import (
	"regexp"
	"strings"
)

var (
	// Local part: dot-separated atoms without <>()[]\.,;: whitespace @ ", or a quoted string.
	// Domain: bracketed dotted quad, or labels ending in a TLD of at least two letters.
	emailPattern = regexp.MustCompile(`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`)

	urlPattern = regexp.MustCompile(`^((cc:|https:|http:|//|www\.)[a-zA-Z0-9:/.]*)$`)

	listSeparator = regexp.MustCompile(`[,;]`)
	whitespace    = regexp.MustCompile(`\s`)
)

// ValidateEmailSyntax reports whether candidate is a syntactically valid address.
func ValidateEmailSyntax(candidate string) bool {
	return emailPattern.MatchString(candidate)
}

// ValidateURLSyntax reports whether candidate looks like a URL accepted as an
// HTTP destination. The literals "http://localhost" and "localhost" are valid.
func ValidateURLSyntax(candidate string) bool {
	if candidate == "" {
		return false
	}
	if candidate == "http://localhost" || candidate == "localhost" {
		return true
	}
	return urlPattern.MatchString(candidate)
}

// SplitAddressList strips all whitespace from list and splits it on commas and semicolons.
// Empty entries are dropped.
func SplitAddressList(list string) []string {
	parts := listSeparator.Split(whitespace.ReplaceAllString(list, ""), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateEmailBatch validates every candidate and returns the valid ones joined
// with commas, in first-seen order without duplicates. ok is false when no
// candidate is valid, including when candidates is empty. Invalid addresses are
// appended to the message's validation errors.
func (m *Message) ValidateEmailBatch(candidates []string) (valid string, ok bool) {
	seen := make(map[string]struct{}, len(candidates))
	var good []string
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if ValidateEmailSyntax(c) {
			good = append(good, c)
			continue
		}
		m.validationErrors += c + "; "
	}
	if len(good) == 0 {
		return "", false
	}
	return strings.Join(good, ","), true
}

// ValidateEmailList is ValidateEmailBatch over a comma or semicolon separated string.
func (m *Message) ValidateEmailList(list string) (string, bool) {
	return m.ValidateEmailBatch(SplitAddressList(list))
}
