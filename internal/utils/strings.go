package utils

import (
	"strings"
	"unicode"
)

// NormalizeEmail normalizes email addresses (lowercase and trim)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsInstitutionalEmail reports whether email is local@domain for one of the
// allowed domains. The local part must be non-empty and free of whitespace and '@'.
func IsInstitutionalEmail(email string, domains []string) bool {
	normalized := NormalizeEmail(email)
	at := strings.IndexByte(normalized, '@')
	if at <= 0 || at != strings.LastIndexByte(normalized, '@') {
		return false
	}

	local, domain := normalized[:at], normalized[at+1:]
	if strings.IndexFunc(local, unicode.IsSpace) >= 0 {
		return false
	}
	for _, d := range domains {
		if d != "" && domain == strings.ToLower(d) {
			return true
		}
	}
	return false
}

// IsValidEmail performs basic email validation
func IsValidEmail(email string) bool {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return false
	}

	parts := strings.Split(normalized, "@")
	if len(parts) != 2 {
		return false
	}

	if strings.IndexFunc(normalized, unicode.IsSpace) >= 0 {
		return false
	}

	local, domain := parts[0], parts[1]
	return len(local) > 0 && len(domain) > 2 && strings.Contains(domain, ".")
}
