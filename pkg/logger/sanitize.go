package logger

import (
	"net/url"
	"strings"
)

const redacted = "[REDACTED]"

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Mask all but the TLD
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

var sensitiveParams = []string{
	"password", "token", "secret", "api_key", "apikey", "email",
	"auth", "card", "username",
}

func isSensitive(param string) bool {
	p := strings.ToLower(param)
	for _, s := range sensitiveParams {
		if strings.Contains(p, s) {
			return true
		}
	}
	return false
}

// SanitizeQueryString returns rawQuery with the values of sensitive
// parameters replaced. An unparseable query is redacted entirely.
func SanitizeQueryString(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return redacted
	}
	for key := range values {
		if isSensitive(key) {
			values[key] = []string{redacted}
		}
	}
	return values.Encode()
}
