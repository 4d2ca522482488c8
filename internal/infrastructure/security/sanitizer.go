package security

import (
	"net/url"
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// Query and keyword parameters whose values are secrets.
var sensitiveParams = []string{"password", "sslpassword", "sslkey", "secret", "token"}

var keywordPassword = regexp.MustCompile(`(?i)\b(password|sslpassword)\s*=\s*('(?:[^'\\]|\\.)*'|\S+)`)

// SanitizeDSN masks the secrets of a PostgreSQL connection string so it can be
// logged. Both the URL form and the keyword/value form are handled.
func SanitizeDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}

	if !strings.Contains(dsn, "://") {
		return keywordPassword.ReplaceAllString(dsn, "${1}="+redactedValue)
	}

	u, err := url.Parse(dsn)
	if err != nil {
		// Unparseable URLs may still hold credentials before the last '@'.
		if at := strings.LastIndex(dsn, "@"); at > 0 {
			if scheme := strings.Index(dsn, "://"); scheme >= 0 && scheme+3 < at {
				return dsn[:scheme+3] + redactedValue + dsn[at:]
			}
		}
		return redactedValue
	}

	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), redactedValue)
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if isSensitive(key) {
				q.Set(key, redactedValue)
			}
		}
		u.RawQuery = q.Encode()
	}
	return unescapeRedaction(u.String())
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, p := range sensitiveParams {
		if key == p {
			return true
		}
	}
	return false
}

// url.URL escapes the brackets of the marker.
func unescapeRedaction(s string) string {
	return strings.ReplaceAll(s, url.QueryEscape(redactedValue), redactedValue)
}
