// Package scrub redacts credentials, secrets, and sensitive filesystem paths
// from text before it is persisted or crosses the portal boundary.
//
// Scrubbing is idempotent: scrubbing already-scrubbed text returns it
// unchanged. Scrubbing never fails; unexpected value types pass through.
package scrub

import "regexp"

const (
	redacted     = "REDACTED"
	redactedCell = "[REDACTED]"
	redactedPath = "[REDACTED_PATH]"
	redactedHome = "[REDACTED_SENSITIVE_PATH]"
)

var (
	urlCredsRE   = regexp.MustCompile(`(https?://)([^/:@\s]+):([^/@\s]+)@`)
	queryParamRE = regexp.MustCompile(`(?i)([?&](?:api_key|token|auth|key|secret)=)[^&\s]+`)
	envSecretRE  = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*(?:API_KEY|TOKEN|SECRET))\s*=\s*\S+`)
	jsonSecretRE = regexp.MustCompile(`(?i)("(?:api_key|token|secret)"\s*:\s*")[^"]+(")`)
	authzRE      = regexp.MustCompile(`(?i)(Authorization:\s*Bearer\s+)\S+`)
	absPathRE    = regexp.MustCompile(`/(?:Users|home|root|etc|var/log)/[a-zA-Z0-9._/-]+`)
	homePathRE   = regexp.MustCompile(`~/[a-zA-Z0-9._/-]*\.(?:ssh|bash|zsh|aws|config|env|key|pem|pgp|gpg|token)[a-zA-Z0-9._/-]*`)

	sensitiveKeyRE = regexp.MustCompile(`(?i)(^|[_-])(secret|token|api[_-]?key|private[_-]?key|key)($|[_-])`)
)

// Text redacts sensitive material from a single string.
func Text(s string) string {
	if s == "" {
		return s
	}
	s = urlCredsRE.ReplaceAllString(s, "${1}"+redacted+":"+redacted+"@")
	s = queryParamRE.ReplaceAllString(s, "${1}"+redacted)
	s = envSecretRE.ReplaceAllString(s, "${1}="+redacted)
	s = jsonSecretRE.ReplaceAllString(s, "${1}"+redacted+"${2}")
	s = authzRE.ReplaceAllString(s, "${1}"+redacted)
	s = absPathRE.ReplaceAllString(s, redactedPath)
	s = homePathRE.ReplaceAllString(s, redactedHome)
	return s
}

// SensitiveKey reports whether a map key names secret material.
func SensitiveKey(k string) bool {
	return sensitiveKeyRE.MatchString(k)
}

// Value recursively redacts strings inside maps and slices. Map entries with
// a sensitive key are replaced wholesale. Unrecognized types pass through.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return Text(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if SensitiveKey(k) {
				out[k] = redactedCell
				continue
			}
			out[k] = Value(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Value(val)
		}
		return out
	default:
		return v
	}
}
