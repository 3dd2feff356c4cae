package store

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/sjson"
)

const redactedValue = "[REDACTED]"

var secretKeywords = []string{
	"token", "secret", "password", "passwd",
	"apikey", "api_key", "authorization", "credential",
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range secretKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RedactSecrets replaces values of secret-looking keys in a JSON document
// with a placeholder. Non-JSON input is returned unchanged.
func RedactSecrets(doc string) string {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return doc
	}

	out := doc
	for _, p := range secretPaths(parsed, "") {
		if v, err := sjson.Set(out, p, redactedValue); err == nil {
			out = v
		}
	}
	return out
}

func secretPaths(obj map[string]any, prefix string) []string {
	var paths []string
	for key, val := range obj {
		p := escapePathKey(key)
		if prefix != "" {
			p = prefix + "." + p
		}
		if isSecretKey(key) {
			paths = append(paths, p)
			continue
		}
		if nested, ok := val.(map[string]any); ok {
			paths = append(paths, secretPaths(nested, p)...)
		}
	}
	return paths
}

func escapePathKey(key string) string {
	key = strings.ReplaceAll(key, ".", `\.`)
	return strings.ReplaceAll(key, "*", `\*`)
}
