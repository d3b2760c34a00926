package core

import "strings"

const RedactedValue = "[REDACTED]"

// RedactSensitiveMap masks credentials in log fields. Interaction tokens,
// bot tokens and signatures are secrets; identifiers stay visible.
func RedactSensitiveMap(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	return redactSensitiveMap(fields)
}

func redactSensitiveMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if shouldRedactKey(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = redactSensitiveValue(value)
	}
	return target
}

func redactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactSensitiveMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactSensitiveValue(typed[i])
		}
		return out
	default:
		return value
	}
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	for _, marker := range []string{
		"token",
		"secret",
		"authorization",
		"signature",
		"app_key",
		"public_key",
		"password",
	} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

func isTraceabilityKey(key string) bool {
	switch key {
	case "interaction_id",
		"application_id",
		"guild_id",
		"channel_id",
		"message_id",
		"command",
		"custom_id",
		"idempotency_key",
		"fingerprint",
		"trace_id",
		"request_id":
		return true
	default:
		return false
	}
}
