package core

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ApplicationIDFromToken decodes the application id carried in the leading
// segment of a bot token.
func ApplicationIDFromToken(token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bot "))
	if token == "" {
		return "", fmt.Errorf("%w: bot token is required", ErrInvalidApplicationID)
	}
	segment, _, _ := strings.Cut(token, ".")
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "", fmt.Errorf("%w: bot token has no leading segment", ErrInvalidApplicationID)
	}

	var decoded []byte
	var err error
	for _, encoding := range []*base64.Encoding{
		base64.RawStdEncoding,
		base64.StdEncoding,
		base64.RawURLEncoding,
		base64.URLEncoding,
	} {
		decoded, err = encoding.DecodeString(segment)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidApplicationID, err)
	}

	id := strings.TrimSpace(string(decoded))
	if !isSnowflake(id) {
		return "", fmt.Errorf("%w: decoded segment is not a snowflake", ErrInvalidApplicationID)
	}
	return id, nil
}

func isSnowflake(value string) bool {
	if value == "" || len(value) > 20 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
