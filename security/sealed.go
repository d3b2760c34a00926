package security

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-interactions/core"
)

// SealString encrypts value into a prefixed envelope suitable for config
// files and environment variables.
func SealString(ctx context.Context, provider core.SecretProvider, value string) (string, error) {
	if provider == nil {
		return "", fmt.Errorf("security: secret provider is required")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("security: value is required")
	}
	sealed, err := provider.Encrypt(ctx, []byte(value))
	if err != nil {
		return "", err
	}
	return string(sealed), nil
}

// UnsealString returns plain values unchanged and decrypts sealed ones.
// A sealed value without a provider is an error.
func UnsealString(ctx context.Context, provider core.SecretProvider, value string) (string, error) {
	value = strings.TrimSpace(value)
	if !IsSealed(value) {
		return value, nil
	}
	if provider == nil {
		return "", fmt.Errorf("security: sealed value requires an app key")
	}
	plain, err := provider.Decrypt(ctx, []byte(value))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(plain)), nil
}
