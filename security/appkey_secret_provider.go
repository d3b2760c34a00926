package security

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-interactions/core"
)

type Option func(*AppKeySecretProvider)

type appKey struct {
	id      string
	version int
	key     []byte
}

// AppKeySecretProvider seals values with AES-GCM under an application key.
// Retired keys registered with WithPreviousKey can still open values sealed
// before a rotation; new values always use the current key.
type AppKeySecretProvider struct {
	current  appKey
	previous []appKey
}

func WithKeyID(id string) Option {
	return func(provider *AppKeySecretProvider) {
		trimmed := strings.TrimSpace(id)
		if trimmed != "" {
			provider.current.id = trimmed
		}
	}
}

func WithVersion(version int) Option {
	return func(provider *AppKeySecretProvider) {
		if version > 0 {
			provider.current.version = version
		}
	}
}

// WithPreviousKey registers a retired key for decryption only.
func WithPreviousKey(id string, version int, keyMaterial []byte) Option {
	return func(provider *AppKeySecretProvider) {
		material := bytes.TrimSpace(keyMaterial)
		if len(material) == 0 || version <= 0 {
			return
		}
		provider.previous = append(provider.previous, appKey{
			id:      strings.TrimSpace(id),
			version: version,
			key:     normalizeKey(material),
		})
	}
}

func NewAppKeySecretProvider(keyMaterial []byte, opts ...Option) (*AppKeySecretProvider, error) {
	key := bytes.TrimSpace(keyMaterial)
	if len(key) == 0 {
		return nil, fmt.Errorf("security: key material is required")
	}
	provider := &AppKeySecretProvider{
		current: appKey{
			id:      "app-key",
			version: 1,
			key:     normalizeKey(key),
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(provider)
	}
	return provider, nil
}

func NewAppKeySecretProviderFromString(key string, opts ...Option) (*AppKeySecretProvider, error) {
	return NewAppKeySecretProvider([]byte(key), opts...)
}

func (p *AppKeySecretProvider) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("security: plaintext is required")
	}
	gcm, err := newGCM(p.current.key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("security: nonce generation failed: %w", err)
	}

	return encodeEnvelope(envelope{
		KeyID:      p.current.id,
		Version:    p.current.version,
		Algorithm:  envelopeAlgorithm,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: encodeCiphertextPayload(gcm.Seal(nil, nonce, plaintext, nil)),
	})
}

func (p *AppKeySecretProvider) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	parsed, _, err := decodeEnvelope(ciphertext, true)
	if err != nil {
		return nil, err
	}
	if parsed.Algorithm != envelopeAlgorithm {
		return nil, fmt.Errorf("security: unsupported envelope algorithm %q", parsed.Algorithm)
	}

	key, ok := p.keyFor(parsed.KeyID, parsed.Version)
	if !ok {
		return nil, fmt.Errorf(
			"security: no key for id %q version %d (current %q version %d)",
			parsed.KeyID, parsed.Version, p.current.id, p.current.version,
		)
	}

	nonce, err := base64.StdEncoding.DecodeString(parsed.Nonce)
	if err != nil {
		return nil, fmt.Errorf("security: decode nonce: %w", err)
	}
	encryptedPayload, err := decodeCiphertextPayload(parsed.Ciphertext)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key.key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("security: invalid nonce size %d", len(nonce))
	}
	plaintext, err := gcm.Open(nil, nonce, encryptedPayload, nil)
	if err != nil {
		return nil, fmt.Errorf("security: decrypt payload: %w", err)
	}
	return plaintext, nil
}

// keyFor resolves the key an envelope was sealed with. Envelopes without
// key metadata are tried against the current key.
func (p *AppKeySecretProvider) keyFor(id string, version int) (appKey, bool) {
	candidates := append([]appKey{p.current}, p.previous...)
	for _, candidate := range candidates {
		if id != "" && id != candidate.id {
			continue
		}
		if version > 0 && version != candidate.version {
			continue
		}
		return candidate, true
	}
	return appKey{}, false
}

func (p *AppKeySecretProvider) KeyID() string {
	if p == nil {
		return ""
	}
	return p.current.id
}

func (p *AppKeySecretProvider) Version() int {
	if p == nil {
		return 0
	}
	return p.current.version
}

func (p *AppKeySecretProvider) Metadata() (string, int) {
	return p.KeyID(), p.Version()
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}
	return gcm, nil
}

func normalizeKey(value []byte) []byte {
	if len(value) == 16 || len(value) == 24 || len(value) == 32 {
		key := make([]byte, len(value))
		copy(key, value)
		return key
	}
	sum := sha256.Sum256(value)
	key := make([]byte, len(sum))
	copy(key, sum[:])
	return key
}

var _ core.SecretProvider = (*AppKeySecretProvider)(nil)
