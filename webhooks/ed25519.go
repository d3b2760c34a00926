package webhooks

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-interactions/core"
)

const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

var (
	ErrMissingSignature = errors.New("webhooks: signature header is required")
	ErrMissingTimestamp = errors.New("webhooks: timestamp header is required")
	ErrInvalidSignature = errors.New("webhooks: signature verification failed")
	ErrInvalidPublicKey = errors.New("webhooks: public key is invalid")
)

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

type VerifierFunc func(ctx context.Context, req core.InboundRequest) error

func (f VerifierFunc) Verify(ctx context.Context, req core.InboundRequest) error {
	return f(ctx, req)
}

// Ed25519Verifier checks the counterpart's signature over timestamp+body.
// The public key is decoded once, on first use, and shared through the
// process-wide key cache.
type Ed25519Verifier struct {
	publicKey string
	cache     *PublicKeyCache

	once sync.Once
	key  ed25519.PublicKey
	err  error
}

func NewEd25519Verifier(publicKeyHex string) *Ed25519Verifier {
	return &Ed25519Verifier{
		publicKey: strings.TrimSpace(publicKeyHex),
		cache:     DefaultKeyCache,
	}
}

// WithKeyCache swaps the cache the verifier imports its key through.
func (v *Ed25519Verifier) WithKeyCache(cache *PublicKeyCache) *Ed25519Verifier {
	if cache != nil {
		v.cache = cache
	}
	return v
}

func (v *Ed25519Verifier) PublicKey() (ed25519.PublicKey, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: verifier is nil", ErrInvalidPublicKey)
	}
	v.once.Do(func() {
		cache := v.cache
		if cache == nil {
			cache = DefaultKeyCache
		}
		v.key, v.err = cache.Import(v.publicKey)
	})
	return v.key, v.err
}

func (v *Ed25519Verifier) Verify(_ context.Context, req core.InboundRequest) error {
	signature := strings.TrimSpace(headerValue(req.Headers, HeaderSignature))
	if signature == "" {
		return ErrMissingSignature
	}
	timestamp := headerValue(req.Headers, HeaderTimestamp)
	if strings.TrimSpace(timestamp) == "" {
		return ErrMissingTimestamp
	}
	key, err := v.PublicKey()
	if err != nil {
		return err
	}

	sig, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: decode hex signature: %v", ErrInvalidSignature, err)
	}
	if len(sig) != ed25519.SignatureSize || sig[63]&224 != 0 {
		return fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
	}

	message := make([]byte, 0, len(timestamp)+len(req.Body))
	message = append(message, timestamp...)
	message = append(message, req.Body...)
	if !ed25519.Verify(key, message, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// PublicKeyCache memoizes decoded public keys by their hex form. Import is a
// pure function of the key string, so cached keys are shared freely.
type PublicKeyCache struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey
}

var DefaultKeyCache = NewPublicKeyCache()

func NewPublicKeyCache() *PublicKeyCache {
	return &PublicKeyCache{keys: make(map[string]ed25519.PublicKey)}
}

func (c *PublicKeyCache) Import(publicKeyHex string) (ed25519.PublicKey, error) {
	publicKeyHex = strings.ToLower(strings.TrimSpace(publicKeyHex))
	c.mu.RLock()
	key, ok := c.keys[publicKeyHex]
	c.mu.RUnlock()
	if ok {
		return key, nil
	}

	decoded, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, ed25519.PublicKeySize, len(decoded))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.keys[publicKeyHex]; ok {
		return existing, nil
	}
	key = ed25519.PublicKey(decoded)
	c.keys[publicKeyHex] = key
	return key, nil
}

func (c *PublicKeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	if value, ok := headers[key]; ok {
		return value
	}
	for candidate, value := range headers {
		if strings.EqualFold(candidate, key) {
			return value
		}
	}
	return ""
}
