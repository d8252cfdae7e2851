package credentials

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// Connection status values stored alongside the key hash.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusTesting      = "testing"
)

const (
	keyLength      = 64 // hex characters
	hashIterations = 4096
	hashLength     = 32
)

// Store persists the single credential record. At most one credential
// exists at a time; Save replaces any previous hash.
type Store interface {
	Save(ctx context.Context, keyHash string, status string) error
	Get(ctx context.Context) (keyHash string, status string, err error)
	Delete(ctx context.Context) error
}

// Service issues and verifies the shared site API key. Raw keys are never
// persisted, only a salted PBKDF2 digest.
type Service struct {
	store   Store
	siteURL string
	salt    []byte
}

func NewService(store Store, siteURL, siteSecret string) *Service {
	salt := sha256.Sum256([]byte(siteSecret))
	return &Service{
		store:   store,
		siteURL: siteURL,
		salt:    salt[:],
	}
}

// Generate produces a new 64-character hex API key. The random bytes are
// mixed with a site/time digest and truncated back to 64 characters. The
// caller is responsible for handing the raw key to the operator; it is not
// stored here.
func (s *Service) Generate() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}

	key := hex.EncodeToString(b)

	siteData := sha256.Sum256([]byte(s.siteURL + strconv.FormatInt(time.Now().Unix(), 10)))
	key += hex.EncodeToString(siteData[:])

	return key[:keyLength], nil
}

// Hash returns the hex digest stored for a key. Deterministic: the same key
// always hashes to the same digest, so stored and presented keys compare.
func (s *Service) Hash(key string) string {
	digest := pbkdf2.Key([]byte(key), s.salt, hashIterations, hashLength, sha256.New)
	return hex.EncodeToString(digest)
}

// Store persists the hash of key and marks the connection as established.
func (s *Service) Store(ctx context.Context, key string) error {
	if err := s.store.Save(ctx, s.Hash(key), StatusConnected); err != nil {
		return fmt.Errorf("store API key: %w", err)
	}
	slog.Info("API key generated and stored")
	return nil
}

// Verify reports whether key matches the stored credential. Comparison is
// constant time to avoid a timing oracle.
func (s *Service) Verify(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}

	storedHash, _, err := s.store.Get(ctx)
	if err != nil {
		slog.Error("Failed to load stored API key hash", "error", err)
		return false
	}
	if storedHash == "" {
		return false
	}

	providedHash := s.Hash(key)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(providedHash)) == 1
}

// Revoke deletes the stored hash and marks the connection as dropped.
func (s *Service) Revoke(ctx context.Context) error {
	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("revoke API key: %w", err)
	}
	slog.Info("API key revoked")
	return nil
}

// HasKey reports whether a credential is currently stored.
func (s *Service) HasKey(ctx context.Context) bool {
	hash, _, err := s.store.Get(ctx)
	return err == nil && hash != ""
}

// Status returns the persisted connection status.
func (s *Service) Status(ctx context.Context) string {
	_, status, err := s.store.Get(ctx)
	if err != nil || status == "" {
		return StatusDisconnected
	}
	return status
}
