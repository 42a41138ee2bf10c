// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credstore propagates the session credential to outbound
// requests.
//
// The backend API lives on a different origin than the identity
// provider, so requests cannot rely on ambient cookie delivery. The
// Store republishes the bearer token into two independently readable
// records under the state directory - a canonical record and a
// provider-keyed record - so a reader can recover the token even if one
// channel is cleared. The in-memory copy stays authoritative for the
// life of the process; persistence failures degrade to a warning.
package credstore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jeranaias/clarion/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// canonicalFile is the preferred token record.
	canonicalFile = "token.json"

	// providerPrefix names the provider-patterned fallback records:
	// auth-token.<provider-host>.json.
	providerPrefix = "auth-token."

	// PublishTTL is the fixed lifetime of a published record. It is
	// independent of the token's actual remaining validity; server-side
	// validity is the source of truth and an expired-but-recorded token
	// simply fails at the API.
	PublishTTL = 7 * 24 * time.Hour

	// keyFile holds the sealing key for token records.
	keyFile = "token.key"
)

// ErrNoCredential is returned when no token is available in memory or
// in any storage record.
var ErrNoCredential = errors.New("no session credential available")

// =============================================================================
// RECORD TYPE
// =============================================================================

// record is the on-disk shape of a published credential.
//
// Secure and CrossSite are decided once at publish time by comparing
// the API origin against the issuing origin. They are never revisited
// at read time; if the process later runs against a different origin
// the attributes may mismatch and the record is simply not honored.
type record struct {
	Sealed    string    `json:"token_sealed"`
	Origin    string    `json:"origin"`
	Secure    bool      `json:"secure"`
	CrossSite bool      `json:"cross_site"`
	ExpiresAt time.Time `json:"expires_at"`
}

// =============================================================================
// STORE
// =============================================================================

// Store owns the process-wide session credential.
//
// Lifecycle: created at app start, torn down at sign-out via Clear.
// Writes are last-write-wins with no versioning; the token itself is
// the sole payload.
type Store struct {
	mu         sync.Mutex
	dir        string
	authOrigin string
	token      string
	key        []byte

	watcher *watcher // nil until Watch is called
}

// New creates a credential store rooted at dir. authOrigin is the
// origin of the identity provider that issues tokens; it is compared
// against the API origin at publish time to decide record attributes.
func New(dir, authOrigin string) *Store {
	return &Store{
		dir:        dir,
		authOrigin: authOrigin,
	}
}

// =============================================================================
// PUBLISH
// =============================================================================

// Publish stores the token in memory and mirrors it into both storage
// records. Persistence failures are logged and swallowed: the session
// remains valid in memory, and only a later process restart would lose
// it.
func (s *Store) Publish(token, apiOrigin string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if token == "" {
		return
	}

	crossSite, secure := originPolicy(s.authOrigin, apiOrigin)
	rec := record{
		Origin:    apiOrigin,
		Secure:    secure,
		CrossSite: crossSite,
		ExpiresAt: time.Now().Add(PublishTTL),
	}

	sealed, err := s.seal(token)
	if err != nil {
		log.Printf("credstore: token not persisted (seal failed): %v", err)
		return
	}
	rec.Sealed = sealed

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		log.Printf("credstore: token not persisted (encode failed): %v", err)
		return
	}

	for _, name := range []string{canonicalFile, s.providerFile()} {
		path := filepath.Join(s.dir, name)
		if err := util.AtomicWriteFilePrivate(path, data, 0600); err != nil {
			log.Printf("credstore: failed to write %s: %v", name, err)
		}
	}

	log.Printf("credstore: published credential %s (cross_site=%v)", fingerprint(token), crossSite)
}

// originPolicy decides the record attributes for a publish call.
// Cross-site delivery plus secure transport when the API origin differs
// from the issuing origin; the lax same-site default otherwise.
func originPolicy(authOrigin, apiOrigin string) (crossSite, secure bool) {
	authHost := hostOf(authOrigin)
	apiHost := hostOf(apiOrigin)
	crossSite = authHost != "" && apiHost != "" && authHost != apiHost
	secure = strings.HasPrefix(apiOrigin, "https://")
	if crossSite && !secure {
		log.Printf("credstore: cross-site record for %s lacks secure transport; it may not be honored", apiHost)
	}
	return crossSite, secure
}

func hostOf(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// providerFile derives the provider-patterned record name from the
// auth origin host.
func (s *Store) providerFile() string {
	host := hostOf(s.authOrigin)
	if host == "" {
		host = "default"
	}
	return providerPrefix + host + ".json"
}

// =============================================================================
// READ / ATTACH
// =============================================================================

// Attach sets the bearer authorization header from the most recently
// published token. A missing token is a no-op with a logged warning,
// not an error: unauthenticated requests may still be legitimate.
func (s *Store) Attach(h http.Header) {
	token, err := s.Token()
	if err != nil {
		log.Printf("credstore: no credential found; request will be unauthenticated")
		return
	}
	h.Set("Authorization", "Bearer "+token)
}

// Token returns the current credential, preferring the in-memory copy,
// then the canonical record, then any provider-patterned record.
func (s *Store) Token() (string, error) {
	s.mu.Lock()
	if s.token != "" {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	if token, ok := s.readRecord(filepath.Join(s.dir, canonicalFile)); ok {
		s.remember(token)
		return token, nil
	}

	// Provider-pattern fallback: any auth-token.*.json, newest first.
	matches, _ := filepath.Glob(filepath.Join(s.dir, providerPrefix+"*.json"))
	sort.Slice(matches, func(i, j int) bool {
		fi, errI := os.Stat(matches[i])
		fj, errJ := os.Stat(matches[j])
		if errI != nil || errJ != nil {
			return false
		}
		return fi.ModTime().After(fj.ModTime())
	})
	for _, path := range matches {
		if token, ok := s.readRecord(path); ok {
			s.remember(token)
			return token, nil
		}
	}

	return "", ErrNoCredential
}

// remember caches a token read back from disk.
func (s *Store) remember(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// readRecord loads and unseals one record file. Expired or unreadable
// records are skipped with a warning.
func (s *Store) readRecord(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("credstore: skipping malformed record %s: %v", filepath.Base(path), err)
		return "", false
	}
	if !rec.ExpiresAt.IsZero() && time.Now().After(rec.ExpiresAt) {
		log.Printf("credstore: skipping expired record %s", filepath.Base(path))
		return "", false
	}

	token, err := s.unseal(rec.Sealed)
	if err != nil {
		log.Printf("credstore: skipping unreadable record %s: %v", filepath.Base(path), err)
		return "", false
	}
	return token, true
}

// =============================================================================
// CLEAR (SIGN-OUT)
// =============================================================================

// Clear wipes the in-memory token and removes both storage records.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	var firstErr error
	for _, name := range []string{canonicalFile, s.providerFile()} {
		path := filepath.Join(s.dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to remove %s: %w", name, err)
			}
		}
	}
	return firstErr
}

// =============================================================================
// SEALING
// =============================================================================

// seal encrypts the token with a per-store key so records at rest never
// hold the bearer token in the clear.
func (s *Store) seal(token string) (string, error) {
	key, err := s.sealingKey()
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(token), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// unseal reverses seal.
func (s *Store) unseal(encoded string) (string, error) {
	key, err := s.sealingKey()
	if err != nil {
		return "", err
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode record: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	if len(sealed) < aead.NonceSize() {
		return "", errors.New("record too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	token, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open record: %w", err)
	}
	return string(token), nil
}

// sealingKey loads the sealing key, creating it on first use.
func (s *Store) sealingKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}

	path := filepath.Join(s.dir, keyFile)
	key, err := os.ReadFile(path)
	if err == nil && len(key) == chacha20poly1305.KeySize {
		s.key = key
		return key, nil
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate sealing key: %w", err)
	}
	if err := util.AtomicWriteFilePrivate(path, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to persist sealing key: %w", err)
	}
	s.key = key
	return key, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// fingerprint returns a short hash of the token for log lines.
// SECURITY: tokens are never logged; only the fingerprint is.
func fingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:4])
}
