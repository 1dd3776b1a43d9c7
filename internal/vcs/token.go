package vcs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"

	"l10ntrack/internal/common"
	"l10ntrack/pkg/errors"
)

const (
	// TokenEnv overrides any stored token.
	TokenEnv = "GITHUB_TOKEN"
	// DefaultTokenHost is the key stored tokens are filed under.
	DefaultTokenHost = "github.com"

	keyringService = "l10ntrack-tokens"
)

// TokenStore keeps provider access tokens in the system keyring, falling
// back to a 0600 JSON file when no keyring is available.
type TokenStore struct {
	filePath string
	mu       sync.RWMutex
}

// NewTokenStore creates a store whose fallback file lives under the user's home.
func NewTokenStore() *TokenStore {
	homeDir, _ := os.UserHomeDir()
	return NewTokenStoreAt(filepath.Join(homeDir, ".l10ntrack", "tokens.json"))
}

// NewTokenStoreAt creates a store with an explicit fallback file.
func NewTokenStoreAt(path string) *TokenStore {
	return &TokenStore{filePath: path}
}

// Get returns the token stored for host, or "".
func (ts *TokenStore) Get(host string) string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if token, err := keyring.Get(keyringService, host); err == nil {
		return token
	}
	return ts.readFile()[host]
}

// Set stores token for host.
func (ts *TokenStore) Set(host, token string) error {
	if token == "" {
		return errors.ValidationError("token", "", "must not be empty")
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := keyring.Set(keyringService, host, token); err == nil {
		return nil
	}

	tokens := ts.readFile()
	tokens[host] = token
	return ts.writeFile(tokens)
}

// Delete removes any token stored for host.
func (ts *TokenStore) Delete(host string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	_ = keyring.Delete(keyringService, host)

	tokens := ts.readFile()
	if _, ok := tokens[host]; !ok {
		return nil
	}
	delete(tokens, host)
	return ts.writeFile(tokens)
}

func (ts *TokenStore) readFile() map[string]string {
	tokens := make(map[string]string)
	if data, err := os.ReadFile(ts.filePath); err == nil {
		_ = json.Unmarshal(data, &tokens)
	}
	return tokens
}

func (ts *TokenStore) writeFile(tokens map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(ts.filePath), common.DirPermissionSecure); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to create token directory")
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode tokens")
	}
	if err := os.WriteFile(ts.filePath, data, common.FilePermissionSecure); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to write token file")
	}
	return nil
}

var defaultTokenStore = NewTokenStore()

// ResolveToken returns $GITHUB_TOKEN, else the token stored for github.com.
func ResolveToken() string {
	if token := os.Getenv(TokenEnv); token != "" {
		return token
	}
	return defaultTokenStore.Get(DefaultTokenHost)
}
