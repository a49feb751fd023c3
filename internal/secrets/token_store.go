package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "lazynotion"

// ErrTokenNotFound is returned when no token is stored for a workspace
var ErrTokenNotFound = errors.New("token not found in keyring")

// TokenSaveError wraps a keyring write failure
type TokenSaveError struct {
	Err     error
	Message string
}

func (e *TokenSaveError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *TokenSaveError) Unwrap() error { return e.Err }

// TokenReadError wraps a keyring read failure other than a missing entry
type TokenReadError struct {
	Err error
}

func (e *TokenReadError) Error() string {
	return fmt.Sprintf("failed to read token from keyring: %v", e.Err)
}

func (e *TokenReadError) Unwrap() error { return e.Err }

// TokenStore keeps API tokens in the OS keyring, one per workspace name
type TokenStore struct {
	service string
}

// NewTokenStore creates a token store under the application's service name
func NewTokenStore() *TokenStore {
	return &TokenStore{service: serviceName}
}

// Save stores a token. Empty tokens are not saved.
func (ts *TokenStore) Save(workspace, token string) error {
	if token == "" {
		return nil
	}
	if err := keyring.Set(ts.service, makeKey(workspace), token); err != nil {
		return &TokenSaveError{
			Err:     err,
			Message: "failed to save token to keyring",
		}
	}
	return nil
}

// Get retrieves a token from the keyring
func (ts *TokenStore) Get(workspace string) (string, error) {
	token, err := keyring.Get(ts.service, makeKey(workspace))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrTokenNotFound
		}
		return "", &TokenReadError{Err: err}
	}
	return token, nil
}

// Delete removes a token; a missing token is not an error
func (ts *TokenStore) Delete(workspace string) error {
	err := keyring.Delete(ts.service, makeKey(workspace))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// ResolveToken returns the configured token if set, else the stored one.
// The workspace is usually the database id.
func (ts *TokenStore) ResolveToken(configured, workspace string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return ts.Get(workspace)
}

func makeKey(workspace string) string {
	if workspace == "" {
		return "default"
	}
	return "notion:" + workspace
}
