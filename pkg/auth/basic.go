package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrNoCredentials is returned when a request carries no Authorization
	// header.
	ErrNoCredentials = errors.New("auth: no credentials presented")
	// ErrInvalidCredentials is returned when the presented credentials do
	// not match a known user.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// BasicAuthenticator verifies HTTP Basic credentials against a static user
// table. Stored values are hex encoded SHA-256 digests of the plaintext
// passwords; comparison is constant time.
type BasicAuthenticator struct {
	realm string
	users map[string]string
}

// NewBasicAuthenticator builds an authenticator from a name → sha256hex
// credential table.
func NewBasicAuthenticator(realm string, users map[string]string) *BasicAuthenticator {
	return &BasicAuthenticator{realm: realm, users: users}
}

func (b *BasicAuthenticator) Authenticate(r *http.Request) (*User, error) {
	name, pass, ok := r.BasicAuth()
	if !ok {
		return nil, ErrNoCredentials
	}

	stored, ok := b.users[name]
	if !ok {
		// Burn a comparison anyway so unknown names cost the same as
		// known ones.
		stored = hex.EncodeToString(make([]byte, sha256.Size))
	}

	sum := sha256.Sum256([]byte(pass))
	presented := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) != 1 || !ok {
		return nil, ErrInvalidCredentials
	}

	return &User{Name: name}, nil
}

func (b *BasicAuthenticator) Challenge() string {
	return fmt.Sprintf("Basic realm=%q", b.realm)
}

// DenyAllAuthenticator rejects every request. It is installed when no
// authenticator is configured and anonymous access is disabled.
type DenyAllAuthenticator struct {
	Realm string
}

func (d DenyAllAuthenticator) Authenticate(r *http.Request) (*User, error) {
	return nil, ErrNoCredentials
}

func (d DenyAllAuthenticator) Challenge() string {
	return fmt.Sprintf("Basic realm=%q", d.Realm)
}

// HashPassword returns the hex encoded SHA-256 digest stored for a
// plaintext password.
func HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
