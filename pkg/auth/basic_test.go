package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicAuthenticator(t *testing.T) {
	asserts := assert.New(t)
	b := NewBasicAuthenticator("dav", map[string]string{
		"alice": HashPassword("secret"),
	})

	req := httptest.NewRequest("GET", "/dav/", nil)
	_, err := b.Authenticate(req)
	asserts.ErrorIs(err, ErrNoCredentials)

	req.SetBasicAuth("alice", "secret")
	user, err := b.Authenticate(req)
	asserts.NoError(err)
	asserts.Equal("alice", user.Name)

	req = httptest.NewRequest("GET", "/dav/", nil)
	req.SetBasicAuth("alice", "wrong")
	_, err = b.Authenticate(req)
	asserts.ErrorIs(err, ErrInvalidCredentials)

	req = httptest.NewRequest("GET", "/dav/", nil)
	req.SetBasicAuth("nobody", "secret")
	_, err = b.Authenticate(req)
	asserts.ErrorIs(err, ErrInvalidCredentials)

	asserts.Equal(`Basic realm="dav"`, b.Challenge())
}

func TestAnonymousAndDenyAll(t *testing.T) {
	asserts := assert.New(t)

	req := httptest.NewRequest("GET", "/dav/", nil)
	user, err := AnonymousAuthenticator{}.Authenticate(req)
	asserts.NoError(err)
	asserts.Nil(user)
	asserts.Empty(AnonymousAuthenticator{}.Challenge())

	d := DenyAllAuthenticator{Realm: "dav"}
	_, err = d.Authenticate(req)
	asserts.Error(err)
	asserts.Equal(`Basic realm="dav"`, d.Challenge())
}

func TestHashPassword(t *testing.T) {
	asserts := assert.New(t)
	asserts.Len(HashPassword("x"), 64)
	asserts.Equal(HashPassword("x"), HashPassword("x"))
	asserts.NotEqual(HashPassword("x"), HashPassword("y"))
}
