package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solspore/gaming/internal/domain"
)

func TestIssueAndVerify(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)

	token, err := ti.Issue(domain.Identity{UserID: "u1", Role: domain.RoleAdmin})
	require.NoError(t, err)

	identity, err := ti.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, domain.RoleAdmin, identity.Role)
	assert.True(t, identity.IsAdmin())
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)

	token, err := ti.Issue(domain.Identity{UserID: "u1", Role: domain.RoleUser})
	require.NoError(t, err)

	// Flip a character in the payload half.
	parts := strings.SplitN(token, ".", 2)
	require.Len(t, parts, 2)
	tampered := parts[0][:len(parts[0])-1] + "A" + "." + parts[1]
	if tampered == token {
		tampered = parts[0][:len(parts[0])-1] + "B" + "." + parts[1]
	}

	_, err = ti.Verify(tampered)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Hour)
	verifier := NewTokenIssuer("secret-b", time.Hour)

	token, err := issuer.Issue(domain.Identity{UserID: "u1", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	ti := NewTokenIssuer("secret", -time.Minute)

	token, err := ti.Issue(domain.Identity{UserID: "u1", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = ti.Verify(token)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)

	for _, token := range []string{"", "no-dot-here", "a.b.c", "!!!.###"} {
		_, err := ti.Verify(token)
		assert.Error(t, err, "token %q", token)
	}
}
