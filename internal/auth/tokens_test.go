package auth

import (
	"testing"
	"time"

	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestIssueAndVerify(t *testing.T) {
	manager := NewTokenManager("test-secret", 30*time.Minute)
	user := &domain.User{ID: 42, Email: "alice@example.com", Role: domain.UserRoleAdmin}

	token, err := manager.Issue(user, time.Now().UTC())
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := manager.Verify(token)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "alice@example.com", claims.Subject)
}

func TestVerifyExpiredToken(t *testing.T) {
	manager := NewTokenManager("test-secret", 30*time.Minute)
	user := &domain.User{ID: 42, Email: "alice@example.com", Role: domain.UserRoleUser}

	token, err := manager.Issue(user, time.Now().UTC().Add(-2*time.Hour))
	assert.NoError(t, err)

	_, err = manager.Verify(token)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-one", 30*time.Minute)
	verifier := NewTokenManager("secret-two", 30*time.Minute)

	token, err := issuer.Issue(&domain.User{ID: 1, Email: "a@b.com"}, time.Now().UTC())
	assert.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
}

func TestVerifyGarbage(t *testing.T) {
	manager := NewTokenManager("test-secret", 30*time.Minute)

	_, err := manager.Verify("not.a.token")
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
}
