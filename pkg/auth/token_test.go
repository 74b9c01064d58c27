package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", "appcore", time.Hour)

	token, err := tm.Issue("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "appcore", claims.Issuer)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestTokenManager_Issue_EmptyUserID(t *testing.T) {
	tm := NewTokenManager("test-secret", "appcore", time.Hour)

	_, err := tm.Issue("")
	assert.Error(t, err)
}

func TestTokenManager_Verify_WrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", "appcore", time.Hour)
	other := NewTokenManager("other-secret", "appcore", time.Hour)

	token, err := tm.Issue("user-1")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestTokenManager_Verify_Expired(t *testing.T) {
	tm := NewTokenManager("test-secret", "appcore", time.Nanosecond)

	token, err := tm.Issue("user-1")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = tm.Verify(token)
	assert.Error(t, err)
}

func TestTokenManager_Verify_Garbage(t *testing.T) {
	tm := NewTokenManager("test-secret", "appcore", time.Hour)

	_, err := tm.Verify("not-a-token")
	assert.Error(t, err)
}

func TestNewTokenManager_DefaultTTL(t *testing.T) {
	tm := NewTokenManager("test-secret", "appcore", 0)
	assert.Equal(t, DefaultTokenTTL, tm.ttl)
}
