package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/emocircle/pkg"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewIdentityService("secret", time.Hour)

	token, expiresAt, err := svc.Issue("fac-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "fac-1", claims.FacilitatorID)
}

func TestValidateRejectsForeignAndExpiredTokens(t *testing.T) {
	token, _, err := NewIdentityService("other", time.Hour).Issue("fac-1")
	require.NoError(t, err)

	_, err = NewIdentityService("secret", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	expired, _, err := NewIdentityService("secret", -time.Minute).Issue("fac-1")
	require.NoError(t, err)
	_, err = NewIdentityService("secret", time.Hour).ValidateToken(expired)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = NewIdentityService("secret", time.Hour).ValidateToken("garbage")
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestIssueRequiresFacilitator(t *testing.T) {
	_, _, err := NewIdentityService("secret", time.Hour).Issue(" ")
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestParseSenderPolicy(t *testing.T) {
	p, err := ParseSenderPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SenderAnonymous, p)

	p, err = ParseSenderPolicy("keep-replies")
	require.NoError(t, err)
	assert.Equal(t, SenderKeepReplies, p)

	_, err = ParseSenderPolicy("loud")
	assert.Error(t, err)
}

func TestRandomCode(t *testing.T) {
	code, err := RandomCode(6)
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, code)
}
