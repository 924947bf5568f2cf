package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	raw, err := IssueToken("s3cret", "alice", time.Hour)
	require.NoError(t, err)

	subject, err := ParseToken("s3cret", raw)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestParseTokenRejects(t *testing.T) {
	valid, err := IssueToken("s3cret", "alice", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken("s3cret", "alice", -time.Minute)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		raw    string
	}{
		{"wrong secret", "other", valid},
		{"expired", "s3cret", expired},
		{"unsigned", "s3cret", none},
		{"garbage", "s3cret", "not.a.token"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseToken(test.secret, test.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, err := IssueToken("", "alice", time.Hour)
	assert.Error(t, err)
}
