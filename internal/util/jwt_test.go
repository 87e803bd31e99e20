package util

import (
	"testing"
	"time"

	"learnhub_backend/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "a@b.c", Role: model.Admin}
	user.ID = 42

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, model.Admin, claims.Role)
	assert.Equal(t, "learnhub", claims.Issuer)
}

func TestParseJWT_Rejects(t *testing.T) {
	user := &model.User{Email: "a@b.c", Role: model.Student}

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseJWT(unsigned, "secret")
	assert.Error(t, err)
}

func TestValidateContentUpload(t *testing.T) {
	_, err := ValidateContentUpload("topics.json", []byte(`{"topics": []}`))
	assert.NoError(t, err)

	_, err = ValidateContentUpload("topics.yml", []byte("topics:\n  - slug: a\n"))
	assert.NoError(t, err)

	_, err = ValidateContentUpload("topics.exe", []byte(`{}`))
	assert.Error(t, err)

	_, err = ValidateContentUpload("topics.json", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	assert.Error(t, err)
}
