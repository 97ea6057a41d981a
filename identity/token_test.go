package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spacegame/users"
	"github.com/stretchr/testify/assert"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestTokenVerifier(t *testing.T) {
	assert := assert.New(t)
	verifier := TokenVerifier{SecretKey: testSecret}

	token, err := GenerateToken("bob@x.com", testSecret, time.Hour)
	if !assert.NoError(err) {
		return
	}
	email, err := verifier.Email(token)
	if assert.NoError(err) {
		assert.Equal(users.Email("bob@x.com"), email)
	}

	_, err = TokenVerifier{SecretKey: []byte("other secret")}.Email(token)
	assert.ErrorIs(err, ErrInvalidToken)

	_, err = verifier.Email("not.a.token")
	assert.ErrorIs(err, ErrInvalidToken)

	expired, err := GenerateToken("bob@x.com", testSecret, -time.Minute)
	if assert.NoError(err) {
		_, err = verifier.Email(expired)
		assert.ErrorIs(err, ErrTokenExpired)
	}
}

func TestTokenVerifierRejectsClaims(t *testing.T) {
	assert := assert.New(t)
	verifier := TokenVerifier{SecretKey: testSecret}

	sign := func(method jwt.SigningMethod, claims Claims) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString(testSecret)
		if err != nil {
			t.Fatal(err)
		}
		return token
	}
	expiresAt := jwt.NewNumericDate(time.Now().Add(time.Hour))

	_, err := verifier.Email(sign(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: expiresAt},
	}))
	assert.ErrorIs(err, ErrInvalidToken, "missing email")

	_, err = verifier.Email(sign(jwt.SigningMethodHS256, Claims{Email: "bob@x.com"}))
	assert.ErrorIs(err, ErrInvalidToken, "missing expiration")

	_, err = verifier.Email(sign(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: expiresAt},
		Email:            "bob@x.com",
	}))
	assert.ErrorIs(err, ErrInvalidToken, "unexpected signing method")
}
