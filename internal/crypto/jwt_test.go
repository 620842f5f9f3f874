package crypto

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(ttl time.Duration) *Issuer {
	return NewIssuer(IssuerConfig{
		Secret:   "test-secret",
		Issuer:   "tripy-auth",
		Audience: "tripy-web",
		TTL:      ttl,
	})
}

// tamper flips one character in the middle of the signature segment.
func tamper(token string) string {
	i := strings.LastIndex(token, ".") + 5
	b := []byte(token)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func signRaw(t *testing.T, method jwt.SigningMethod, claims jwt.Claims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestIssueAndVerify(t *testing.T) {
	iss := newTestIssuer(0)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return fixed }

	token, err := iss.Issue("traveller@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "traveller@example.com", claims.Email)
	assert.Equal(t, fixed.UnixMilli(), claims.SignInTime)
	assert.NotEmpty(t, claims.ID)
	assert.Nil(t, claims.ExpiresAt, "no ttl means no exp claim")
}

func TestVerify_NoExpiryTokenValidYearsLater(t *testing.T) {
	iss := newTestIssuer(0)
	token, err := iss.Issue("a@b.c")
	require.NoError(t, err)

	iss.now = func() time.Time { return time.Now().AddDate(20, 0, 0) }

	_, err = iss.Verify(token)
	assert.NoError(t, err)
}

func TestVerify_Expired(t *testing.T) {
	iss := newTestIssuer(time.Hour)
	token, err := iss.Issue("a@b.c")
	require.NoError(t, err)

	iss.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, TokenExpired, StatusOf(err))
}

func TestVerify_TTLRequiresExp(t *testing.T) {
	noExp, err := newTestIssuer(0).Issue("a@b.c")
	require.NoError(t, err)

	_, err = newTestIssuer(time.Hour).Verify(noExp)
	assert.Equal(t, TokenInvalidClaims, StatusOf(err))
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := newTestIssuer(0).Issue("a@b.c")
	require.NoError(t, err)

	other := NewIssuer(IssuerConfig{Secret: "other", Issuer: "tripy-auth", Audience: "tripy-web"})
	_, err = other.Verify(token)
	assert.Equal(t, TokenSignatureMismatch, StatusOf(err))
}

func TestVerify_TamperedSignature(t *testing.T) {
	iss := newTestIssuer(0)
	for j := 0; j < 20; j++ {
		token, err := iss.Issue("a@b.c")
		require.NoError(t, err)

		_, err = iss.Verify(tamper(token))
		require.Error(t, err)
		assert.Equal(t, TokenSignatureMismatch, StatusOf(err))
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	iss := newTestIssuer(0)
	token, err := iss.Issue("a@b.c")
	require.NoError(t, err)

	other, err := iss.Issue("mallory@b.c")
	require.NoError(t, err)

	// header and signature of the first token with the payload of the second
	a := strings.Split(token, ".")
	b := strings.Split(other, ".")
	spliced := a[0] + "." + b[1] + "." + a[2]

	_, err = iss.Verify(spliced)
	assert.Equal(t, TokenSignatureMismatch, StatusOf(err))
}

func TestVerify_Malformed(t *testing.T) {
	_, err := newTestIssuer(0).Verify("not-a-valid-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)
	assert.Equal(t, TokenMalformed, StatusOf(err))
}

func TestVerify_Missing(t *testing.T) {
	_, err := newTestIssuer(0).Verify("")
	assert.Equal(t, TokenMissing, StatusOf(err))
}

func TestVerify_WrongIssuerAndAudience(t *testing.T) {
	iss := newTestIssuer(0)

	for name, rc := range map[string]jwt.RegisteredClaims{
		"issuer":   {Issuer: "someone-else", Audience: jwt.ClaimStrings{"tripy-web"}},
		"audience": {Issuer: "tripy-auth", Audience: jwt.ClaimStrings{"other-app"}},
	} {
		t.Run(name, func(t *testing.T) {
			token := signRaw(t, jwt.SigningMethodHS256, Claims{RegisteredClaims: rc, Email: "a@b.c"}, "test-secret")
			_, err := iss.Verify(token)
			assert.Equal(t, TokenInvalidClaims, StatusOf(err))
		})
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "tripy-auth", Audience: jwt.ClaimStrings{"tripy-web"}},
		Email:            "a@b.c",
	}
	token := signRaw(t, jwt.SigningMethodHS512, claims, "test-secret")

	_, err := newTestIssuer(0).Verify(token)
	assert.Equal(t, TokenSignatureMismatch, StatusOf(err))
}

func TestVerify_EmptyEmailRejected(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "tripy-auth", Audience: jwt.ClaimStrings{"tripy-web"}}}
	token := signRaw(t, jwt.SigningMethodHS256, claims, "test-secret")

	_, err := newTestIssuer(0).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalidClaims)
}

func TestTokenStatusString(t *testing.T) {
	assert.Equal(t, "valid", TokenValid.String())
	assert.Equal(t, "expired", TokenExpired.String())
	assert.Equal(t, "signature_mismatch", TokenSignatureMismatch.String())
	assert.Equal(t, "unknown", TokenStatus(99).String())
}
