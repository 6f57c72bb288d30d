package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agenthive/auth-service/internal/autherr"
	"github.com/agenthive/auth-service/internal/domain"
)

func TestClassifyMissingOrMalformedHeader(t *testing.T) {
	c := NewTokenErrorClassifier()

	cases := map[string]string{
		"empty header":    "",
		"no prefix":       "Basic dXNlcjpwYXNz",
		"lowercase":       "bearer abc.def.ghi",
		"garbage token":   "Bearer not-a-jwt",
		"two segments":    "Bearer abc.def",
		"invalid base64":  "Bearer !!!.???.###",
		"prefix only":     "Bearer ",
		"random unstruct": "token token token",
	}
	for name, header := range cases {
		if got := c.Classify(header); got != autherr.AccessTokenInvalid {
			t.Fatalf("%s: expected ACCESS_TOKEN_INVALID, got %s", name, got.Value())
		}
	}
}

func TestClassifyExpiredToken(t *testing.T) {
	c := NewTokenErrorClassifier()
	keys := testKeypair(t)

	claims := jwt.MapClaims{
		"iss": "self",
		"sub": "some-subject",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(keys.Private)
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	if got := c.Classify("Bearer " + raw); got != autherr.AccessTokenExpired {
		t.Fatalf("expected ACCESS_TOKEN_EXPIRED, got %s", got.Value())
	}
}

func TestClassifyTokenWithoutExpClaim(t *testing.T) {
	c := NewTokenErrorClassifier()
	keys := testKeypair(t)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "s"}).SignedString(keys.Private)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if got := c.Classify("Bearer " + raw); got != autherr.AccessTokenExpired {
		t.Fatalf("expected ACCESS_TOKEN_EXPIRED for missing exp, got %s", got.Value())
	}
}

// A structurally valid, unexpired token always classifies as INTERNAL_ERROR,
// even when its signature was minted by a key this service has never seen.
// The classifier cannot tell a signature failure apart from any other
// internal failure.
func TestClassifyForgedUnexpiredTokenFallsThrough(t *testing.T) {
	c := NewTokenErrorClassifier()
	forged := NewTokenSigner(testKeypair(t))
	user := domain.RegisterUser("tester", "tester@example.com", "$2a$10$hash")

	raw, err := forged.SignAccessToken(user)
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}
	if got := c.Classify("Bearer " + raw); got != autherr.InternalError {
		t.Fatalf("expected INTERNAL_ERROR, got %s", got.Value())
	}
}
