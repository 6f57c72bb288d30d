package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/agenthive/auth-service/internal/autherr"
	"github.com/agenthive/auth-service/internal/http/response"
	"github.com/agenthive/auth-service/internal/observability"
	"github.com/agenthive/auth-service/internal/security"
)

const ClaimsContextKey contextKey = "claims"

// BearerAuth verifies the access token statelessly against the public key.
// A missing or garbled Authorization header is rejected outright; a present
// but failing bearer token is handed to the classifier, whose closed result
// set is matched exhaustively here.
func BearerAuth(signer *security.TokenSigner, classifier *security.TokenErrorClassifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				observability.RecordTokenValidation(r.Context(), "missing", autherr.AccessTokenInvalid.Value())
				response.AuthError(w, autherr.AccessTokenInvalid)
				return
			}

			raw := strings.TrimSpace(header[len("Bearer "):])
			claims, err := signer.ParseAccessToken(raw)
			if err != nil {
				code := classifier.Classify(header)
				switch code {
				case autherr.AccessTokenInvalid:
					observability.RecordTokenValidation(r.Context(), "malformed", code.Value())
				case autherr.AccessTokenExpired:
					observability.RecordTokenValidation(r.Context(), "expired", code.Value())
				default:
					observability.RecordTokenValidation(r.Context(), "unclassified", code.Value())
				}
				response.AuthError(w, code)
				return
			}

			observability.RecordTokenValidation(r.Context(), "valid", "")
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}
