package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/agenthive/auth-service/internal/autherr"
	"github.com/agenthive/auth-service/internal/domain"
	"github.com/agenthive/auth-service/internal/http/middleware"
	"github.com/agenthive/auth-service/internal/http/response"
	"github.com/agenthive/auth-service/internal/observability"
	"github.com/agenthive/auth-service/internal/service"
)

const refreshTokenCookie = "refreshToken"

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthHandler struct {
	signup *service.SignupService
	signin service.SignInProvider
	tokens service.TokenProvider
}

func NewAuthHandler(signup *service.SignupService, signin service.SignInProvider, tokens service.TokenProvider) *AuthHandler {
	return &AuthHandler{signup: signup, signin: signin, tokens: tokens}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.AuthError(w, autherr.InvalidSignupCredentials)
		return
	}

	if err := h.signup.Signup(r.Context(), req.Username, req.Email, req.Password); err != nil {
		writeAuthFailure(w, err)
		return
	}

	observability.Audit(r, "auth.signup", "username", req.Username)
	w.WriteHeader(http.StatusCreated)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.AuthError(w, autherr.InvalidLoginCredentials)
		return
	}

	ctx := service.WithRequestMetadata(r.Context(), r.RemoteAddr, r.UserAgent())

	user, err := h.signin.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		writeAuthFailure(w, err)
		return
	}

	pair, err := h.tokens.Issue(ctx, user)
	if err != nil {
		writeAuthFailure(w, err)
		return
	}

	http.SetCookie(w, assembleRefreshCookie(pair))
	observability.Audit(r, "auth.signin", "principal_id", user.ID.String())
	response.OK(w, pair.AccessToken)
}

// Me is the protected sample endpoint behind the bearer middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.AuthError(w, autherr.InternalError)
		return
	}
	response.OK(w, map[string]string{
		"subject": claims.Subject,
		"scope":   claims.Scope,
	})
}

// assembleRefreshCookie hands the opaque refresh token to the client; the
// Max-Age is the remaining lifetime computed at response assembly.
func assembleRefreshCookie(pair domain.TokenPair) *http.Cookie {
	maxAge := int(time.Until(pair.RefreshToken.ExpiresAt).Seconds())
	return &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken.Token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   maxAge,
	}
}

// writeAuthFailure converts service-layer failures at the boundary exactly
// once; anything unclassified collapses to INTERNAL_ERROR.
func writeAuthFailure(w http.ResponseWriter, err error) {
	var authErr *autherr.Error
	if errors.As(err, &authErr) {
		response.AuthErrorResponse(w, autherr.NewResponse(authErr.Code, authErr.Message))
		return
	}
	response.AuthError(w, autherr.InternalError)
}
