package handler

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agenthive/auth-service/internal/autherr"
	"github.com/agenthive/auth-service/internal/domain"
	"github.com/agenthive/auth-service/internal/repository"
	"github.com/agenthive/auth-service/internal/security"
	"github.com/agenthive/auth-service/internal/service"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copy := *u
	return &copy, nil
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	copy := *user
	r.users[user.Email] = &copy
	return nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions []domain.Session
}

func (r *memSessionRepo) Rotate(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, *s)
	return nil
}

func (r *memSessionRepo) ListByPrincipalID(_ context.Context, principalID uuid.UUID) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.PrincipalID == principalID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) CountByPrincipalID(_ context.Context, principalID uuid.UUID) (int64, error) {
	list, _ := r.ListByPrincipalID(context.Background(), principalID)
	return int64(len(list)), nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.Session
	var removed int64
	for _, s := range r.sessions {
		if s.Expired(time.Now()) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	r.sessions = kept
	return removed, nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Verify(hash, password string) bool { return hash == "plain:"+password }

func newTestHandler(t *testing.T) (*AuthHandler, *memUserRepo, *memSessionRepo) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer := security.NewTokenSigner(&security.Keypair{Private: key, Public: &key.PublicKey})

	users := newMemUserRepo()
	sessions := &memSessionRepo{}
	hasher := plainHasher{}

	h := NewAuthHandler(
		service.NewSignupService(users, hasher),
		service.NewSignInService(users, hasher, nil),
		service.NewTokenService(signer, security.UUIDTokenSource{}, sessions),
	)
	return h, users, sessions
}

func seedUser(t *testing.T, users *memUserRepo, email, password string) *domain.User {
	t.Helper()
	u := domain.RegisterUser("alice", email, "plain:"+password)
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestSignupReturnsCreated(t *testing.T) {
	h, users, _ := newTestHandler(t)

	body := strings.NewReader(`{"username":"alice","email":"alice@example.com","password":"s3cret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", body)
	rr := httptest.NewRecorder()
	h.Signup(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if _, err := users.FindByEmail(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("expected user persisted: %v", err)
	}
}

func TestSignupDuplicateEmailRejected(t *testing.T) {
	h, users, _ := newTestHandler(t)
	seedUser(t, users, "alice@example.com", "s3cret")

	body := strings.NewReader(`{"username":"alice2","email":"alice@example.com","password":"other"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", body)
	rr := httptest.NewRecorder()
	h.Signup(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var resp autherr.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Code.Value() != autherr.InvalidSignupCredentials.Value() {
		t.Fatalf("expected %s, got %s", autherr.InvalidSignupCredentials.Value(), resp.Code.Value())
	}
}

func TestSigninReturnsEnvelopeAndRefreshCookie(t *testing.T) {
	h, users, sessions := newTestHandler(t)
	user := seedUser(t, users, "alice@example.com", "s3cret")

	body := strings.NewReader(`{"email":"alice@example.com","password":"s3cret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", body)
	req.RemoteAddr = "192.0.2.7:5555"
	req.Header.Set("User-Agent", "handler-test")
	rr := httptest.NewRecorder()
	h.Signin(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rr.Code, rr.Body.String())
	}

	var envelope struct {
		Status   string `json:"status"`
		HTTPCode int    `json:"httpCode"`
		Data     string `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Status != "Success" || envelope.HTTPCode != http.StatusOK {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	if envelope.Data == "" {
		t.Fatal("expected access token in data")
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "refreshToken" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected refreshToken cookie")
	}
	if !cookie.HttpOnly || cookie.Path != "/" {
		t.Fatalf("unexpected cookie attributes: HttpOnly=%v Path=%q", cookie.HttpOnly, cookie.Path)
	}
	// 2h refresh lifetime, allowing a little slack for test execution.
	if cookie.MaxAge < 7100 || cookie.MaxAge > 7200 {
		t.Fatalf("unexpected cookie Max-Age %d", cookie.MaxAge)
	}

	rows, err := sessions.ListByPrincipalID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one session row, got %d", len(rows))
	}
	if rows[0].RefreshTokenVerifier != cookie.Value {
		t.Fatal("cookie value does not match stored verifier")
	}
	if rows[0].ClientIP != "192.0.2.7:5555" || rows[0].UserAgent != "handler-test" {
		t.Fatalf("request metadata not captured: %+v", rows[0])
	}
}

func TestSigninUnknownEmailEchoesSubmittedEmail(t *testing.T) {
	h, _, _ := newTestHandler(t)

	body := strings.NewReader(`{"email":"ghost@example.com","password":"whatever"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", body)
	rr := httptest.NewRecorder()
	h.Signin(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var resp autherr.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Code.Value() != autherr.InvalidLoginCredentials.Value() {
		t.Fatalf("expected %s, got %s", autherr.InvalidLoginCredentials.Value(), resp.Code.Value())
	}
	if !strings.Contains(resp.Message, "ghost@example.com") {
		t.Fatalf("expected message to echo the email, got %q", resp.Message)
	}
	if resp.TraceID == uuid.Nil {
		t.Fatal("expected populated trace id")
	}
	if resp.Timestamp.IsZero() {
		t.Fatal("expected populated timestamp")
	}
}

func TestSigninWrongPasswordSameShapeAsUnknownEmail(t *testing.T) {
	h, users, _ := newTestHandler(t)
	seedUser(t, users, "alice@example.com", "s3cret")

	body := strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", body)
	rr := httptest.NewRecorder()
	h.Signin(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var resp autherr.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Code.Value() != autherr.InvalidLoginCredentials.Value() {
		t.Fatalf("expected %s, got %s", autherr.InvalidLoginCredentials.Value(), resp.Code.Value())
	}
	if !strings.Contains(resp.Message, "alice@example.com") {
		t.Fatalf("expected message to echo the email, got %q", resp.Message)
	}
}

func TestSigninMalformedBodyRejected(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.Signin(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if code := mustCode(t, rr); code != autherr.InvalidLoginCredentials.Value() {
		t.Fatalf("expected %s, got %s", autherr.InvalidLoginCredentials.Value(), code)
	}
}

func mustCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return resp.Code
}
