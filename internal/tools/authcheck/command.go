// Package authcheck drives a live instance through the signup/signin flow and
// verifies the wire contract: envelope shapes, error codes and the refresh
// cookie. It is meant for smoke testing a deployment, not as a unit test.
package authcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agenthive/auth-service/internal/tools/common"
	"github.com/agenthive/auth-service/internal/tools/loadgen"
)

type options struct {
	baseURL string
	timeout time.Duration
	traffic bool
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "authcheck", Short: "Verify the authentication API contract against a live instance"}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall check timeout")
	cmd.PersistentFlags().BoolVar(&opts.traffic, "traffic", false, "generate background traffic before checking")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every contract check once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			details, err := run(ctx, opts)
			if opts.ci {
				common.PrintCIResult(err == nil, "authcheck run", details, err)
			} else {
				for _, d := range details {
					fmt.Println(d)
				}
				if err != nil {
					fmt.Fprintln(os.Stderr, "FAIL:", err)
				}
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

func run(ctx context.Context, opts *options) ([]string, error) {
	var details []string
	client := &http.Client{Timeout: 15 * time.Second}

	if opts.traffic {
		res, err := loadgen.Run(ctx, loadgen.Config{
			BaseURL:     opts.baseURL,
			Profile:     "mixed",
			Duration:    5 * time.Second,
			RPS:         20,
			Concurrency: 4,
			Seed:        42,
		})
		if err != nil {
			return details, err
		}
		details = append(details, fmt.Sprintf("traffic generated total=%d failures=%d", res.TotalRequests, res.Failures))
	}

	if err := checkHealth(ctx, client, opts.baseURL); err != nil {
		return details, err
	}
	details = append(details, "health endpoints: ok")

	email := fmt.Sprintf("authcheck-%d@example.com", time.Now().UnixNano())
	password := "authcheck-pass-1"

	if err := checkUnknownEmail(ctx, client, opts.baseURL); err != nil {
		return details, err
	}
	details = append(details, "unknown email rejection: ok")

	if err := checkGarbledBearer(ctx, client, opts.baseURL); err != nil {
		return details, err
	}
	details = append(details, "garbled bearer rejection: ok")

	token, cookie, err := checkSignupSignin(ctx, client, opts.baseURL, email, password)
	if err != nil {
		return details, err
	}
	details = append(details, "signup/signin round trip: ok, refresh cookie max-age="+fmt.Sprint(cookie.MaxAge))

	if err := checkProtectedRoute(ctx, client, opts.baseURL, token); err != nil {
		return details, err
	}
	details = append(details, "protected route with fresh token: ok")

	return details, nil
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"traceId"`
}

type successEnvelope struct {
	Status   string          `json:"status"`
	HTTPCode int             `json:"httpCode"`
	Data     json.RawMessage `json:"data"`
}

func checkHealth(ctx context.Context, client *http.Client, baseURL string) error {
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := get(ctx, client, baseURL+path, "")
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s returned %d", path, resp.StatusCode)
		}
	}
	return nil
}

func checkUnknownEmail(ctx context.Context, client *http.Client, baseURL string) error {
	email := fmt.Sprintf("ghost-%d@example.com", time.Now().UnixNano())
	body := fmt.Sprintf(`{"email":%q,"password":"whatever"}`, email)
	resp, err := post(ctx, client, baseURL+"/api/v1/auth/signin", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("unknown email: expected 401, got %d", resp.StatusCode)
	}
	var env errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("unknown email: decode envelope: %w", err)
	}
	if env.Code != "A-L1001" {
		return fmt.Errorf("unknown email: expected code A-L1001, got %s", env.Code)
	}
	if !strings.Contains(env.Message, email) {
		return fmt.Errorf("unknown email: message does not echo the email: %q", env.Message)
	}
	if env.TraceID == "" {
		return fmt.Errorf("unknown email: missing trace id")
	}
	return nil
}

func checkGarbledBearer(ctx context.Context, client *http.Client, baseURL string) error {
	resp, err := get(ctx, client, baseURL+"/api/v1/me", "Basic not-a-bearer")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("garbled bearer: expected 401, got %d", resp.StatusCode)
	}
	var env errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("garbled bearer: decode envelope: %w", err)
	}
	if env.Code != "A-AT1002" {
		return fmt.Errorf("garbled bearer: expected code A-AT1002, got %s", env.Code)
	}
	return nil
}

func checkSignupSignin(ctx context.Context, client *http.Client, baseURL, email, password string) (string, *http.Cookie, error) {
	signupBody := fmt.Sprintf(`{"username":"authcheck","email":%q,"password":%q}`, email, password)
	resp, err := post(ctx, client, baseURL+"/api/v1/auth/signup", signupBody)
	if err != nil {
		return "", nil, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", nil, fmt.Errorf("signup: expected 201, got %d", resp.StatusCode)
	}

	signinBody := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	resp, err = post(ctx, client, baseURL+"/api/v1/auth/signin", signinBody)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("signin: expected 200, got %d", resp.StatusCode)
	}

	var env successEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", nil, fmt.Errorf("signin: decode envelope: %w", err)
	}
	if env.Status != "Success" || env.HTTPCode != http.StatusOK {
		return "", nil, fmt.Errorf("signin: unexpected envelope %+v", env)
	}
	var token string
	if err := json.Unmarshal(env.Data, &token); err != nil || token == "" {
		return "", nil, fmt.Errorf("signin: missing access token in data")
	}

	for _, c := range resp.Cookies() {
		if c.Name == "refreshToken" {
			if !c.HttpOnly || c.Path != "/" || c.MaxAge <= 0 {
				return "", nil, fmt.Errorf("signin: unexpected cookie attributes %+v", c)
			}
			return token, c, nil
		}
	}
	return "", nil, fmt.Errorf("signin: refreshToken cookie not set")
}

func checkProtectedRoute(ctx context.Context, client *http.Client, baseURL, token string) error {
	resp, err := get(ctx, client, baseURL+"/api/v1/me", "Bearer "+token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("protected route: expected 200, got %d", resp.StatusCode)
	}
	return nil
}

func post(ctx context.Context, client *http.Client, url, body string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return client.Do(req)
}

func get(ctx context.Context, client *http.Client, url, authorization string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return client.Do(req)
}
