package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config drives one load generation run against a live instance.
type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int64
	Failures      int64
	StatusClasses map[string]int64
}

type target struct {
	method string
	path   string
	body   string
}

// Run fires requests at the configured rate until the duration elapses. A
// request counts as a failure on transport error or a 5xx response; the 401s
// produced by bad credentials are part of the expected traffic shape.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		return Result{}, fmt.Errorf("loadgen: base URL is required")
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}

	profile := normalizeProfile(cfg.Profile)
	rng := rand.New(rand.NewSource(cfg.Seed))

	var mu sync.Mutex
	res := Result{StatusClasses: make(map[string]int64)}
	record := func(status int, failed bool) {
		mu.Lock()
		defer mu.Unlock()
		res.TotalRequests++
		if failed {
			res.Failures++
		}
		res.StatusClasses[classifyStatusClass(status)]++
	}

	targets := make(chan target)
	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer close(targets)
		ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				select {
				case targets <- pickTarget(profile, rng):
				case <-gctx.Done():
					return nil
				}
			}
		}
	})

	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			for tgt := range targets {
				req, err := http.NewRequestWithContext(gctx, tgt.method, cfg.BaseURL+tgt.path, bytes.NewReader([]byte(tgt.body)))
				if err != nil {
					record(0, true)
					continue
				}
				if tgt.body != "" {
					req.Header.Set("Content-Type", "application/json")
				}
				resp, err := client.Do(req)
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					record(0, true)
					continue
				}
				_ = resp.Body.Close()
				record(resp.StatusCode, resp.StatusCode >= 500)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && ctx.Err() == nil {
		return res, err
	}
	return res, nil
}

// pickTarget is deliberately noisy: a share of signin attempts carry wrong
// credentials so the failure taxonomy shows up in the exported metrics.
func pickTarget(profile string, rng *rand.Rand) target {
	switch profile {
	case "health":
		if rng.Intn(2) == 0 {
			return target{method: http.MethodGet, path: "/health/live"}
		}
		return target{method: http.MethodGet, path: "/health/ready"}
	case "auth":
		return authTarget(rng)
	default:
		if rng.Intn(4) == 0 {
			return target{method: http.MethodGet, path: "/health/live"}
		}
		return authTarget(rng)
	}
}

func authTarget(rng *rand.Rand) target {
	n := rng.Intn(10)
	email := fmt.Sprintf("loadgen-%d@example.com", rng.Intn(1000))
	switch {
	case n < 3:
		body := fmt.Sprintf(`{"username":"loadgen","email":%q,"password":"loadgen-pass-%d"}`, email, rng.Intn(1000))
		return target{method: http.MethodPost, path: "/api/v1/auth/signup", body: body}
	case n < 8:
		body := fmt.Sprintf(`{"email":%q,"password":"wrong-password"}`, email)
		return target{method: http.MethodPost, path: "/api/v1/auth/signin", body: body}
	default:
		return target{method: http.MethodGet, path: "/api/v1/me"}
	}
}

func normalizeProfile(profile string) string {
	p := strings.ToLower(strings.TrimSpace(profile))
	if p == "" {
		return "mixed"
	}
	return p
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}
