// Package sonarqube reads project quality gates from a SonarQube server.
package sonarqube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"gitlab-metrics/pkg/breaker"
)

const (
	ServiceName = "sonarqube"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 1 << 10
)

// Client calls SonarQube through the "sonarqube" circuit breaker and paces
// requests with a token bucket.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	breakers   *breaker.Registry
}

func New(cfg Config, breakers *breaker.Registry) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMin > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMin) / 60.0)
		burst = max(cfg.RequestsPerMin/10, 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		breakers:   breakers,
	}
}

// QualityGate fetches the quality gate of projectKey. A missing project
// returns ErrProjectNotFound and does not count as a breaker failure.
func (c *Client) QualityGate(ctx context.Context, projectKey string) (QualityGate, error) {
	type result struct {
		gate  QualityGate
		found bool
	}

	// Pacing waits and cancellations are not SonarQube failures.
	if err := c.limiter.Wait(ctx); err != nil {
		return QualityGate{}, &ExternalServiceError{Service: ServiceName, Err: err}
	}

	res, err := breaker.Execute(c.breakers, ServiceName, func() (result, error) {
		q := url.Values{"projectKey": {projectKey}}
		var resp projectStatusResp
		status, err := c.get(ctx, "/api/qualitygates/project_status?"+q.Encode(), &resp)
		if status == http.StatusNotFound {
			return result{}, nil
		}
		if err != nil {
			return result{}, err
		}

		return result{
			gate: QualityGate{
				ProjectKey: projectKey,
				Status:     resp.ProjectStatus.Status,
				Conditions: resp.ProjectStatus.Conditions,
			},
			found: true,
		}, nil
	})
	if err != nil {
		return QualityGate{}, err
	}
	if !res.found {
		return QualityGate{}, fmt.Errorf("%w: %s", ErrProjectNotFound, projectKey)
	}
	return res.gate, nil
}

func (c *Client) get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, &ExternalServiceError{Service: ServiceName, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		// SonarQube user tokens go in the basic auth user field
		req.SetBasicAuth(c.token, "")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &ExternalServiceError{Service: ServiceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &ExternalServiceError{
			Service:    ServiceName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, &ExternalServiceError{Service: ServiceName, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return resp.StatusCode, nil
}
