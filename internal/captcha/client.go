// Package captcha obtains CAPTCHA response tokens from the CapSolver API.
package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL      = "https://api.capsolver.com"
	defaultPollInterval = 3 * time.Second
	defaultTimeout      = 120 * time.Second
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("captcha solver not configured")
	// ErrUnsolved is returned when the solver rejects the task or runs out of time.
	ErrUnsolved = errors.New("captcha not solved")
)

// Kind identifies a CAPTCHA family.
type Kind string

const (
	KindRecaptchaV2 Kind = "recaptcha_v2"
	KindTurnstile   Kind = "turnstile"
)

func (k Kind) taskType() string {
	switch k {
	case KindRecaptchaV2:
		return "ReCaptchaV2TaskProxyLess"
	case KindTurnstile:
		return "AntiTurnstileTaskProxyLess"
	default:
		return ""
	}
}

// Solver returns a response token for a CAPTCHA on pageURL.
type Solver interface {
	Enabled() bool
	Solve(ctx context.Context, kind Kind, pageURL, siteKey string) (string, error)
}

// Client is a CapSolver API client.
type Client struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client
}

var _ Solver = Client{}

type createTaskRequest struct {
	ClientKey string     `json:"clientKey"`
	Task      createTask `json:"task"`
}

type createTask struct {
	Type       string `json:"type"`
	WebsiteURL string `json:"websiteURL"`
	WebsiteKey string `json:"websiteKey"`
}

type taskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    string `json:"taskId"`
}

type apiResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
	TaskID           string `json:"taskId"`
	Status           string `json:"status"`
	Solution         struct {
		GRecaptchaResponse string `json:"gRecaptchaResponse"`
		Token              string `json:"token"`
	} `json:"solution"`
}

// Enabled reports whether an API key is configured.
func (c Client) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Solve submits a task and polls until a token is ready.
func (c Client) Solve(ctx context.Context, kind Kind, pageURL, siteKey string) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}
	taskType := kind.taskType()
	if taskType == "" {
		return "", fmt.Errorf("unsupported captcha kind %q", kind)
	}
	if strings.TrimSpace(siteKey) == "" {
		return "", fmt.Errorf("%w: site key not found", ErrUnsolved)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	created, err := c.call(ctx, "/createTask", createTaskRequest{
		ClientKey: c.APIKey,
		Task:      createTask{Type: taskType, WebsiteURL: pageURL, WebsiteKey: siteKey},
	})
	if err != nil {
		return "", err
	}
	if created.TaskID == "" {
		return "", fmt.Errorf("%w: no task id returned", ErrUnsolved)
	}

	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrUnsolved, ctx.Err())
		case <-ticker.C:
		}

		result, err := c.call(ctx, "/getTaskResult", taskResultRequest{ClientKey: c.APIKey, TaskID: created.TaskID})
		if err != nil {
			return "", err
		}
		if result.Status != "ready" {
			continue
		}
		if token := result.Solution.GRecaptchaResponse; token != "" {
			return token, nil
		}
		if token := result.Solution.Token; token != "" {
			return token, nil
		}
		return "", fmt.Errorf("%w: empty solution", ErrUnsolved)
	}
}

func (c Client) call(ctx context.Context, path string, payload any) (apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return apiResponse{}, fmt.Errorf("encode request: %w", err)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apiResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return apiResponse{}, fmt.Errorf("%w: %v", ErrUnsolved, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiResponse{}, fmt.Errorf("%w: read response: %v", ErrUnsolved, err)
	}
	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return apiResponse{}, fmt.Errorf("%w: decode response: status=%s", ErrUnsolved, resp.Status)
	}
	if decoded.ErrorID != 0 {
		return apiResponse{}, fmt.Errorf("%w: %s %s", ErrUnsolved, decoded.ErrorCode, decoded.ErrorDescription)
	}
	return decoded, nil
}
