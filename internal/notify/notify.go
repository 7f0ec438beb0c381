// Package notify announces run lifecycle as CDEvents posted to a webhook.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	cdeventsapi "github.com/cdevents/sdk-go/pkg/api"
	cdeventsv05 "github.com/cdevents/sdk-go/pkg/api/v05"
	ceevent "github.com/cloudevents/sdk-go/v2/event"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/app/ports"
)

const (
	pipelineName     = "incognish-opt-out"
	defaultSource    = "incognish/runner"
	runIDExtension   = "incognishrunid"
	contentTypeEvent = "application/cloudevents+json"
)

// Client posts signed run events. Endpoint, Token and Secret are required.
type Client struct {
	Endpoint   string
	Token      string
	Secret     string
	Source     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

var _ ports.RunNotifier = Client{}

// Enabled reports whether the client has everything it needs to publish.
func (c Client) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.Secret) != ""
}

// RunStarted publishes a pipelinerun.started event for run.
func (c Client) RunStarted(ctx context.Context, run domain.RunSummary) error {
	body, err := BuildRunStarted(c.source(), run)
	if err != nil {
		return err
	}
	return c.publish(ctx, body)
}

// RunFinished publishes a pipelinerun.finished event for run.
func (c Client) RunFinished(ctx context.Context, run domain.RunSummary) error {
	body, err := BuildRunFinished(c.source(), run)
	if err != nil {
		return err
	}
	return c.publish(ctx, body)
}

func (c Client) source() string {
	if source := strings.TrimSpace(c.Source); source != "" {
		return source
	}
	return defaultSource
}

// BuildRunStarted renders the structured CloudEvent for a started run.
func BuildRunStarted(source string, run domain.RunSummary) ([]byte, error) {
	e, err := cdeventsv05.NewPipelineRunStartedEvent()
	if err != nil {
		return nil, err
	}
	e.SetSource(source)
	e.SetSubjectId("run/" + run.ID)
	e.SetSubjectPipelineName(pipelineName)
	e.SetSubjectUri("/api/runs/" + run.ID)
	return encode(e, run.ID)
}

// BuildRunFinished renders the structured CloudEvent for a completed run.
// The outcome is "failure" when any broker ended in manual_required or error.
func BuildRunFinished(source string, run domain.RunSummary) ([]byte, error) {
	e, err := cdeventsv05.NewPipelineRunFinishedEvent()
	if err != nil {
		return nil, err
	}
	e.SetSource(source)
	e.SetSubjectId("run/" + run.ID)
	e.SetSubjectPipelineName(pipelineName)
	e.SetSubjectUri("/api/runs/" + run.ID)
	if run.Failed > 0 {
		e.SetSubjectOutcome("failure")
		e.SetSubjectErrors(fmt.Sprintf("%d of %d broker(s) need manual follow-up", run.Failed, run.Total))
	} else {
		e.SetSubjectOutcome("success")
	}
	return encode(e, run.ID)
}

func encode(e cdeventsapi.CDEventReader, runID string) ([]byte, error) {
	ce, err := cloudEvent(e, runID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ce)
}

// cloudEvent wraps e and tags it with the run id extension.
func cloudEvent(e cdeventsapi.CDEventReader, runID string) (*ceevent.Event, error) {
	ce, err := cdeventsapi.AsCloudEvent(e)
	if err != nil {
		return nil, fmt.Errorf("cloudevent: %w", err)
	}
	ce.SetExtension(runIDExtension, runID)
	if err := ce.Validate(); err != nil {
		return nil, fmt.Errorf("cloudevent: %w", err)
	}
	return ce, nil
}

func (c Client) publish(ctx context.Context, body []byte) error {
	if !c.Enabled() {
		return fmt.Errorf("endpoint/token/secret are required")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSpace(c.Endpoint), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.Token))
	req.Header.Set("X-Webhook-Signature", Sign(body, strings.TrimSpace(c.Secret)))
	req.Header.Set("Content-Type", contentTypeEvent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook rejected: status=%s body=%s", resp.Status, strings.TrimSpace(string(payload)))
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
