// Package httpcheck implements a built-in agent type that probes an HTTP
// endpoint and fails when it does not answer with the expected status.
package httpcheck

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/openherd/agentd/internal/domain/agent"
	"github.com/openherd/agentd/internal/port/agenttype"
	"github.com/openherd/agentd/internal/resilience"
)

const typeName = "httpcheck"

// Register adds the httpcheck type to the default registration table.
func Register() {
	agenttype.Register(agenttype.Definition{
		Name: typeName,
		Metadata: agenttype.Metadata{
			Description: "Probes an HTTP endpoint and reports its health",
			Version:     "1.0.0",
			Category:    "monitoring",
			Options: map[string]agenttype.OptionSpec{
				"url":           {Type: "string", Required: true, Description: "Endpoint to probe"},
				"expect_status": {Type: "int", Default: 200, Description: "Expected HTTP status code"},
				"timeout":       {Type: "string", Default: "10s", Description: "Per-request timeout"},
				"attempts":      {Type: "int", Default: 3, Description: "Probe attempts before the run fails"},
				"retry_delay":   {Type: "string", Default: "500ms", Description: "Base delay between attempts"},
			},
			Dependencies: []string{"network"},
		},
		Factory: New,
	})
}

// Check probes one endpoint per run, with bounded retries.
type Check struct {
	url          string
	expectStatus int
	attempts     int
	retryDelay   time.Duration
	client       *http.Client
	log          *slog.Logger

	mu         sync.Mutex
	lastStatus int
	lastMillis int64
}

// New constructs a Check from its merged configuration.
func New(cfg agent.Config, log *slog.Logger) (agenttype.Runner, error) {
	url := cfg.StringOption("url", "")
	if url == "" {
		return nil, fmt.Errorf("httpcheck: option url is required")
	}

	timeout, err := time.ParseDuration(cfg.StringOption("timeout", "10s"))
	if err != nil {
		return nil, fmt.Errorf("httpcheck: parse timeout: %w", err)
	}
	retryDelay, err := time.ParseDuration(cfg.StringOption("retry_delay", "500ms"))
	if err != nil {
		return nil, fmt.Errorf("httpcheck: parse retry_delay: %w", err)
	}

	return &Check{
		url:          url,
		expectStatus: cfg.IntOption("expect_status", http.StatusOK),
		attempts:     cfg.IntOption("attempts", 3),
		retryDelay:   retryDelay,
		client:       &http.Client{Timeout: timeout},
		log:          log,
	}, nil
}

// Run probes the endpoint, retrying transient failures with exponential
// backoff before giving up for this cycle.
func (c *Check) Run(ctx context.Context) error {
	return resilience.Retry(ctx, c.attempts, c.retryDelay, c.probe)
}

func (c *Check) probe(ctx context.Context) error {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("httpcheck: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpcheck: probe %s: %w", c.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.mu.Lock()
	c.lastStatus = resp.StatusCode
	c.lastMillis = time.Since(started).Milliseconds()
	c.mu.Unlock()

	if resp.StatusCode != c.expectStatus {
		return fmt.Errorf("httpcheck: %s answered %d, expected %d", c.url, resp.StatusCode, c.expectStatus)
	}

	c.log.Debug("probe ok", "url", c.url, "status", resp.StatusCode)
	return nil
}

// Status extends the base projection with probe results.
func (c *Check) Status() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]any{
		"url":             c.url,
		"last_status":     c.lastStatus,
		"last_latency_ms": c.lastMillis,
	}
}
