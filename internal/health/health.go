// Package health decides whether the target service is ready for load.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// StatusUp is the value of the "status" field reported by a healthy service.
const StatusUp = "UP"

const maxHealthBody = 64 << 10

// Checker queries a JSON health endpoint.
type Checker struct {
	client *http.Client
	url    string
	logger *zap.Logger
}

// NewChecker returns a Checker for url. A nil client uses a 10 second timeout
// and a nil logger discards output.
func NewChecker(client *http.Client, url string, logger *zap.Logger) *Checker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{client: client, url: url, logger: logger}
}

// URL returns the endpoint being checked.
func (c *Checker) URL() string { return c.url }

// Check issues one GET. The service is healthy only if it answers 200 with a
// JSON body whose "status" field is "UP". A transport failure returns false
// together with the error; any other negative answer returns false and a nil
// error.
func (c *Checker) Check(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("health check failed", zap.String("url", c.url), zap.Error(err))
		return false, fmt.Errorf("health check %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHealthBody))
	if err != nil {
		c.logger.Warn("health body unreadable", zap.String("url", c.url), zap.Error(err))
		return false, fmt.Errorf("read health body: %w", err)
	}

	status := ""
	if gjson.ValidBytes(body) {
		status = gjson.GetBytes(body, "status").String()
	}
	healthy := resp.StatusCode == http.StatusOK && status == StatusUp

	c.logger.Info("health check",
		zap.String("url", c.url),
		zap.Int("status_code", resp.StatusCode),
		zap.String("status", status),
		zap.Bool("healthy", healthy),
		zap.Duration("latency", time.Since(started)),
	)
	return healthy, nil
}
