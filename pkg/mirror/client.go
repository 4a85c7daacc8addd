package mirror

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quillhub/moderation-api/pkg/config"
)

// Client removes mirrored records from the external CMS when content is
// discarded. Deletes are idempotent: a 404 from the mirror means the record
// is already gone and is treated as success.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	enabled bool
}

func New(cfg config.MirrorConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		enabled: cfg.Enabled,
	}
}

// DeleteRecord removes one mirrored record by its external ID.
func (c *Client) DeleteRecord(ctx context.Context, recordID string) error {
	if !c.enabled || recordID == "" {
		return nil
	}
	url := fmt.Sprintf("%s/records/%s", c.baseURL, recordID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("build mirror delete request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete mirror record %s: %w", recordID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Debug("mirror record already absent", zap.String("record_id", recordID))
		return nil
	default:
		return fmt.Errorf("delete mirror record %s: unexpected status %d", recordID, resp.StatusCode)
	}
}
