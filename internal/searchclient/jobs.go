package searchclient

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const defaultPollInterval = 3 * time.Second

// WaitUntilSearchIsDone polls the search status until it completes or fails.
func (c *Client) WaitUntilSearchIsDone(ctx context.Context, accountID, searchID string, interval time.Duration) (*SearchStatusResponse, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	slog.Debug("Waiting for search to complete", "search_uuid", searchID, "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.SearchStatus(ctx, accountID, searchID)
		if err != nil {
			return nil, fmt.Errorf("failed to get search status: %w", err)
		}

		slog.Debug("Search status check", "search_uuid", searchID, "search_status", status.SearchStatus, "progress", status.Progress)

		switch status.SearchStatus {
		case StatusComplete:
			slog.Debug("Search completed successfully", "search_uuid", searchID)
			return status, nil
		case StatusFailed:
			return status, fmt.Errorf("search %s failed: %s", searchID, status.StatusDetails)
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}
