package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/pkg/logger"
)

// Run executes the complete load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting recommendation load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("drivers", config.Drivers),
		logger.Int("requests", config.Requests),
		logger.Int("syncNotices", config.SyncNotices),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Issue concurrent recommendation requests
	samples, err := driveRequests(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("recommendation requests failed: %w", err)
	}

	// Step 3: Submit sync notices, including deliberate redeliveries
	if err := submitSyncNotices(ctx, config, stats); err != nil {
		return fmt.Errorf("sync notice submission failed: %w", err)
	}

	// Step 4: Verify response consistency
	if err := verifyResults(ctx, config, samples, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "load test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Any 200 is healthy; the endpoint serves Prometheus metrics.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var requestsPerSecond float64
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.RequestsIssued) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("requestsIssued", stats.RequestsIssued),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("cacheHits", stats.CacheHits),
		logger.Int("cacheMisses", stats.CacheMisses),
		logger.Int("cacheCoalesced", stats.CacheCoalesced),
		logger.Int("noticesSubmitted", stats.NoticesSubmitted),
		logger.Int("noticesQueued", stats.NoticesQueued),
		logger.Int("noticesDuplicate", stats.NoticesDuplicate),
		logger.Int("noticesRejected", stats.NoticesRejected),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
