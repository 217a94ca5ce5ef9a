package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/pkg/logger"
	"github.com/google/uuid"
)

// HTTPClient wraps http.Client with a per-request timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// driveRequests issues recommendation reads round-robin across the demo
// drivers from a worker pool and tallies cache statuses. It returns one
// sample response per driver for verification.
func driveRequests(ctx context.Context, config *Config, stats *Stats) (map[string]recommendationResponse, error) {
	logger.Get().Info(ctx, "issuing recommendation requests",
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	drivers := driverIDs(config.Drivers)

	var (
		issued    int64
		failed    int64
		hits      int64
		misses    int64
		coalesced int64
	)

	samples := make(map[string]recommendationResponse)
	var samplesMu sync.Mutex

	indexChan := make(chan int, config.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				driverID := drivers[i%len(drivers)]
				rec, err := fetchRecommendations(ctx, client, config.BaseURL, driverID)
				atomic.AddInt64(&issued, 1)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						logger.Get().Warn(ctx, "request failed",
							logger.String("driver_id", driverID), logger.Error(err))
					}
					continue
				}

				switch rec.Metadata.CacheStatus {
				case "hit":
					atomic.AddInt64(&hits, 1)
				case "miss":
					atomic.AddInt64(&misses, 1)
				case "coalesced":
					atomic.AddInt64(&coalesced, 1)
				}

				samplesMu.Lock()
				samples[driverID] = rec
				samplesMu.Unlock()
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := 0; i < config.Requests; i++ {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.RequestsIssued = int(atomic.LoadInt64(&issued))
	stats.RequestsFailed = int(atomic.LoadInt64(&failed))
	stats.CacheHits = int(atomic.LoadInt64(&hits))
	stats.CacheMisses = int(atomic.LoadInt64(&misses))
	stats.CacheCoalesced = int(atomic.LoadInt64(&coalesced))

	if stats.RequestsFailed == stats.RequestsIssued {
		return nil, fmt.Errorf("all %d requests failed", stats.RequestsIssued)
	}
	return samples, nil
}

// fetchRecommendations retrieves and decodes one driver's recommendations.
func fetchRecommendations(ctx context.Context, client *HTTPClient, baseURL, driverID string) (recommendationResponse, error) {
	var rec recommendationResponse

	resp, err := client.Get(ctx, baseURL+"/recommendations/"+driverID)
	if err != nil {
		return rec, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return rec, err
	}
	if resp.StatusCode != http.StatusOK {
		return rec, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode response: %w", err)
	}
	return rec, nil
}

// submitSyncNotices posts sync notices and redelivers half of them to
// exercise the service's idempotency handling.
func submitSyncNotices(ctx context.Context, config *Config, stats *Stats) error {
	if config.SyncNotices == 0 {
		return nil
	}
	logger.Get().Info(ctx, "submitting sync notices", logger.Int("notices", config.SyncNotices))

	client := newHTTPClient(config.Timeout)
	drivers := driverIDs(config.Drivers)

	for i := 0; i < config.SyncNotices; i++ {
		noticeID := uuid.NewString()
		driverID := drivers[i%len(drivers)]

		deliveries := 1
		if i%2 == 0 {
			deliveries = 2 // redeliver to exercise dedupe
		}
		for d := 0; d < deliveries; d++ {
			status, ack, err := postSyncNotice(ctx, client, config.BaseURL, noticeID, driverID)
			stats.NoticesSubmitted++
			switch {
			case err != nil:
				stats.NoticesRejected++
			case status == http.StatusAccepted:
				stats.NoticesQueued++
			case status == http.StatusOK && ack.Duplicate:
				stats.NoticesDuplicate++
			default:
				stats.NoticesRejected++
			}
		}
	}
	return nil
}

func postSyncNotice(ctx context.Context, client *HTTPClient, baseURL, noticeID, driverID string) (int, syncAck, error) {
	var ack syncAck

	resp, err := client.Post(ctx, baseURL+"/sync", map[string]string{
		"notice_id": noticeID,
		"driver_id": driverID,
	})
	if err != nil {
		return 0, ack, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return resp.StatusCode, ack, err
	}
	_ = json.Unmarshal(body, &ack)
	return resp.StatusCode, ack, nil
}

// driverIDs mirrors the demo seed's stable driver naming.
func driverIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("driver-%03d", i+1)
	}
	return ids
}
