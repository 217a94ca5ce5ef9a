// Package loadtest exercises a running recommendation service: concurrent
// recommendation reads, sync-notice submissions with deliberate
// redeliveries, and consistency checks on what comes back.
package loadtest

import "time"

// Config holds configuration for a load-test run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Drivers     int           // Number of seeded demo drivers to query
	Requests    int           // Total recommendation requests to issue
	SyncNotices int           // Sync notices to submit (half are redelivered)
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	LogFile     string        // Log file for test output
	Verbose     bool          // Enable verbose logging
}

// recommendationResponse mirrors the service's recommendation payload.
type recommendationResponse struct {
	DriverID        string `json:"driver_id"`
	Recommendations []struct {
		Opportunity struct {
			SeriesID string `json:"series_id"`
			TrackID  string `json:"track_id"`
		} `json:"opportunity"`
		Score struct {
			Overall int `json:"overall"`
		} `json:"score"`
	} `json:"recommendations"`
	Metadata struct {
		CacheStatus      string  `json:"cache_status"`
		CacheHitRate     float64 `json:"cache_hit_rate"`
		ProcessingTimeMs float64 `json:"processing_time_ms"`
		Generation       string  `json:"generation"`
	} `json:"metadata"`
}

// syncAck mirrors the service's sync acknowledgement payload.
type syncAck struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds load-test statistics.
type Stats struct {
	RequestsIssued   int
	RequestsFailed   int
	CacheHits        int
	CacheMisses      int
	CacheCoalesced   int
	NoticesSubmitted int
	NoticesQueued    int
	NoticesDuplicate int
	NoticesRejected  int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
