package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/loadtest"
)

// Default configuration constants.
const (
	defaultDrivers     = 24
	defaultRequests    = 500
	defaultSyncNotices = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		drivers     = flag.Int("drivers", defaultDrivers, "Number of seeded demo drivers to query")
		requests    = flag.Int("requests", defaultRequests, "Total recommendation requests to issue")
		syncNotices = flag.Int("sync", defaultSyncNotices, "Sync notices to submit; half are redelivered")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile     = flag.String("log", "", "Log file for test output (default: loadtest_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := loadtest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &loadtest.Config{
		BaseURL:     *baseURL,
		Drivers:     *drivers,
		Requests:    *requests,
		SyncNotices: *syncNotices,
		Workers:     *workers,
		Timeout:     *timeout,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	if err := loadtest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		return
	}
}
