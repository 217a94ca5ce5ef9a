package loadtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "loadtest_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the load-test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Recommendation Load Test Tool
=============================

Exercises a running recommendation service with concurrent reads and
sync-notice submissions, then verifies response consistency.

Usage:
  go run cmd/loadtest/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -drivers int
        Number of seeded demo drivers to query (default 24)
  -requests int
        Total recommendation requests to issue (default 500)
  -sync int
        Sync notices to submit; half are redelivered (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for test output (default: loadtest_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings against a local demo server
  go run cmd/loadtest/main.go

  # Heavier run with more concurrency
  go run cmd/loadtest/main.go -requests 5000 -workers 32
`)
}
