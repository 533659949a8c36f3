package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogFilePath names a session's log file after the app and the UTC start time.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	name := strings.ReplaceAll(strings.ToLower(appName), " ", "_")
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.UTC().Format("20060102_150405")),
	)
}

// OpenLogFile creates logsDir when needed and opens the session's log file for
// appending.
func OpenLogFile(logsDir, appName string, sessionStart time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	path := LogFilePath(logsDir, appName, sessionStart)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
