package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		appName string
		start   time.Time
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "logs",
			appName: "portalview",
			start:   sessionStart,
			want:    filepath.Join("logs", "portalview.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./logs",
			appName: "portalview",
			start:   sessionStart,
			want:    filepath.Join(".", "logs", "portalview.20260212_213836.log"),
		},
		{
			name:    "app name normalized",
			logsDir: "logs",
			appName: "Portal View",
			start:   sessionStart,
			want:    filepath.Join("logs", "portal_view.20260212_213836.log"),
		},
		{
			name:    "local start time stamped in UTC",
			logsDir: "logs",
			appName: "portalview",
			start:   sessionStart.In(time.FixedZone("CET", 3600)),
			want:    filepath.Join("logs", "portalview.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, tt.appName, tt.start))
		})
	}
}

func TestOpenLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	f, err := OpenLogFile(dir, "portalview", start)
	require.NoError(t, err)
	_, err = f.WriteString("first session\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// reopening appends
	f, err = OpenLogFile(dir, "portalview", start)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(LogFilePath(dir, "portalview", start))
	require.NoError(t, err)
	assert.Equal(t, "first session\nsecond\n", string(data))
}

func TestOpenLogFile_DirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := OpenLogFile(file, "portalview", time.Now())
	assert.Error(t, err)
}
