package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSink = errors.New("sink down")

// failingHandler accepts every record and fails to write it.
type failingHandler struct {
	slog.Handler
}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errSink }

func textHandler(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestFanout_EveryHandlerReceives(t *testing.T) {
	var file, otlp bytes.Buffer
	logger := slog.New(NewFanout(textHandler(&file, slog.LevelInfo), nil, textHandler(&otlp, slog.LevelInfo)))
	logger.Info("zone hydrated", "zoneId", "hall")

	assert.Contains(t, file.String(), "zoneId=hall")
	assert.Contains(t, otlp.String(), "zoneId=hall")
}

func TestFanout_DropsNil(t *testing.T) {
	assert.Len(t, NewFanout(nil, textHandler(&bytes.Buffer{}, slog.LevelInfo), nil), 1)
	assert.False(t, NewFanout().Enabled(context.Background(), slog.LevelError))
}

func TestFanout_EnabledByAnyHandler(t *testing.T) {
	info := textHandler(&bytes.Buffer{}, slog.LevelInfo)
	debug := textHandler(&bytes.Buffer{}, slog.LevelDebug)

	assert.False(t, NewFanout(info).Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, NewFanout(info, debug).Enabled(context.Background(), slog.LevelDebug))
}

func TestFanout_LevelPerHandler(t *testing.T) {
	var quiet, loud bytes.Buffer
	logger := slog.New(NewFanout(textHandler(&quiet, slog.LevelWarn), textHandler(&loud, slog.LevelDebug)))
	logger.Debug("plane pushed")

	assert.Empty(t, quiet.String())
	assert.Contains(t, loud.String(), "plane pushed")
}

func TestFanout_JoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanout(failingHandler{}, textHandler(&buf, slog.LevelInfo), failingHandler{})

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "still written", 0)
	err := f.Handle(context.Background(), r)

	require.ErrorIs(t, err, errSink)
	assert.Contains(t, buf.String(), "still written")
}

func TestFanout_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanout(textHandler(&buf, slog.LevelInfo))

	assert.Equal(t, f, f.WithGroup(""))

	slog.New(f.WithAttrs([]slog.Attr{slog.String("component", "culler")})).Info("a")
	assert.Contains(t, buf.String(), "component=culler")

	slog.New(f.WithGroup("zone")).Info("b", "id", "hall")
	assert.Contains(t, buf.String(), "zone.id=hall")
}

func TestFrameHandler_ReadsLatestContext(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil)
	logger := m.Logger().With("component", "view")

	m.SetFrameContext(FrameContext{Number: func() uint64 { return 3 }})
	logger.Info("first")
	m.SetFrameContext(FrameContext{Number: func() uint64 { return 4 }, StartZone: func() string { return "yard" }})
	logger.WithGroup("g").Info("second")

	out := buf.String()
	assert.Contains(t, out, "component=view frame=3")
	assert.Contains(t, out, "g.frame=4 g.startZone=yard")
}
