package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName is the OTel instrumentation scope of the bridged logger.
const ServiceName = "portalview"

// swapped by tests
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// SlogManager owns the process loggers. Records go to one text sink plus the
// OTel bridge, are stamped with the current FrameContext, and are gated by the
// root level or by a per-component override.
type SlogManager struct {
	mu       sync.RWMutex
	sinks    slog.Handler // ungated: every level reaches the frame stamp
	root     *slog.Logger
	out      io.Writer
	level    slog.LevelVar
	levels   map[string]slog.Level
	provider *sdklog.LoggerProvider

	frame atomic.Pointer[FrameContext]
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{levels: make(map[string]slog.Level)}
}

// parseLevel accepts the slog level names in any case, with offsets such as
// "debug+2". Anything else is info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Setup points every logger at a new sink: file when set, stdout otherwise,
// plus OTel when provider is non-nil. Component loggers handed out before keep
// writing to the old sink.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	m.level.Set(parseLevel(level))

	out := file
	if out == nil {
		out = osStdout
	}
	text := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: utcTime,
	})
	var bridge slog.Handler
	if provider != nil {
		bridge = otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider))
	}

	m.mu.Lock()
	m.out = out
	m.provider = provider
	m.sinks = &frameHandler{next: NewFanout(text, bridge), m: m}
	m.root = slog.New(&levelHandler{next: m.sinks, level: &m.level})
	m.mu.Unlock()

	m.root.Info("Logging initialized", "level", m.level.Level().String())
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
		}
	}
	return a
}

// SetFrameContext makes every later record carry fc. Safe to call while other
// goroutines log.
func (m *SlogManager) SetFrameContext(fc FrameContext) {
	m.frame.Store(&fc)
}

// SetComponentLevel overrides the level of one component's logger, including
// loggers already handed out by Component.
func (m *SlogManager) SetComponentLevel(component, level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[component] = parseLevel(level)
}

// componentLeveler reads the override on every record, falling back to the
// root level.
type componentLeveler struct {
	m    *SlogManager
	name string
}

func (c componentLeveler) Level() slog.Level {
	c.m.mu.RLock()
	l, ok := c.m.levels[c.name]
	c.m.mu.RUnlock()
	if ok {
		return l
	}
	return c.m.level.Level()
}

// Logger returns the root logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.root == nil {
		return slog.Default()
	}
	return m.root
}

// Component returns a logger tagged component=name and gated by the component's
// own level when one is set.
func (m *SlogManager) Component(name string) *slog.Logger {
	m.mu.RLock()
	sinks := m.sinks
	m.mu.RUnlock()
	if sinks == nil {
		return slog.Default().With("component", name)
	}
	return slog.New(&levelHandler{next: sinks, level: componentLeveler{m: m, name: name}}).With("component", name)
}

// Zerolog returns a zerolog.Logger writing to the same output at the root level,
// for the components that log through zerolog.
func (m *SlogManager) Zerolog() zerolog.Logger {
	m.mu.RLock()
	out := m.out
	m.mu.RUnlock()
	if out == nil {
		return zerolog.Nop()
	}
	return zerolog.New(out).Level(zerologLevel(m.level.Level())).With().Timestamp().Logger()
}

func zerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l <= slog.LevelDebug:
		return zerolog.DebugLevel
	case l <= slog.LevelInfo:
		return zerolog.InfoLevel
	case l <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()
	if provider != nil {
		return provider.ForceFlush(ctx)
	}
	return nil
}
