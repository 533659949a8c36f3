package logging

import (
	"context"
	"errors"
	"log/slog"
)

// FrameContext reports where the frame loop is when a record is written. Either
// function may be nil.
type FrameContext struct {
	Number    func() uint64
	StartZone func() string
}

// attrs skips values that are not known yet: frame 0 is before the first frame
// and an empty start zone means the eye is in no zone.
func (fc *FrameContext) attrs() []slog.Attr {
	if fc == nil {
		return nil
	}
	var attrs []slog.Attr
	if fc.Number != nil {
		if n := fc.Number(); n > 0 {
			attrs = append(attrs, slog.Uint64("frame", n))
		}
	}
	if fc.StartZone != nil {
		if z := fc.StartZone(); z != "" {
			attrs = append(attrs, slog.String("startZone", z))
		}
	}
	return attrs
}

// frameHandler stamps each record with the manager's current FrameContext.
type frameHandler struct {
	next slog.Handler
	m    *SlogManager
}

func (h *frameHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *frameHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.m.frame.Load().attrs()...)
	return h.next.Handle(ctx, r)
}

func (h *frameHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &frameHandler{next: h.next.WithAttrs(attrs), m: h.m}
}

func (h *frameHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &frameHandler{next: h.next.WithGroup(name), m: h.m}
}

// Fanout sends every record to each handler enabled for its level. A failing
// handler does not stop the others; their errors are joined.
type Fanout []slog.Handler

// NewFanout drops nil handlers.
func NewFanout(handlers ...slog.Handler) Fanout {
	f := make(Fanout, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			f = append(f, h)
		}
	}
	return f
}

func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// levelHandler drops records below a level that can change at runtime.
type levelHandler struct {
	next  slog.Handler
	level slog.Leveler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.next.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.next.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{next: h.next.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &levelHandler{next: h.next.WithGroup(name), level: h.level}
}
