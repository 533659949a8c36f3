package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/camera"
	"github.com/OCAP2/portalview/internal/config"
	"github.com/OCAP2/portalview/internal/culler"
	"github.com/OCAP2/portalview/internal/dispatcher"
	"github.com/OCAP2/portalview/internal/frustum"
	"github.com/OCAP2/portalview/internal/handlers"
	"github.com/OCAP2/portalview/internal/logging"
	"github.com/OCAP2/portalview/internal/monitor"
	"github.com/OCAP2/portalview/internal/parser"
	"github.com/OCAP2/portalview/internal/scene"
	"github.com/OCAP2/portalview/internal/storage"
	"github.com/OCAP2/portalview/internal/util"
	"github.com/OCAP2/portalview/internal/view"
	"github.com/OCAP2/portalview/internal/worker"
	"github.com/OCAP2/portalview/pkg/core"
)

// MainCamera is the camera the run command drives.
const MainCamera = "main"

// app is one running view over a storage backend.
type app struct {
	logger     *slog.Logger
	dispatcher *dispatcher.Dispatcher
	graph      *scene.Graph
	cameras    *camera.Repository
	culler     *culler.Culler
	worker     *worker.Manager
	handlers   *handlers.Service
	view       *view.Service
	monitor    *monitor.Service
}

func newApp(ctx context.Context, backend storage.Backend, logs *logging.SlogManager) (*app, error) {
	a := &app{logger: logs.Logger()}

	var err error
	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(logs.Zerolog()))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.dispatcher.Subscribe(core.TopicHydrationFailed, func(_ string, payload any) {
		if f, ok := payload.(core.HydrationFailed); ok {
			a.logger.Warn("Zone unavailable", "zoneId", f.ZoneID, "code", f.Code)
		}
	})

	p := parser.NewParser(logs.Component("parser"))
	a.graph, err = scene.NewGraph(scene.Options{Logger: logs.Component("scene"), Publisher: a.dispatcher, Parser: p})
	if err != nil {
		return nil, err
	}

	hydrateCfg := config.GetHydrateConfig()
	a.worker, err = worker.NewManager(worker.Dependencies{
		Backend: backend,
		Sink:    a.graph,
		Logger:  logs.Component("worker"),
		Timeout: hydrateCfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	a.worker.RegisterHandlers(a.dispatcher, hydrateCfg.BufferSize)
	a.graph.SetRequester(a.worker)

	skels, err := backend.ZoneSkeletons(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading zone skeletons: %w", err)
	}
	for _, skel := range skels {
		if _, err := a.graph.NewZone(skel); err != nil {
			a.logger.Error("Skipping zone", "zoneId", skel.ID, "error", err)
		}
	}
	a.logger.Info("World loaded as ghosts", "zones", len(skels))

	cullCfg := config.GetCullerConfig()
	a.culler = culler.New(nil, culler.Options{
		OuterClip:       cullCfg.OuterClip,
		OuterMargin:     cullCfg.OuterMargin,
		PortalNarrowing: cullCfg.PortalNarrowing,
	})

	a.cameras = camera.NewRepository(p, a.dispatcher)
	if camCfg := config.GetCameraConfig(); camCfg.SyncAspect {
		aspect := camCfg.Aspect
		a.dispatcher.Subscribe(core.TopicCameraUpdated, func(_ string, payload any) {
			if u, ok := payload.(core.CameraUpdated); ok {
				a.syncAspect(u.CameraID, aspect)
			}
		})
	}
	cameraStore, _ := backend.(storage.CameraStore)
	a.handlers = handlers.NewService(handlers.Dependencies{
		Graph:       a.graph,
		Culler:      a.culler,
		Cameras:     a.cameras,
		CameraStore: cameraStore,
		Logger:      logs.Component("handlers"),
	})
	a.handlers.RegisterHandlers(a.dispatcher)

	a.view, err = view.NewService(view.Dependencies{Graph: a.graph, Culler: a.culler, Logger: logs.Component("view")})
	if err != nil {
		return nil, err
	}
	logs.SetFrameContext(logging.FrameContext{
		Number:    a.view.FrameNumber,
		StartZone: func() string { return string(a.view.Snapshot().StartZone) },
	})

	a.monitor = monitor.NewService(monitor.Dependencies{
		Source: a.view,
		Logger: logs.Component("monitor"),
		Dir:    config.GetString("logsDir"),
	})

	if err := a.setupCamera(cameraStore != nil); err != nil {
		return nil, err
	}
	return a, nil
}

// setupCamera restores stored cameras, creating the main camera from config when
// none was stored, and binds it to the culler.
func (a *app) setupCamera(stored bool) error {
	if stored {
		if n, err := a.command(handlers.CmdCameraLoad); err != nil {
			a.logger.Warn("Failed to load stored cameras", "error", err)
		} else {
			a.logger.Info("Stored cameras loaded", "count", n)
		}
	}

	if _, ok := a.cameras.Find(MainCamera); !ok {
		cfg := config.GetCameraConfig()
		if _, err := a.command(handlers.CmdCameraCreate, MainCamera, cfg.Handedness); err != nil {
			return err
		}
		if _, err := a.command(handlers.CmdCameraPerspective, MainCamera,
			util.FormatFloat32(cfg.FOV), util.FormatFloat32(cfg.NearZ),
			util.FormatFloat32(cfg.FarZ), util.FormatFloat32(cfg.Aspect)); err != nil {
			return err
		}
		if _, err := a.command(handlers.CmdCameraFrame, MainCamera, "0,1.7,-8", "0,0,1"); err != nil {
			return err
		}
	}
	_, err := a.command(handlers.CmdCameraBind, MainCamera)
	return err
}

// syncAspect gives a camera the viewport aspect. The resulting update is
// delivered again and stops here once the aspect matches.
func (a *app) syncAspect(id core.ID, aspect float32) {
	cam, ok := a.cameras.Find(id)
	if !ok {
		return
	}
	f, ok := cam.Frustum()
	if !ok || math32.Abs(f.Aspect()-aspect) < 1e-6 {
		return
	}
	p := f.Params()
	p.Aspect = aspect
	if p.Projection == frustum.Ortho {
		p.NearWidth = p.NearHeight * aspect
	}
	if err := p.Validate(); err != nil {
		a.logger.Warn("Cannot sync camera aspect", "cameraId", id, "error", err)
		return
	}
	if err := cam.SetFrustum(frustum.Build(p)); err != nil {
		a.logger.Warn("Cannot sync camera aspect", "cameraId", id, "error", err)
		return
	}
	a.logger.Debug("Camera aspect synced", "cameraId", id, "aspect", aspect)
}

func (a *app) command(cmd string, args ...string) (any, error) {
	return a.dispatcher.Dispatch(dispatcher.Event{Command: cmd, Args: args})
}

// close saves the main camera and stops the background goroutines.
func (a *app) close() {
	a.monitor.Stop()
	if _, err := a.command(handlers.CmdCameraSave, MainCamera); err != nil && !errors.Is(err, handlers.ErrNoCameraStore) {
		a.logger.Warn("Failed to save camera", "error", err)
	}
	a.dispatcher.Close()
}
