package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/patina/engine/assets"
	"github.com/spaghettifunk/patina/engine/core"
	emath "github.com/spaghettifunk/patina/engine/math"
	"github.com/spaghettifunk/patina/engine/pipeline"
	"github.com/spaghettifunk/patina/engine/renderer"
)

type Stage uint8

const (
	// Runtime is in an uninitialized state
	RuntimeStageUninitialized Stage = iota
	// Runtime is currently initializing
	RuntimeStageInitializing
	// Runtime initialization is complete
	RuntimeStageInitialized
	// Runtime is currently running
	RuntimeStageRunning
	// Runtime is in the process of shutting down
	RuntimeStageShuttingDown
)

/**
 * @brief Owns the asset library, the loader and the configured pipeline
 * passes, and drives the reload loop: queued file changes are applied and
 * every pass is brought up to date once per process tick.
 */
type Runtime struct {
	currentStage Stage
	app          *App
	library      *assets.DirectFilesystemLibrary
	loader       *assets.AssetLoader
	backend      renderer.RendererBackend
	passes       []*pipeline.Pipeline
	meshPasses   []*pipeline.MeshPass
	clock        *core.Clock
	lastTime     float64

	quit     chan struct{}
	stopOnce sync.Once
}

func New(app *App) (*Runtime, error) {
	if app == nil || app.Config == nil {
		err := fmt.Errorf("runtime requires an app with a config")
		core.LogError(err.Error())
		return nil, err
	}

	library, err := assets.NewDirectFilesystemLibrary(app.Config.Library.Root)
	if err != nil {
		return nil, err
	}

	backend := app.Backend
	if backend == nil {
		backend = renderer.NewNullBackend()
	}

	return &Runtime{
		currentStage: RuntimeStageUninitialized,
		app:          app,
		library:      library,
		loader:       assets.NewAssetLoader(library),
		backend:      backend,
		clock:        core.NewClock(),
		quit:         make(chan struct{}),
	}, nil
}

func (rt *Runtime) Initialize() error {
	rt.currentStage = RuntimeStageInitializing

	// The event system is process wide; a previous runtime may have
	// brought it up already.
	if !core.EventInitialize() {
		core.LogDebug("event system already initialized")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_ASSET_RELOADED, rt, rt.onAssetReloaded)
	core.EventRegister(core.EVENT_CODE_PIPELINE_INVALIDATED, rt, rt.onPassInvalidated)

	if err := rt.library.LoadManifest(); err != nil {
		return err
	}
	if rt.app.Config.Library.Watch {
		if err := rt.library.Watch(rt.loader.NotifyAssetChanged); err != nil {
			return err
		}
	}

	if err := rt.backend.Initialize(rt.app.Config.Name); err != nil {
		return err
	}

	rt.passes = make([]*pipeline.Pipeline, len(rt.app.Config.Passes))
	for i := range rt.passes {
		rt.passes[i] = pipeline.NewPipeline()
	}

	rt.meshPasses = make([]*pipeline.MeshPass, len(rt.app.Config.Meshes))
	for i, meshConfig := range rt.app.Config.Meshes {
		pass := pipeline.NewMeshPass(meshConfig.Asset)
		pass.SetScale(meshConfig.Scale)
		pass.SetRotation(emath.NewVec3(meshConfig.Rotation[0], meshConfig.Rotation[1], meshConfig.Rotation[2]))
		pass.SetTranslation(emath.NewVec3(meshConfig.Translation[0], meshConfig.Translation[1], meshConfig.Translation[2]))
		rt.meshPasses[i] = pass
	}

	if rt.app.FnSetup != nil {
		if err := rt.app.FnSetup(rt); err != nil {
			return err
		}
	}

	rt.currentStage = RuntimeStageInitialized
	return nil
}

func (rt *Runtime) Run() error {
	rt.currentStage = RuntimeStageRunning
	rt.clock.Start()
	rt.clock.Update()
	rt.lastTime = rt.clock.ElapsedSeconds()

	core.LogInfo("%s running %d passes against library %s", rt.app.Config.Name, len(rt.passes), rt.library.Root())

	ticker := time.NewTicker(rt.app.Config.ProcessInterval())
	defer ticker.Stop()

	for {
		select {
		case <-rt.quit:
			rt.logMetrics()
			return nil

		case <-ticker.C:
			rt.clock.Update()
			currentTime := rt.clock.ElapsedSeconds()
			delta := currentTime - rt.lastTime

			if processed := rt.loader.ProcessReloads(); processed > 0 {
				core.LogDebug("applied reloads for %d changed assets", processed)
			}

			for i, pass := range rt.passes {
				passConfig := rt.app.Config.Passes[i]
				pass.UpdatePixelData(rt.loader, passConfig.Material, passConfig.TextureUnit)
			}

			for i, pass := range rt.meshPasses {
				if err := pass.Update(rt.loader, rt.backend); err != nil {
					core.LogError("mesh pass %d update failed: %s", i, err.Error())
				}
			}

			if rt.app.FnFrame != nil {
				if err := rt.app.FnFrame(rt, delta); err != nil {
					core.LogError("frame update failed, shutting down: %s", err.Error())
					return err
				}
			}

			rt.lastTime = currentTime
		}
	}
}

func (rt *Runtime) Shutdown() error {
	rt.currentStage = RuntimeStageShuttingDown
	rt.stopOnce.Do(func() {
		close(rt.quit)
	})

	if rt.app.FnShutdown != nil {
		if err := rt.app.FnShutdown(); err != nil {
			return err
		}
	}
	rt.library.Shutdown()
	rt.loader.Shutdown()
	if err := rt.backend.Shutdown(); err != nil {
		core.LogError("backend shutdown failed: %s", err.Error())
	}
	return core.EventShutdown()
}

/** @brief The shared asset loader the passes resolve handles through. */
func (rt *Runtime) Loader() *assets.AssetLoader {
	return rt.loader
}

/** @brief The filesystem library backing the loader. */
func (rt *Runtime) Library() *assets.DirectFilesystemLibrary {
	return rt.library
}

/** @brief The render backend mesh passes compile vertex formats through. */
func (rt *Runtime) Backend() renderer.RendererBackend {
	return rt.backend
}

/** @brief The configured pipeline passes, in config order. */
func (rt *Runtime) Passes() []*pipeline.Pipeline {
	return rt.passes
}

/** @brief The configured mesh passes, in config order. */
func (rt *Runtime) MeshPasses() []*pipeline.MeshPass {
	return rt.meshPasses
}

func (rt *Runtime) onAssetReloaded(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	core.LogInfo("asset %s reloaded (%d bytes)", context.AssetID, context.BytesLoaded)
	return false
}

func (rt *Runtime) onPassInvalidated(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	core.LogWarn("pass for material %s is invalid and will be skipped", context.AssetID)
	return false
}

func (rt *Runtime) logMetrics() {
	loads, reloads, failed := core.MetricsLoads()
	core.LogInfo("asset loads: %d initial, %d reloads, %d failed; %d compositions, %d skipped passes",
		loads, reloads, failed, core.MetricsCompositions(), core.MetricsSkippedPasses())
}
