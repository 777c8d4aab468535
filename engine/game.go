package engine

import "github.com/spaghettifunk/patina/engine/renderer"

type App struct {
	Config *RuntimeConfig
	State  interface{}
	// The render backend mesh passes compile vertex formats through.
	// Leave nil to run on the null backend.
	Backend renderer.RendererBackend
	// Called once after the library, loader and passes are up.
	FnSetup Setup
	// Called every process tick after queued reloads are applied.
	FnFrame Frame
	// Called before the runtime tears the library down.
	FnShutdown Shutdown
}

type Setup func(rt *Runtime) error
type Frame func(rt *Runtime, deltaTime float64) error
type Shutdown func() error
