package testbed

import (
	"os"

	"github.com/spaghettifunk/patina/engine"
	"github.com/spaghettifunk/patina/engine/core"
)

type demoState struct {
	// One flag per configured pass so the composed output is logged once
	// per validity streak instead of every tick.
	passReported []bool
	meshReported []bool
}

/**
 * @brief NewDemoApp builds the sample application around the demo library.
 *
 * The runtime configuration is read from configPath when the file exists,
 * otherwise a built-in default pointing at assets/demo-library is used. The
 * demo library itself is (re)written to disk before the runtime starts so a
 * clean checkout works on the first run.
 */
func NewDemoApp(configPath string) (*engine.App, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := SeedLibrary(config.Library.Root); err != nil {
		return nil, err
	}

	state := &demoState{
		passReported: make([]bool, len(config.Passes)),
		meshReported: make([]bool, len(config.Meshes)),
	}
	app := &engine.App{
		Config: config,
		State:  state,
	}
	app.FnSetup = func(rt *engine.Runtime) error {
		return demoSetup(rt)
	}
	app.FnFrame = func(rt *engine.Runtime, deltaTime float64) error {
		return demoFrame(rt, app, state)
	}
	app.FnShutdown = func() error {
		core.LogInfo("demo shutting down")
		return nil
	}
	return app, nil
}

func loadConfig(configPath string) (*engine.RuntimeConfig, error) {
	if _, err := os.Stat(configPath); err == nil {
		return engine.LoadRuntimeConfig(configPath)
	}
	core.LogInfo("no runtime config at %s, using the built-in demo config", configPath)
	return &engine.RuntimeConfig{
		Name:     "patina-demo",
		LogLevel: "debug",
		Library: engine.LibraryConfig{
			Root:  "assets/demo-library",
			Watch: true,
		},
		Passes: []engine.PassConfig{
			{Material: "mat_rust", TextureUnit: 0, Instance: 0},
		},
		Meshes: []engine.MeshConfig{
			{Asset: "mesh_quad", Scale: 1},
		},
	}, nil
}

func demoSetup(rt *engine.Runtime) error {
	core.LogInfo("demo library assets: %v", rt.Library().AssetIDs())

	// Pull the meshes through the loader once so their parse paths run at
	// startup. The passes themselves only need materials, shaders and
	// textures.
	for _, assetID := range []string{"mesh_quad", "mesh_triangle"} {
		mesh := rt.Loader().GetMesh(assetID)
		data := mesh.Data()
		if data == nil {
			core.LogWarn("%s did not load", assetID)
			continue
		}
		core.LogInfo("%s: %d chunk(s), %d bytes, materials %v",
			assetID, len(data.Chunks), mesh.BytesLoaded(), data.MaterialMapping)
	}
	return nil
}

func demoFrame(rt *engine.Runtime, app *engine.App, state *demoState) error {
	for i, pass := range rt.Passes() {
		if !pass.Valid() {
			// Log again once the pass recovers.
			state.passReported[i] = false
			continue
		}
		if state.passReported[i] {
			continue
		}
		code, err := pass.RenderShaderCode(app.Config.Passes[i].Instance)
		if err != nil {
			core.LogError("pass %d failed to render its shader code", i)
			return err
		}
		core.LogInfo("pass %d ready: shader %d bytes, uniforms %d bytes, textures %v, compositions %d",
			i, len(code), len(pass.UniformStaging()), pass.TextureCodeNames(), pass.Compositions())
		core.LogDebug("pass %d uniform block:\n%s", i, pass.UniformBlock())
		core.LogDebug("pass %d shader code:\n%s", i, code)
		state.passReported[i] = true
	}

	for i, pass := range rt.MeshPasses() {
		chunks := pass.Chunks()
		if len(chunks) == 0 {
			state.meshReported[i] = false
			continue
		}
		if state.meshReported[i] {
			continue
		}
		ready := 0
		for c := range chunks {
			if chunks[c].Pipeline.Valid() {
				ready++
			}
		}
		core.LogInfo("mesh pass %d (%s): %d chunk(s), %d shaded, %d rebuild(s)",
			i, app.Config.Meshes[i].Asset, len(chunks), ready, pass.Rebuilds())
		state.meshReported[i] = true
	}
	return nil
}
