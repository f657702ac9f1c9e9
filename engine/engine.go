package engine

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/assets"
	"github.com/spaghettifunk/scop/engine/core"
	"github.com/spaghettifunk/scop/engine/platform"
	"github.com/spaghettifunk/scop/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Everything has been released
	EngineStageShutdown
)

// Seconds between two metrics log lines.
const metricsInterval = 1.0

type Engine struct {
	currentStage Stage
	config       *ApplicationConfig
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.Metrics
	lastTime     float64
	lastReport   float64
}

func New(cfg *ApplicationConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if err := core.LogSetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}

	p := platform.New()
	am := assets.NewAssetManager()

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		platform:     p,
		assetManager: am,
		renderer:     renderer.New(p, am),
		isRunning:    true,
		isSuspended:  false,
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if !core.EventSystemInitialize() {
		return errors.New("failed to initialize the event system")
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)
	core.EventRegister(core.EVENT_CODE_SHADERS_CHANGED, e.onShadersChanged)

	w := e.config.Window
	if err := e.platform.Startup(w.Name, w.X, w.Y, w.Width, w.Height); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(filepath.Clean(e.config.Shaders.Dir), e.config.Shaders.HotReload); err != nil {
		return err
	}

	rc, err := e.config.VulkanConfig()
	if err != nil {
		return err
	}
	// The window may already be larger than requested on HiDPI displays.
	e.width, e.height = e.platform.FramebufferSize()
	if err := e.renderer.Initialize(rc, e.width, e.height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}
		core.ProcessEvents()
		if !e.isRunning {
			break
		}

		if e.isSuspended {
			// Nothing to draw into; sleep until the OS has something for us.
			e.platform.WaitMessages()
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		frameStartTime := platform.GetAbsoluteTime()

		if err := e.renderer.DrawFrame(); err != nil {
			return errors.Wrap(err, "draw frame")
		}

		frameElapsedTime := platform.GetAbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		if currentTime-e.lastReport >= metricsInterval {
			fps, ms := e.metrics.Frame()
			core.LogDebug("FPS: %.0f, frame time: %.3fms", fps, ms)
			e.lastReport = currentTime
		}

		e.lastTime = currentTime
	}

	return nil
}

// Shutdown releases everything in reverse initialization order. Calling it
// more than once is harmless.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown || e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.clock.Stop()

	e.renderer.Shutdown()
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageShutdown
	core.LogInfo("Engine shut down.")
	return nil
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
	}
}

func (e *Engine) onShadersChanged(context core.EventContext) {
	path, _ := context.Data.(string)
	core.LogDebug("Shader %s changed on disk.", path)
	e.renderer.ShadersChanged()
}

func (e *Engine) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	width := se.WindowWidth
	height := se.WindowHeight
	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	e.renderer.OnResize(width, height)
}
