package vulkan

import (
	"unsafe"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/core"
)

// Window is what the renderer needs from the platform layer.
type Window interface {
	SurfaceSource
	GetRequiredExtensionNames() []string
	GetInstanceProcAddress() unsafe.Pointer
}

// ShaderSource returns SPIR-V words for a shader asset name.
type ShaderSource interface {
	LoadShader(name string) ([]uint32, error)
}

type RendererConfig struct {
	ApplicationName string
	// Packed with vk.MakeVersion.
	ApiVersion  uint32
	Validation  bool
	PresentMode string
	ClearColor  [4]float32

	VertexShader   string
	FragmentShader string
}

type VulkanRenderer struct {
	window  Window
	shaders ShaderSource
	config  RendererConfig
	log     *log.Logger

	FrameNumber uint64

	context        *VulkanContext
	surface        *VulkanSurface
	device         *VulkanDevice
	swapchain      *VulkanSwapchain
	renderpass     *VulkanRenderpass
	pipeline       *VulkanPipeline
	pools          *CommandPools
	commandBuffers []*VulkanCommandBuffer
	sync           *FrameSync
	loop           *FrameLoop

	vertexCode   []uint32
	fragmentCode []uint32

	// Bumped by Resized, caught up by Recreate.
	framebufferSizeGeneration     uint64
	framebufferSizeLastGeneration uint64
}

func New(window Window, shaders ShaderSource) *VulkanRenderer {
	return &VulkanRenderer{
		window:  window,
		shaders: shaders,
		log:     core.LogWith("session", uuid.NewString()),
	}
}

func (vr *VulkanRenderer) loadShaders() ([]uint32, []uint32, error) {
	vertex, err := vr.shaders.LoadShader(vr.config.VertexShader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "vertex shader")
	}
	fragment, err := vr.shaders.LoadShader(vr.config.FragmentShader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fragment shader")
	}
	return vertex, fragment, nil
}

// Initialize builds every GPU object in dependency order. On failure whatever
// was created is torn down again.
func (vr *VulkanRenderer) Initialize(cfg RendererConfig) error {
	vr.config = cfg

	// Shader blobs are validated before the first Vulkan call.
	vertex, fragment, err := vr.loadShaders()
	if err != nil {
		return err
	}
	vr.vertexCode, vr.fragmentCode = vertex, fragment

	if err := vr.build(); err != nil {
		vr.log.Error("Vulkan renderer initialization failed, tearing down.", "err", err)
		vr.Shutdown()
		return err
	}
	vr.log.Info("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) build() error {
	var err error
	vr.context, err = NewContext(vr.window.GetInstanceProcAddress(), ContextConfig{
		ApplicationName:    vr.config.ApplicationName,
		EngineName:         "scop_engine",
		ApiVersion:         vr.config.ApiVersion,
		Validation:         vr.config.Validation,
		PlatformExtensions: vr.window.GetRequiredExtensionNames(),
	}, LogDebugSink)
	if err != nil {
		return err
	}

	if vr.surface, err = NewSurface(vr.context, vr.window); err != nil {
		return err
	}

	physical, err := SelectPhysicalDevice(vr.context)
	if err != nil {
		return err
	}
	if vr.device, err = NewDevice(vr.context, vr.surface, physical); err != nil {
		return err
	}

	if vr.swapchain, err = SwapchainCreate(vr.context, vr.device, vr.surface, vr.swapchainOptions(), nil); err != nil {
		return err
	}
	if vr.renderpass, err = RenderpassCreate(vr.context, vr.device, vr.swapchain.ImageFormat.Format, vr.config.ClearColor); err != nil {
		return err
	}
	if err = vr.swapchain.CreateFramebuffers(vr.context, vr.device, vr.renderpass); err != nil {
		return err
	}
	if vr.pipeline, err = NewShaderPipeline(vr.context, vr.device, vr.renderpass, vr.swapchain.Extent, vr.vertexCode, vr.fragmentCode); err != nil {
		return err
	}

	if vr.pools, err = NewCommandPools(vr.context, vr.device); err != nil {
		return err
	}
	if err = vr.recordCommandBuffers(); err != nil {
		return err
	}

	n := vr.swapchain.ImageCount()
	if vr.sync, err = NewFrameSync(vr.context, vr.device, n); err != nil {
		return err
	}
	vr.loop = NewFrameLoop(vr, n)

	return vr.checkImageCounts()
}

func (vr *VulkanRenderer) swapchainOptions() SwapchainOptions {
	return SwapchainOptions{PresentMode: vr.config.PresentMode}
}

func (vr *VulkanRenderer) recordCommandBuffers() error {
	buffers, err := AllocateCommandBuffers(vr.device, vr.pools.Graphics, vr.swapchain.ImageCount())
	if err != nil {
		return err
	}
	vr.commandBuffers = buffers
	if err := RecordDrawCommands(vr.commandBuffers, vr.renderpass, vr.swapchain.Framebuffers, vr.pipeline, vr.swapchain.Extent); err != nil {
		return err
	}
	vr.log.Debug("Vulkan command buffers recorded.", "count", len(buffers))
	return nil
}

func (vr *VulkanRenderer) freeCommandBuffers() {
	if vr.pools != nil {
		FreeCommandBuffers(vr.device, vr.pools.Graphics, vr.commandBuffers)
	}
	vr.commandBuffers = nil
}

type namedCount struct {
	name  string
	count int
}

// sameImageCount fails unless every per-image collection has length n.
func sameImageCount(n int, counts ...namedCount) error {
	for _, c := range counts {
		if c.count != n {
			return errors.Errorf("%s: have %d, want one per swapchain image (%d)", c.name, c.count, n)
		}
	}
	return nil
}

func (vr *VulkanRenderer) checkImageCounts() error {
	return sameImageCount(vr.swapchain.ImageCount(),
		namedCount{"image views", len(vr.swapchain.Views)},
		namedCount{"framebuffers", len(vr.swapchain.Framebuffers)},
		namedCount{"command buffers", len(vr.commandBuffers)},
		namedCount{"image available semaphores", len(vr.sync.ImageAvailable)},
		namedCount{"render finished semaphores", len(vr.sync.RenderFinished)},
		namedCount{"in flight fences", len(vr.sync.InFlight)},
		namedCount{"frame loop slots", vr.loop.Len()},
	)
}

// Resized records that the window size changed; the swapchain is rebuilt
// before the next frame.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.framebufferSizeGeneration++
	vr.log.Debug("Vulkan renderer backend resized.", "width", width, "height", height, "generation", vr.framebufferSizeGeneration)
}

// DrawFrame renders one frame. A stale surface is rebuilt in place; any other
// error is fatal for the renderer.
func (vr *VulkanRenderer) DrawFrame() error {
	if vr.loop == nil {
		return errors.New("renderer is not initialized")
	}
	if vr.framebufferSizeGeneration != vr.framebufferSizeLastGeneration {
		return vr.Recreate()
	}

	err := vr.loop.Step()
	switch {
	case err == nil:
		vr.FrameNumber++
		return nil
	case errors.Is(err, core.ErrSurfaceOutOfDate):
		vr.log.Debug("Surface out of date, recreating swapchain.", "reason", err)
		return vr.Recreate()
	default:
		return err
	}
}

// Recreate rebuilds everything that depends on the swapchain extent. It is a
// no-op while the window has no area; the rebuild stays pending.
func (vr *VulkanRenderer) Recreate() error {
	width, height := vr.surface.DrawableSize()
	if width == 0 || height == 0 {
		vr.log.Debug("Recreate called while the window is < 1 in a dimension, skipping.")
		return nil
	}
	if err := vr.device.WaitIdle(); err != nil {
		return err
	}

	vr.freeCommandBuffers()
	if vr.pipeline != nil {
		vr.pipeline.Destroy(vr.context, vr.device)
		vr.pipeline = nil
	}

	next, err := vr.swapchain.Recreate(vr.context, vr.device, vr.surface, vr.swapchainOptions())
	if err != nil {
		return err
	}
	vr.swapchain = next

	if vr.renderpass.Format != next.ImageFormat.Format {
		vr.log.Info("Surface format changed, rebuilding render pass.")
		vr.renderpass.Destroy(vr.context, vr.device)
		if vr.renderpass, err = RenderpassCreate(vr.context, vr.device, next.ImageFormat.Format, vr.config.ClearColor); err != nil {
			return err
		}
	}
	if err := next.CreateFramebuffers(vr.context, vr.device, vr.renderpass); err != nil {
		return err
	}
	if vr.pipeline, err = NewShaderPipeline(vr.context, vr.device, vr.renderpass, next.Extent, vr.vertexCode, vr.fragmentCode); err != nil {
		return err
	}
	if err := vr.recordCommandBuffers(); err != nil {
		return err
	}

	if n := next.ImageCount(); vr.sync.Len() != n {
		vr.sync.Destroy(vr.context, vr.device)
		if vr.sync, err = NewFrameSync(vr.context, vr.device, n); err != nil {
			return err
		}
	}
	vr.loop.Resize(next.ImageCount())
	vr.framebufferSizeLastGeneration = vr.framebufferSizeGeneration

	vr.log.Info("Swapchain recreated.", "width", next.Extent.Width, "height", next.Extent.Height, "images", next.ImageCount())
	return vr.checkImageCounts()
}

// ReloadShaders swaps in freshly compiled shaders. When loading or building
// fails the running pipeline is left untouched.
func (vr *VulkanRenderer) ReloadShaders() error {
	vertex, fragment, err := vr.loadShaders()
	if err != nil {
		return err
	}
	pipeline, err := NewShaderPipeline(vr.context, vr.device, vr.renderpass, vr.swapchain.Extent, vertex, fragment)
	if err != nil {
		return err
	}
	if err := vr.device.WaitIdle(); err != nil {
		pipeline.Destroy(vr.context, vr.device)
		return err
	}

	vr.freeCommandBuffers()
	vr.pipeline.Destroy(vr.context, vr.device)
	vr.pipeline = pipeline
	vr.vertexCode, vr.fragmentCode = vertex, fragment
	if err := vr.recordCommandBuffers(); err != nil {
		return err
	}
	vr.log.Info("Shaders reloaded.")
	return nil
}

type teardownStep struct {
	name string
	run  func()
}

// teardownSteps lists destruction in reverse creation order. Every step
// tolerates objects that were never created.
func (vr *VulkanRenderer) teardownSteps() []teardownStep {
	return []teardownStep{
		{"wait device idle", func() {
			if vr.device != nil {
				if err := vr.device.WaitIdle(); err != nil {
					vr.log.Error("Device wait idle failed during shutdown.", "err", err)
				}
			}
		}},
		{"sync objects", func() {
			if vr.sync != nil {
				vr.sync.Destroy(vr.context, vr.device)
				vr.sync = nil
			}
			vr.loop = nil
		}},
		{"command buffers and pools", func() {
			if vr.pools != nil {
				vr.freeCommandBuffers()
				vr.pools.Destroy(vr.context, vr.device)
				vr.pools = nil
			}
		}},
		{"pipeline", func() {
			if vr.pipeline != nil {
				vr.pipeline.Destroy(vr.context, vr.device)
				vr.pipeline = nil
			}
		}},
		{"render pass", func() {
			if vr.renderpass != nil {
				vr.renderpass.Destroy(vr.context, vr.device)
				vr.renderpass = nil
			}
		}},
		{"swapchain", func() {
			if vr.swapchain != nil {
				vr.swapchain.Destroy(vr.context, vr.device)
				vr.swapchain = nil
			}
		}},
		{"surface", func() {
			if vr.surface != nil {
				vr.surface.Destroy(vr.context)
				vr.surface = nil
			}
		}},
		{"device", func() {
			if vr.device != nil {
				vr.device.Destroy(vr.context)
				vr.device = nil
			}
		}},
		{"debug callback", func() {
			if vr.context != nil {
				vr.context.DestroyDebugCallback()
			}
		}},
		{"instance", func() {
			if vr.context != nil {
				vr.context.DestroyInstance()
				vr.context = nil
			}
		}},
	}
}

// Shutdown drains the device and destroys everything. Safe to call on a
// partially initialized renderer.
func (vr *VulkanRenderer) Shutdown() {
	for _, step := range vr.teardownSteps() {
		vr.log.Debug("Teardown.", "step", step.name)
		step.run()
	}
}
