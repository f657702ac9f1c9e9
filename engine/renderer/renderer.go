package renderer

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/core"
	"github.com/spaghettifunk/scop/engine/renderer/vulkan"
)

type Renderer struct {
	backend     RendererBackend
	backendType RendererType

	width  uint32
	height uint32

	// Set by ShadersChanged, consumed by the next DrawFrame.
	shadersDirty bool
	reloads      int
}

// New creates a renderer drawing to window with the Vulkan backend.
func New(window vulkan.Window, shaders vulkan.ShaderSource) *Renderer {
	return NewWithBackend(vulkan.New(window, shaders), Vulkan)
}

func NewWithBackend(backend RendererBackend, t RendererType) *Renderer {
	return &Renderer{
		backend:     backend,
		backendType: t,
	}
}

func (r *Renderer) Initialize(cfg vulkan.RendererConfig, width, height uint32) error {
	r.width, r.height = width, height
	if err := r.backend.Initialize(cfg); err != nil {
		return errors.Wrapf(err, "initialize %s renderer", r.backendType)
	}
	core.LogInfo("%s renderer initialized.", r.backendType)
	return nil
}

func (r *Renderer) Shutdown() {
	r.backend.Shutdown()
}

// OnResize forwards a framebuffer size change. Repeated sizes are ignored.
func (r *Renderer) OnResize(width, height uint32) {
	if width == r.width && height == r.height {
		return
	}
	r.width, r.height = width, height
	r.backend.Resized(width, height)
}

// ShadersChanged marks the pipeline for a rebuild before the next frame. Any
// number of calls between two frames cause a single reload.
func (r *Renderer) ShadersChanged() {
	r.shadersDirty = true
}

// Reloads counts the shader reloads that succeeded.
func (r *Renderer) Reloads() int {
	return r.reloads
}

func (r *Renderer) DrawFrame() error {
	if r.shadersDirty {
		r.shadersDirty = false
		if err := r.backend.ReloadShaders(); err != nil {
			// The previous pipeline keeps running.
			core.LogError("Shader reload failed: %v", err)
		} else {
			r.reloads++
		}
	}
	if err := r.backend.DrawFrame(); err != nil {
		core.LogError("DrawFrame failed. Application shutting down...")
		return err
	}
	return nil
}
