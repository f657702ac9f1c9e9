package renderer

import "github.com/spaghettifunk/scop/engine/renderer/vulkan"

// RendererBackend is the API specific half of the renderer.
type RendererBackend interface {
	Initialize(cfg vulkan.RendererConfig) error
	// DrawFrame renders and presents one frame. A stale surface is handled
	// inside; a returned error is fatal.
	DrawFrame() error
	Resized(width, height uint32)
	ReloadShaders() error
	Shutdown()
}

type RendererType uint8

const (
	Vulkan RendererType = iota
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	default:
		return "unknown"
	}
}
