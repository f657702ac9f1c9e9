package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/core"
)

// SurfaceSource is the windowing side of a surface: it creates the native
// surface and reports the drawable size in pixels.
type SurfaceSource interface {
	CreateWindowSurface(instance vk.Instance) (uintptr, error)
	FramebufferSize() (uint32, uint32)
}

type VulkanSurface struct {
	Handle vk.Surface
	source SurfaceSource
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func NewSurface(context *VulkanContext, source SurfaceSource) (*VulkanSurface, error) {
	core.LogDebug("Creating Vulkan surface...")
	ptr, err := source.CreateWindowSurface(context.Instance)
	if err != nil {
		return nil, err
	}
	if ptr == 0 {
		return nil, errors.New("platform returned a null surface")
	}
	core.LogDebug("Vulkan surface created.")
	return &VulkanSurface{
		Handle: vk.SurfaceFromPointer(ptr),
		source: source,
	}, nil
}

// DrawableSize returns the current pixel size of the window behind the surface.
func (vs *VulkanSurface) DrawableSize() (uint32, uint32) {
	return vs.source.FramebufferSize()
}

func (vs *VulkanSurface) SupportsPresent(physicalDevice vk.PhysicalDevice, family uint32) (bool, error) {
	var supported vk.Bool32
	if res := vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, family, vs.Handle, &supported); res != vk.Success {
		return false, vulkanError(res, "query surface support")
	}
	return supported == vk.True, nil
}

func (vs *VulkanSurface) Capabilities(physicalDevice vk.PhysicalDevice) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, vs.Handle, &caps); res != vk.Success {
		return caps, vulkanError(res, "query surface capabilities")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func (vs *VulkanSurface) Formats(physicalDevice vk.PhysicalDevice) ([]vk.SurfaceFormat, error) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, vs.Handle, &count, nil); res != vk.Success {
		return nil, vulkanError(res, "query surface formats")
	}
	formats := make([]vk.SurfaceFormat, count)
	if count == 0 {
		return formats, nil
	}
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, vs.Handle, &count, formats); res != vk.Success {
		return nil, vulkanError(res, "query surface formats")
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats[:count], nil
}

func (vs *VulkanSurface) PresentModes(physicalDevice vk.PhysicalDevice) ([]vk.PresentMode, error) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, vs.Handle, &count, nil); res != vk.Success {
		return nil, vulkanError(res, "query present modes")
	}
	modes := make([]vk.PresentMode, count)
	if count == 0 {
		return modes, nil
	}
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, vs.Handle, &count, modes); res != vk.Success {
		return nil, vulkanError(res, "query present modes")
	}
	return modes[:count], nil
}

// QuerySwapchainSupport gathers capabilities, formats and present modes in one go.
func (vs *VulkanSurface) QuerySwapchainSupport(physicalDevice vk.PhysicalDevice) (*VulkanSwapchainSupportInfo, error) {
	caps, err := vs.Capabilities(physicalDevice)
	if err != nil {
		return nil, err
	}
	formats, err := vs.Formats(physicalDevice)
	if err != nil {
		return nil, err
	}
	modes, err := vs.PresentModes(physicalDevice)
	if err != nil {
		return nil, err
	}
	return &VulkanSwapchainSupportInfo{
		Capabilities: caps,
		Formats:      formats,
		PresentModes: modes,
	}, nil
}

func (vs *VulkanSurface) Destroy(context *VulkanContext) {
	if vs.Handle != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(context.Instance, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSurface
	}
}
