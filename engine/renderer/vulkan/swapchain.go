package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/core"
	emath "github.com/spaghettifunk/scop/engine/math"
)

const preferredImageCount uint32 = 3

var presentModeNames = map[string]vk.PresentMode{
	"mailbox":      vk.PresentModeMailbox,
	"immediate":    vk.PresentModeImmediate,
	"fifo":         vk.PresentModeFifo,
	"fifo_relaxed": vk.PresentModeFifoRelaxed,
}

// PresentModeFromName maps a configuration name to a present mode. The empty
// name means "no preference".
func PresentModeFromName(name string) (vk.PresentMode, bool) {
	m, ok := presentModeNames[name]
	return m, ok
}

type SwapchainOptions struct {
	// Optional present mode name; used when the surface supports it.
	PresentMode string
}

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D

	// Images are owned by the presentation engine, views are ours.
	Images []vk.Image
	Views  []vk.ImageView

	// Empty until CreateFramebuffers runs.
	Framebuffers []*VulkanFramebuffer
}

func presentModeRank(m vk.PresentMode) int {
	switch m {
	case vk.PresentModeMailbox:
		return 3
	case vk.PresentModeImmediate:
		return 2
	case vk.PresentModeFifo:
		return 1
	case vk.PresentModeFifoRelaxed:
		return 0
	default:
		return -1
	}
}

func pickPresentMode(modes []vk.PresentMode, preferred string) vk.PresentMode {
	if want, ok := PresentModeFromName(preferred); ok {
		for _, m := range modes {
			if m == want {
				return m
			}
		}
		core.LogWarn("Present mode '%s' is not supported, falling back to the default order.", preferred)
	}
	best, bestRank := vk.PresentModeFifo, -1
	for _, m := range modes {
		if r := presentModeRank(m); r > bestRank {
			best, bestRank = m, r
		}
	}
	if bestRank < 0 {
		// FIFO is always available.
		return vk.PresentModeFifo
	}
	return best
}

func surfaceFormatRank(f vk.Format) int {
	switch f {
	case vk.FormatB8g8r8a8Srgb, vk.FormatR8g8b8a8Srgb:
		return 2
	case vk.FormatB8g8r8a8Unorm, vk.FormatR8g8b8a8Unorm:
		return 1
	default:
		return 0
	}
}

// pickSurfaceFormat keeps only sRGB non-linear candidates and takes the best
// ranked one.
func pickSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	var best vk.SurfaceFormat
	bestRank := -1
	for _, f := range formats {
		if f.ColorSpace != vk.ColorSpaceSrgbNonlinear {
			continue
		}
		if r := surfaceFormatRank(f.Format); r > bestRank {
			best, bestRank = f, r
		}
	}
	if bestRank < 0 {
		return vk.SurfaceFormat{}, core.ErrNoSupportedFormat
	}
	return best, nil
}

// pickImageCount aims for triple buffering. A maximum of 0 means unbounded.
func pickImageCount(minCount, maxCount uint32) uint32 {
	count := preferredImageCount
	if count < minCount {
		count = minCount
	}
	if maxCount != 0 && count > maxCount {
		count = maxCount
	}
	return count
}

func pickExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  emath.Clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: emath.Clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// SwapchainCreate negotiates format, present mode, image count and extent with
// the surface and builds the chain plus one view per image. old may be nil;
// when set its handle is handed over to the driver but it is not destroyed.
func SwapchainCreate(context *VulkanContext, device *VulkanDevice, surface *VulkanSurface, opts SwapchainOptions, old *VulkanSwapchain) (*VulkanSwapchain, error) {
	support, err := surface.QuerySwapchainSupport(device.PhysicalDevice)
	if err != nil {
		return nil, err
	}
	format, err := pickSurfaceFormat(support.Formats)
	if err != nil {
		return nil, err
	}
	caps := support.Capabilities
	width, height := surface.DrawableSize()

	swapchain := &VulkanSwapchain{
		ImageFormat: format,
		PresentMode: pickPresentMode(support.PresentModes, opts.PresentMode),
		Extent:      pickExtent(caps, width, height),
	}
	imageCount := pickImageCount(caps.MinImageCount, caps.MaxImageCount)

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface.Handle,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		// Graphics and present share the graphics family.
		ImageSharingMode:      vk.SharingModeExclusive,
		QueueFamilyIndexCount: 1,
		PQueueFamilyIndices:   []uint32{device.GraphicsQueueIndex},
		PreTransform:          caps.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           swapchain.PresentMode,
		Clipped:               vk.True,
	}
	if old != nil {
		createInfo.OldSwapchain = old.Handle
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vulkanError(res, "create swapchain")
	}
	swapchain.Handle = handle

	var count uint32
	if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &count, nil); res != vk.Success {
		swapchain.Destroy(context, device)
		return nil, vulkanError(res, "get swapchain images")
	}
	swapchain.Images = make([]vk.Image, count)
	if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &count, swapchain.Images); res != vk.Success {
		swapchain.Destroy(context, device)
		return nil, vulkanError(res, "get swapchain images")
	}
	swapchain.Images = swapchain.Images[:count]

	swapchain.Views = make([]vk.ImageView, 0, count)
	for i, img := range swapchain.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if res := vk.CreateImageView(device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
			swapchain.Destroy(context, device)
			return nil, errors.Wrapf(vulkanError(res, "create image view"), "image %d", i)
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %d.",
		swapchain.Extent.Width, swapchain.Extent.Height, len(swapchain.Images), swapchain.PresentMode)
	return swapchain, nil
}

// CreateFramebuffers builds one single-layer framebuffer per view. It can only
// run once a render pass for the chain's format exists.
func (vs *VulkanSwapchain) CreateFramebuffers(context *VulkanContext, device *VulkanDevice, renderpass *VulkanRenderpass) error {
	if len(vs.Framebuffers) > 0 {
		return errors.New("swapchain framebuffers already exist")
	}
	vs.Framebuffers = make([]*VulkanFramebuffer, 0, len(vs.Views))
	for i, view := range vs.Views {
		fb, err := FramebufferCreate(context, device, renderpass, vs.Extent, []vk.ImageView{view})
		if err != nil {
			vs.DestroyFramebuffers(context, device)
			return errors.Wrapf(err, "framebuffer %d", i)
		}
		vs.Framebuffers = append(vs.Framebuffers, fb)
	}
	return nil
}

// ImageCount is N, the length shared by every per-image collection.
func (vs *VulkanSwapchain) ImageCount() int {
	return len(vs.Images)
}

// Recreate builds a replacement chain for the current surface extent and
// destroys this one. The caller must have drained the device first.
func (vs *VulkanSwapchain) Recreate(context *VulkanContext, device *VulkanDevice, surface *VulkanSurface, opts SwapchainOptions) (*VulkanSwapchain, error) {
	next, err := SwapchainCreate(context, device, surface, opts, vs)
	if err != nil {
		return nil, err
	}
	vs.Destroy(context, device)
	return next, nil
}

// AcquireNextImage blocks until the presentation engine hands out an image.
// A suboptimal acquire still yields a usable image.
func (vs *VulkanSwapchain) AcquireNextImage(device *VulkanDevice, timeoutNS uint64, imageAvailable vk.Semaphore) (uint32, error) {
	var index uint32
	res := vk.AcquireNextImage(device.LogicalDevice, vs.Handle, timeoutNS, imageAvailable, vk.NullFence, &index)
	if res == vk.Success || res == vk.Suboptimal {
		return index, nil
	}
	return 0, vulkanError(res, "acquire swapchain image")
}

// Present queues image index for presentation once renderFinished signals.
// Suboptimal and out-of-date results both report ErrSurfaceOutOfDate.
func (vs *VulkanSwapchain) Present(queue vk.Queue, renderFinished vk.Semaphore, index uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{index},
	}
	res := vk.QueuePresent(queue, &presentInfo)
	if res == vk.Suboptimal {
		return errors.Wrap(core.ErrSurfaceOutOfDate, "present: suboptimal")
	}
	return vulkanError(res, "present")
}

func (vs *VulkanSwapchain) DestroyFramebuffers(context *VulkanContext, device *VulkanDevice) {
	for _, fb := range vs.Framebuffers {
		fb.Destroy(context, device)
	}
	vs.Framebuffers = nil
}

// Destroy releases framebuffers, views and the chain. Images go with the chain.
func (vs *VulkanSwapchain) Destroy(context *VulkanContext, device *VulkanDevice) {
	vs.DestroyFramebuffers(context, device)
	for _, view := range vs.Views {
		vk.DestroyImageView(device.LogicalDevice, view, context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}
