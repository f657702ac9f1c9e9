package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// FrameSync holds, per swapchain image slot, the semaphores that order
// acquire, render and present, plus the fence that tells the host a slot's
// last submission has finished.
type FrameSync struct {
	ImageAvailable []vk.Semaphore
	RenderFinished []vk.Semaphore
	InFlight       []*VulkanFence
}

func newSemaphore(context *VulkanContext, device *VulkanDevice) (vk.Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var sem vk.Semaphore
	if res := vk.CreateSemaphore(device.LogicalDevice, &createInfo, context.Allocator, &sem); res != vk.Success {
		return vk.NullSemaphore, vulkanError(res, "create semaphore")
	}
	return sem, nil
}

// NewFrameSync creates count slots. Fences start signaled so the first wait on
// each slot returns at once.
func NewFrameSync(context *VulkanContext, device *VulkanDevice, count int) (*FrameSync, error) {
	fs := &FrameSync{
		ImageAvailable: make([]vk.Semaphore, 0, count),
		RenderFinished: make([]vk.Semaphore, 0, count),
		InFlight:       make([]*VulkanFence, 0, count),
	}
	for i := 0; i < count; i++ {
		available, err := newSemaphore(context, device)
		if err != nil {
			fs.Destroy(context, device)
			return nil, errors.Wrapf(err, "slot %d", i)
		}
		fs.ImageAvailable = append(fs.ImageAvailable, available)

		finished, err := newSemaphore(context, device)
		if err != nil {
			fs.Destroy(context, device)
			return nil, errors.Wrapf(err, "slot %d", i)
		}
		fs.RenderFinished = append(fs.RenderFinished, finished)

		fence, err := NewFence(context, device, true)
		if err != nil {
			fs.Destroy(context, device)
			return nil, errors.Wrapf(err, "slot %d", i)
		}
		fs.InFlight = append(fs.InFlight, fence)
	}
	return fs, nil
}

// Len is the number of slots; it matches the swapchain image count.
func (fs *FrameSync) Len() int {
	return len(fs.InFlight)
}

func (fs *FrameSync) Destroy(context *VulkanContext, device *VulkanDevice) {
	for _, s := range fs.ImageAvailable {
		vk.DestroySemaphore(device.LogicalDevice, s, context.Allocator)
	}
	for _, s := range fs.RenderFinished {
		vk.DestroySemaphore(device.LogicalDevice, s, context.Allocator)
	}
	for _, f := range fs.InFlight {
		f.Destroy(context, device)
	}
	fs.ImageAvailable = nil
	fs.RenderFinished = nil
	fs.InFlight = nil
}
