package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanFramebuffer struct {
	Handle vk.Framebuffer
}

func FramebufferCreate(context *VulkanContext, device *VulkanDevice, renderpass *VulkanRenderpass, extent vk.Extent2D, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vulkanError(res, "create framebuffer")
	}
	return &VulkanFramebuffer{Handle: handle}, nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext, device *VulkanDevice) {
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(device.LogicalDevice, vfb.Handle, context.Allocator)
		vfb.Handle = vk.NullFramebuffer
	}
}
