package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/scop/engine/core"
)

// DefaultClearColor is the colour every frame is cleared to unless configured.
var DefaultClearColor = [4]float32{0.0, 0.0, 0.8, 1.0}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	// Format of the single colour attachment.
	Format     vk.Format
	ClearColor [4]float32
}

// colorAttachment clears on load, stores, and leaves the image ready to present.
func colorAttachment(format vk.Format) vk.AttachmentDescription {
	return vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
}

// acquireDependency keeps colour output of subpass 0 from starting before the
// acquired image is available.
func acquireDependency() vk.SubpassDependency {
	return vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}
}

func RenderpassCreate(context *VulkanContext, device *VulkanDevice, format vk.Format, clearColor [4]float32) (*VulkanRenderpass, error) {
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment(format)},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{acquireDependency()},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vulkanError(res, "create render pass")
	}
	core.LogDebug("Render pass created.")
	return &VulkanRenderpass{
		Handle:     handle,
		Format:     format,
		ClearColor: clearColor,
	}, nil
}

func (vr *VulkanRenderpass) Destroy(context *VulkanContext, device *VulkanDevice) {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = vk.NullRenderPass
	}
}

// Begin starts the pass on framebuffer over the full extent.
func (vr *VulkanRenderpass) Begin(commandBuffer *VulkanCommandBuffer, framebuffer vk.Framebuffer, extent vk.Extent2D) {
	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(vr.ClearColor[:])

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) End(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
