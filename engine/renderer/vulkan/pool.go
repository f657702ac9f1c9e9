package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/scop/engine/core"
)

// CommandPools holds one pool per queue family in use. Both allow individual
// buffer resets so the draw buffers can be re-recorded after a resize.
type CommandPools struct {
	Graphics vk.CommandPool
	Transfer vk.CommandPool
}

func newCommandPool(context *VulkanContext, device *VulkanDevice, family uint32) (vk.CommandPool, error) {
	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device.LogicalDevice, &createInfo, context.Allocator, &pool); res != vk.Success {
		return vk.NullCommandPool, vulkanError(res, "create command pool")
	}
	return pool, nil
}

func NewCommandPools(context *VulkanContext, device *VulkanDevice) (*CommandPools, error) {
	graphics, err := newCommandPool(context, device, device.GraphicsQueueIndex)
	if err != nil {
		return nil, err
	}
	core.LogInfo("Graphics command pool created.")

	transfer, err := newCommandPool(context, device, device.TransferQueueIndex)
	if err != nil {
		vk.DestroyCommandPool(device.LogicalDevice, graphics, context.Allocator)
		return nil, err
	}
	core.LogInfo("Transfer command pool created.")

	return &CommandPools{Graphics: graphics, Transfer: transfer}, nil
}

// Destroy frees every buffer still allocated from the pools.
func (p *CommandPools) Destroy(context *VulkanContext, device *VulkanDevice) {
	core.LogInfo("Destroying command pools...")
	if p.Transfer != vk.NullCommandPool {
		vk.DestroyCommandPool(device.LogicalDevice, p.Transfer, context.Allocator)
		p.Transfer = vk.NullCommandPool
	}
	if p.Graphics != vk.NullCommandPool {
		vk.DestroyCommandPool(device.LogicalDevice, p.Graphics, context.Allocator)
		p.Graphics = vk.NullCommandPool
	}
}
