package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	State  VulkanCommandBufferState
}

// AllocateCommandBuffers allocates count primary buffers from pool in a single call.
func AllocateCommandBuffers(device *VulkanDevice, pool vk.CommandPool, count int) ([]*VulkanCommandBuffer, error) {
	if count == 0 {
		return nil, nil
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}
	handles := make([]vk.CommandBuffer, count)
	if res := vk.AllocateCommandBuffers(device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		return nil, vulkanError(res, "allocate command buffers")
	}
	buffers := make([]*VulkanCommandBuffer, count)
	for i, h := range handles {
		buffers[i] = &VulkanCommandBuffer{Handle: h, State: COMMAND_BUFFER_STATE_READY}
	}
	return buffers, nil
}

// FreeCommandBuffers returns buffers to pool. They must not be pending.
func FreeCommandBuffers(device *VulkanDevice, pool vk.CommandPool, buffers []*VulkanCommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	handles := make([]vk.CommandBuffer, len(buffers))
	for i, b := range buffers {
		handles[i] = b.Handle
	}
	vk.FreeCommandBuffers(device.LogicalDevice, pool, uint32(len(handles)), handles)
	for _, b := range buffers {
		b.Handle = nil
		b.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
}

// Begin starts recording. The buffers are recorded once and resubmitted every
// frame, so no usage flags are set.
func (v *VulkanCommandBuffer) Begin() error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}

	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		return vulkanError(res, "begin command buffer")
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return vulkanError(res, "end command buffer")
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// recordAll runs record for every index and stops at the first failure. A
// half-recorded set can not be submitted, so the failure is reported as
// ErrPartialRecording.
func recordAll(count int, record func(i int) error) error {
	for i := 0; i < count; i++ {
		if err := record(i); err != nil {
			return errors.Wrapf(core.ErrPartialRecording, "image %d: %v", i, err)
		}
	}
	return nil
}

// RecordDrawCommands records, once per buffer, the single-point draw into the
// framebuffer with the same index.
func RecordDrawCommands(buffers []*VulkanCommandBuffer, renderpass *VulkanRenderpass, framebuffers []*VulkanFramebuffer, pipeline *VulkanPipeline, extent vk.Extent2D) error {
	if len(buffers) != len(framebuffers) {
		return errors.Wrapf(core.ErrPartialRecording, "%d command buffers for %d framebuffers", len(buffers), len(framebuffers))
	}
	return recordAll(len(buffers), func(i int) error {
		cb := buffers[i]
		if err := cb.Begin(); err != nil {
			return err
		}
		renderpass.Begin(cb, framebuffers[i].Handle, extent)
		pipeline.Bind(cb, vk.PipelineBindPointGraphics)
		vk.CmdDraw(cb.Handle, 1, 1, 0, 0)
		renderpass.End(cb)
		return cb.End()
	})
}
