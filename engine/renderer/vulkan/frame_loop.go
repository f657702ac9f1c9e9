package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// frameOps are the device operations of one frame, addressed by sync slot and
// acquired image index.
type frameOps interface {
	acquire(slot int) (uint32, error)
	waitFence(slot int) error
	resetFence(slot int) error
	submit(slot int, image uint32) error
	present(slot int, image uint32) error
}

// FrameLoop drives acquire, wait, reset, submit, present over N slots.
// The host never runs more than N submissions ahead of the device.
type FrameLoop struct {
	ops     frameOps
	current int
	n       int
}

func NewFrameLoop(ops frameOps, n int) *FrameLoop {
	return &FrameLoop{ops: ops, n: n}
}

// Current is the slot used by the last submitted frame, always in [0, N).
func (l *FrameLoop) Current() int {
	return l.current
}

func (l *FrameLoop) Len() int {
	return l.n
}

// Resize adopts a new slot count. The index restarts when N changes.
func (l *FrameLoop) Resize(n int) {
	if n != l.n {
		l.n = n
		l.current = 0
	}
}

// Step renders one frame. The slot index is committed as soon as the
// submission is issued, so a frame abandoned at acquire does not consume it.
// ErrSurfaceOutOfDate from acquire or present means the swapchain needs
// rebuilding; other errors are fatal.
func (l *FrameLoop) Step() error {
	if l.n <= 0 {
		return errors.New("frame loop has no slots")
	}
	next := (l.current + 1) % l.n

	image, err := l.ops.acquire(next)
	if err != nil {
		return err
	}
	if err := l.ops.waitFence(next); err != nil {
		return err
	}
	if err := l.ops.resetFence(next); err != nil {
		return err
	}
	if err := l.ops.submit(next, image); err != nil {
		return err
	}
	l.current = next

	return l.ops.present(next, image)
}

func (r *VulkanRenderer) acquire(slot int) (uint32, error) {
	return r.swapchain.AcquireNextImage(r.device, math.MaxUint64, r.sync.ImageAvailable[slot])
}

func (r *VulkanRenderer) waitFence(slot int) error {
	return r.sync.InFlight[slot].Wait(r.device, math.MaxUint64)
}

func (r *VulkanRenderer) resetFence(slot int) error {
	return r.sync.InFlight[slot].Reset(r.device)
}

func (r *VulkanRenderer) submit(slot int, image uint32) error {
	if int(image) >= len(r.commandBuffers) {
		return errors.Errorf("acquired image %d out of range (%d command buffers)", image, len(r.commandBuffers))
	}
	cb := r.commandBuffers[image]
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{r.sync.ImageAvailable[slot]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{r.sync.RenderFinished[slot]},
	}
	if res := vk.QueueSubmit(r.device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, r.sync.InFlight[slot].Handle); res != vk.Success {
		return vulkanError(res, "submit frame")
	}
	cb.UpdateSubmitted()
	return nil
}

func (r *VulkanRenderer) present(slot int, image uint32) error {
	return r.swapchain.Present(r.device.GraphicsQueue, r.sync.RenderFinished[slot], image)
}
