package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/core"
)

func TestVulkanErrorMapsFrameResults(t *testing.T) {
	if err := vulkanError(vk.Success, "present"); err != nil {
		t.Fatalf("success produced %v", err)
	}
	if err := vulkanError(vk.ErrorOutOfDate, "acquire"); !errors.Is(err, core.ErrSurfaceOutOfDate) {
		t.Errorf("out of date: %v", err)
	}
	if err := vulkanError(vk.ErrorDeviceLost, "submit"); !errors.Is(err, core.ErrDeviceLost) {
		t.Errorf("device lost: %v", err)
	}

	err := vulkanError(vk.ErrorOutOfHostMemory, "create fence")
	if err == nil || errors.Is(err, core.ErrDeviceLost) || errors.Is(err, core.ErrSurfaceOutOfDate) {
		t.Fatalf("host memory: %v", err)
	}
}

func TestVulkanSafeStrings(t *testing.T) {
	in := []string{"VK_KHR_surface", "done\x00", ""}
	out := VulkanSafeStrings(in)
	want := []string{"VK_KHR_surface\x00", "done\x00", "\x00"}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %q, want %q", i, out[i], want[i])
		}
	}
	if in[0] != "VK_KHR_surface" {
		t.Error("input slice was modified")
	}
}

func TestCString(t *testing.T) {
	var name [256]byte
	copy(name[:], "VK_LAYER_KHRONOS_validation")
	if got := cString(name[:]); got != "VK_LAYER_KHRONOS_validation" {
		t.Fatalf("cString = %q", got)
	}
	if got := cString([]byte("full")); got != "full" {
		t.Fatalf("unterminated cString = %q", got)
	}
}
