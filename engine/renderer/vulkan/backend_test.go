package vulkan

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/scop/engine/core"
)

type stubShaders struct {
	code map[string][]uint32
	err  error
	// Names requested, in order.
	loaded []string
}

func (s *stubShaders) LoadShader(name string) ([]uint32, error) {
	s.loaded = append(s.loaded, name)
	if s.err != nil {
		return nil, s.err
	}
	return s.code[name], nil
}

func TestTeardownOrder(t *testing.T) {
	vr := New(nil, nil)
	var names []string
	for _, s := range vr.teardownSteps() {
		names = append(names, s.name)
	}
	want := []string{
		"wait device idle",
		"sync objects",
		"command buffers and pools",
		"pipeline",
		"render pass",
		"swapchain",
		"surface",
		"device",
		"debug callback",
		"instance",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("teardown = %v\nwant %v", names, want)
	}
}

func TestShutdownUninitialized(t *testing.T) {
	vr := New(nil, nil)
	// Nothing was created, nothing may be touched.
	vr.Shutdown()
	vr.Shutdown()
}

func TestInitializeRejectsBadShaderBeforeVulkan(t *testing.T) {
	shaders := &stubShaders{err: core.ErrAlignment}
	// A nil window would panic on the first Vulkan related call.
	vr := New(nil, shaders)

	err := vr.Initialize(RendererConfig{VertexShader: "shader.vert.spv", FragmentShader: "shader.frag.spv"})
	if !errors.Is(err, core.ErrAlignment) {
		t.Fatalf("err = %v, want ErrAlignment", err)
	}
	if vr.context != nil {
		t.Error("no Vulkan object may exist after a shader load failure")
	}
	if !reflect.DeepEqual(shaders.loaded, []string{"shader.vert.spv"}) {
		t.Errorf("loaded = %v", shaders.loaded)
	}
}

func TestDrawFrameBeforeInitialize(t *testing.T) {
	if err := New(nil, nil).DrawFrame(); err == nil {
		t.Error("DrawFrame on an uninitialized renderer must fail")
	}
}

func TestSameImageCount(t *testing.T) {
	ok := sameImageCount(3,
		namedCount{"views", 3},
		namedCount{"framebuffers", 3},
		namedCount{"fences", 3},
	)
	if ok != nil {
		t.Errorf("equal lengths: %v", ok)
	}

	err := sameImageCount(3,
		namedCount{"views", 3},
		namedCount{"command buffers", 2},
	)
	if err == nil || !strings.Contains(err.Error(), "command buffers") {
		t.Errorf("err = %v, want a complaint about command buffers", err)
	}
}

func TestRecordAllStopsAtFirstFailure(t *testing.T) {
	var recorded []int
	err := recordAll(4, func(i int) error {
		if i == 2 {
			return errors.New("begin failed")
		}
		recorded = append(recorded, i)
		return nil
	})
	if !errors.Is(err, core.ErrPartialRecording) {
		t.Fatalf("err = %v, want ErrPartialRecording", err)
	}
	if !strings.Contains(err.Error(), "image 2") {
		t.Errorf("err = %v, want the failing index", err)
	}
	if !reflect.DeepEqual(recorded, []int{0, 1}) {
		t.Errorf("recorded = %v, want [0 1]", recorded)
	}

	if err := recordAll(3, func(int) error { return nil }); err != nil {
		t.Errorf("all succeed: %v", err)
	}
}

func TestRenderPassDescription(t *testing.T) {
	a := colorAttachment(vk.FormatB8g8r8a8Srgb)
	if a.LoadOp != vk.AttachmentLoadOpClear || a.StoreOp != vk.AttachmentStoreOpStore {
		t.Error("colour must be cleared on load and stored")
	}
	if a.InitialLayout != vk.ImageLayoutUndefined || a.FinalLayout != vk.ImageLayoutPresentSrc {
		t.Error("attachment must go from undefined to present")
	}
	if a.Samples != vk.SampleCount1Bit {
		t.Error("single sample expected")
	}

	d := acquireDependency()
	if d.SrcSubpass != vk.SubpassExternal || d.DstSubpass != 0 {
		t.Error("dependency must run from external to subpass 0")
	}
	stage := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	if d.SrcStageMask != stage || d.DstStageMask != stage {
		t.Error("dependency must gate on colour attachment output")
	}
	want := vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit)
	if d.DstAccessMask != want {
		t.Errorf("dst access = %d, want read|write", d.DstAccessMask)
	}
}

func TestPipelineFixedState(t *testing.T) {
	viewport, scissor := fullViewport(vk.Extent2D{Width: 800, Height: 600})
	if viewport.Width != 800 || viewport.Height != 600 || viewport.MaxDepth != 1 {
		t.Errorf("viewport = %+v", viewport)
	}
	if scissor.Extent.Width != 800 || scissor.Extent.Height != 600 {
		t.Errorf("scissor = %+v", scissor)
	}

	blend := alphaBlendAttachment()
	if blend.BlendEnable != vk.True ||
		blend.SrcColorBlendFactor != vk.BlendFactorSrcAlpha ||
		blend.DstColorBlendFactor != vk.BlendFactorOneMinusSrcAlpha ||
		blend.ColorBlendOp != vk.BlendOpAdd {
		t.Errorf("blend = %+v, want standard alpha blending", blend)
	}
}
