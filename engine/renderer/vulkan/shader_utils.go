package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/resources"
)

const shaderEntryPoint = "main"

// VulkanShaderStage is one compiled stage. The module only has to live until
// the pipeline that uses it has been created.
type VulkanShaderStage struct {
	Stage  resources.ShaderStage
	Handle vk.ShaderModule
	// Filled for vkCreateGraphicsPipelines.
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderStage creates a shader module from SPIR-V words.
func NewShaderStage(context *VulkanContext, device *VulkanDevice, stage resources.ShaderStage, code []uint32) (*VulkanShaderStage, error) {
	if len(code) == 0 {
		return nil, errors.Errorf("%s shader is empty", stage)
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		return nil, errors.Wrapf(vulkanError(res, "create shader module"), "%s stage", stage)
	}

	return &VulkanShaderStage{
		Stage:  stage,
		Handle: module,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(stage),
			Module: module,
			PName:  VulkanSafeString(shaderEntryPoint),
		},
	}, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext, device *VulkanDevice) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}
