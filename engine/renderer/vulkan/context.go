package vulkan

import (
	"runtime"
	"strings"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/core"
)

const (
	ValidationLayerName = "VK_LAYER_KHRONOS_validation"

	portabilityEnumerationExtension = "VK_KHR_portability_enumeration"
	physicalDeviceProperties2       = "VK_KHR_get_physical_device_properties2"
	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	instanceCreateEnumeratePortability vk.InstanceCreateFlags = 0x00000001
)

type ContextConfig struct {
	ApplicationName string
	EngineName      string
	// Packed with vk.MakeVersion.
	ApiVersion uint32
	// Enables VK_LAYER_KHRONOS_validation and the debug report callback.
	Validation bool
	// Instance extensions required by the windowing layer.
	PlatformExtensions []string
}

// VulkanContext owns the instance and, when validation is enabled, the debug
// report callback. It is created first and destroyed last.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	Validation     bool
	debugMessenger vk.DebugReportCallback
	sink           DebugSink
}

// NewContext loads the Vulkan entry points through procAddr and creates the instance.
func NewContext(procAddr unsafe.Pointer, cfg ContextConfig, sink DebugSink) (*VulkanContext, error) {
	if procAddr == nil {
		return nil, errors.New("GetInstanceProcAddr is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "initialize vulkan loader")
	}

	context := &VulkanContext{
		// TODO: custom allocator.
		Allocator:  nil,
		Validation: cfg.Validation,
		sink:       sink,
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         cfg.ApiVersion,
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(cfg.ApplicationName),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
		PEngineName:        VulkanSafeString(cfg.EngineName),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	extensions := requiredInstanceExtensions(cfg.PlatformExtensions, cfg.Validation, runtime.GOOS)
	core.LogDebug("Required extensions: %s", strings.Join(extensions, ", "))
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= instanceCreateEnumeratePortability
	}
	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)

	// Validation layers.
	var layers []string
	if cfg.Validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		available, err := availableInstanceLayers()
		if err != nil {
			return nil, err
		}
		layers = []string{ValidationLayerName}
		if missing := missingLayers(layers, available); len(missing) > 0 {
			return nil, errors.Errorf("required validation layer is missing: %s", strings.Join(missing, ", "))
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, context.Allocator, &instance); res != vk.Success {
		return nil, vulkanError(res, "create instance")
	}
	context.Instance = instance
	if err := vk.InitInstance(context.Instance); err != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		return nil, errors.Wrap(err, "load instance functions")
	}
	core.LogInfo("Vulkan Instance created.")

	// Debugger
	if cfg.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       debugReportFlags(),
			PfnCallback: context.debugCallback,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg); res != vk.Success {
			vk.DestroyInstance(context.Instance, context.Allocator)
			return nil, vulkanError(res, "create debug report callback")
		}
		context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	return context, nil
}

func (vc *VulkanContext) DestroyDebugCallback() {
	if vc.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = vk.NullDebugReportCallback
	}
}

func (vc *VulkanContext) DestroyInstance() {
	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

// requiredInstanceExtensions merges the platform extensions with the ones the
// engine needs, dropping duplicates while keeping order.
func requiredInstanceExtensions(platform []string, validation bool, goos string) []string {
	extensions := append([]string{"VK_KHR_surface"}, platform...)
	if goos == "darwin" {
		extensions = append(extensions, portabilityEnumerationExtension, physicalDeviceProperties2)
	}
	if validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}

	seen := make(map[string]bool, len(extensions))
	out := extensions[:0]
	for _, e := range extensions {
		e = strings.TrimRight(e, "\x00")
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func availableInstanceLayers() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, vulkanError(res, "enumerate instance layers")
	}
	props := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, props); res != vk.Success {
		return nil, vulkanError(res, "enumerate instance layers")
	}
	names := make([]string, 0, count)
	for i := range props[:count] {
		props[i].Deref()
		names = append(names, cString(props[i].LayerName[:]))
	}
	return names, nil
}

func missingLayers(required, available []string) []string {
	var missing []string
	for _, r := range required {
		found := false
		for _, a := range available {
			if a == r {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, r)
		}
	}
	return missing
}
