package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/core"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

// PhysicalDeviceInfo is a read-only record of one enumerated GPU.
type PhysicalDeviceInfo struct {
	Handle     vk.PhysicalDevice
	Properties vk.PhysicalDeviceProperties
	Rank       int
}

func (p PhysicalDeviceInfo) Name() string {
	return cString(p.Properties.DeviceName[:])
}

// QueueFamily is the part of vk.QueueFamilyProperties the selection looks at.
type QueueFamily struct {
	Flags vk.QueueFlags
	Count uint32
}

func (q QueueFamily) has(bit vk.QueueFlagBits) bool {
	return q.Flags&vk.QueueFlags(bit) != 0
}

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	GraphicsQueueIndex uint32
	TransferQueueIndex uint32

	GraphicsQueue vk.Queue
	TransferQueue vk.Queue

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
}

// deviceTypeRank orders device types: discrete > integrated > virtual > anything else.
func deviceTypeRank(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 3
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 2
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 1
	default:
		return 0
	}
}

// pickPhysicalDevice returns the index of the highest ranked candidate. Ties
// keep the earliest one.
func pickPhysicalDevice(candidates []PhysicalDeviceInfo) (int, error) {
	if len(candidates) == 0 {
		return -1, core.ErrNoSuitableDevice
	}
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Rank > candidates[best].Rank {
			best = i
		}
	}
	return best, nil
}

// FindQueueFamilies scans the families once and later matches replace
// earlier ones. The graphics family is the last one with graphics capability
// that can also present. A transfer-capable family is taken while nothing has
// been found yet; after that only families without graphics capability
// replace it, so a dedicated transfer family wins when one exists.
func FindQueueFamilies(families []QueueFamily, presentSupport func(family uint32) bool) (graphics uint32, transfer uint32, err error) {
	graphicsFound, transferFound := false, false
	for i, f := range families {
		if f.Count == 0 {
			continue
		}
		idx := uint32(i)
		if f.has(vk.QueueGraphicsBit) && presentSupport(idx) {
			graphics = idx
			graphicsFound = true
		}
		if f.has(vk.QueueTransferBit) && (!transferFound || !f.has(vk.QueueGraphicsBit)) {
			transfer = idx
			transferFound = true
		}
	}
	if !graphicsFound {
		return 0, 0, errors.Wrap(core.ErrNoQueueFamily, "graphics with present support")
	}
	if !transferFound {
		return 0, 0, errors.Wrap(core.ErrNoQueueFamily, "transfer")
	}
	return graphics, transfer, nil
}

// uniqueQueueFamilies lists each family once. Requesting the same family
// twice in vkCreateDevice is invalid.
func uniqueQueueFamilies(indices ...uint32) []uint32 {
	out := make([]uint32, 0, len(indices))
	for _, idx := range indices {
		dup := false
		for _, o := range out {
			if o == idx {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, idx)
		}
	}
	return out
}

// SelectPhysicalDevice enumerates the GPUs and picks the best ranked one.
func SelectPhysicalDevice(context *VulkanContext) (PhysicalDeviceInfo, error) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &count, nil); res != vk.Success {
		return PhysicalDeviceInfo{}, vulkanError(res, "enumerate physical devices")
	}
	handles := make([]vk.PhysicalDevice, count)
	if count > 0 {
		if res := vk.EnumeratePhysicalDevices(context.Instance, &count, handles); res != vk.Success {
			return PhysicalDeviceInfo{}, vulkanError(res, "enumerate physical devices")
		}
	}

	candidates := make([]PhysicalDeviceInfo, 0, count)
	for _, h := range handles[:count] {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(h, &props)
		props.Deref()
		info := PhysicalDeviceInfo{Handle: h, Properties: props, Rank: deviceTypeRank(props.DeviceType)}
		core.LogDebug("Found device '%s' (rank %d).", info.Name(), info.Rank)
		candidates = append(candidates, info)
	}

	best, err := pickPhysicalDevice(candidates)
	if err != nil {
		return PhysicalDeviceInfo{}, err
	}
	core.LogInfo("Selected device: '%s'.", candidates[best].Name())
	return candidates[best], nil
}

func queueFamilies(physicalDevice vk.PhysicalDevice) []QueueFamily {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &count, props)
	families := make([]QueueFamily, count)
	for i := range props[:count] {
		props[i].Deref()
		families[i] = QueueFamily{Flags: props[i].QueueFlags, Count: props[i].QueueCount}
	}
	return families
}

func deviceExtensions(physicalDevice vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, nil); res != vk.Success {
		return nil, vulkanError(res, "enumerate device extensions")
	}
	props := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, props); res != vk.Success {
			return nil, vulkanError(res, "enumerate device extensions")
		}
	}
	names := make([]string, 0, count)
	for i := range props[:count] {
		props[i].Deref()
		names = append(names, cString(props[i].ExtensionName[:]))
	}
	return names, nil
}

// NewDevice discovers the queue families of the selected GPU and creates the
// logical device with one queue per unique family.
func NewDevice(context *VulkanContext, surface *VulkanSurface, physical PhysicalDeviceInfo) (*VulkanDevice, error) {
	var presentErr error
	graphics, transfer, err := FindQueueFamilies(queueFamilies(physical.Handle), func(family uint32) bool {
		ok, err := surface.SupportsPresent(physical.Handle, family)
		if err != nil && presentErr == nil {
			presentErr = err
		}
		return ok
	})
	if presentErr != nil {
		return nil, presentErr
	}
	if err != nil {
		return nil, err
	}
	core.LogDebug("Graphics Family Index: %d", graphics)
	core.LogDebug("Transfer Family Index: %d", transfer)

	core.LogInfo("Creating logical device...")
	families := uniqueQueueFamilies(graphics, transfer)
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	available, err := deviceExtensions(physical.Handle)
	if err != nil {
		return nil, err
	}
	extensions := []string{vk.KhrSwapchainExtensionName}
	if missing := missingLayers(trimNames(extensions), available); len(missing) > 0 {
		return nil, errors.Errorf("device '%s' lacks required extension %s", physical.Name(), missing[0])
	}
	for _, name := range available {
		if name == portabilitySubsetExtension {
			core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
			extensions = append(extensions, portabilitySubsetExtension)
			break
		}
	}

	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	device := &VulkanDevice{
		PhysicalDevice:     physical.Handle,
		GraphicsQueueIndex: graphics,
		TransferQueueIndex: transfer,
		Properties:         physical.Properties,
	}
	var logical vk.Device
	if res := vk.CreateDevice(physical.Handle, &createInfo, context.Allocator, &logical); res != vk.Success {
		return nil, vulkanError(res, "create logical device")
	}
	device.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	vk.GetPhysicalDeviceFeatures(physical.Handle, &device.Features)
	device.Features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(physical.Handle, &device.Memory)
	device.Memory.Deref()

	var gq, tq vk.Queue
	vk.GetDeviceQueue(logical, graphics, 0, &gq)
	vk.GetDeviceQueue(logical, transfer, 0, &tq)
	device.GraphicsQueue = gq
	device.TransferQueue = tq
	core.LogInfo("Queues obtained.")

	device.logInfo()
	return device, nil
}

func (d *VulkanDevice) logInfo() {
	switch d.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	driver := vk.Version(d.Properties.DriverVersion)
	core.LogInfo("GPU Driver version: %d.%d.%d", driver.Major(), driver.Minor(), driver.Patch())
	api := vk.Version(d.Properties.ApiVersion)
	core.LogInfo("Vulkan API version: %d.%d.%d", api.Major(), api.Minor(), api.Patch())

	for i := 0; i < int(d.Memory.MemoryHeapCount); i++ {
		heap := d.Memory.MemoryHeaps[i]
		heap.Deref()
		gib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", gib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", gib)
		}
	}
}

// WaitIdle blocks until every queue of the device has drained.
func (d *VulkanDevice) WaitIdle() error {
	if d.LogicalDevice == nil {
		return nil
	}
	if res := vk.DeviceWaitIdle(d.LogicalDevice); res != vk.Success {
		return vulkanError(res, "wait for device idle")
	}
	return nil
}

func (d *VulkanDevice) Destroy(context *VulkanContext) {
	d.GraphicsQueue = nil
	d.TransferQueue = nil
	if d.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(d.LogicalDevice, context.Allocator)
		d.LogicalDevice = nil
	}
	// Physical devices are not destroyed.
	d.PhysicalDevice = nil
}

func trimNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = cString([]byte(n))
	}
	return out
}
