package vulkan

import (
	"fmt"
	"strings"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/scop/engine/core"
)

type DebugSeverity int

const (
	DebugSeverityVerbose DebugSeverity = iota
	DebugSeverityInfo
	DebugSeverityWarning
	DebugSeverityError
)

func (s DebugSeverity) String() string {
	switch s {
	case DebugSeverityError:
		return "error"
	case DebugSeverityWarning:
		return "warning"
	case DebugSeverityInfo:
		return "info"
	default:
		return "verbose"
	}
}

type DebugCategory int

const (
	DebugCategoryGeneral DebugCategory = iota
	DebugCategoryValidation
	DebugCategoryPerformance
)

func (c DebugCategory) String() string {
	switch c {
	case DebugCategoryValidation:
		return "validation"
	case DebugCategoryPerformance:
		return "performance"
	default:
		return "general"
	}
}

// DebugMessage is one diagnostic reported by the validation layers.
type DebugMessage struct {
	Severity DebugSeverity
	Category DebugCategory
	Text     string
}

// String renders the message as "[severity][category] text".
func (m DebugMessage) String() string {
	return fmt.Sprintf("[%s][%s] %s", m.Severity, m.Category, m.Text)
}

// DebugSink receives validation diagnostics. It must not call back into Vulkan.
type DebugSink func(DebugMessage)

// LogDebugSink forwards diagnostics to the engine logger at a matching level.
func LogDebugSink(m DebugMessage) {
	switch m.Severity {
	case DebugSeverityError:
		core.LogError("%s", m.String())
	case DebugSeverityWarning:
		core.LogWarn("%s", m.String())
	case DebugSeverityInfo:
		core.LogInfo("%s", m.String())
	default:
		core.LogDebug("%s", m.String())
	}
}

func debugSeverity(flags vk.DebugReportFlags) DebugSeverity {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return DebugSeverityError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		return DebugSeverityWarning
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		return DebugSeverityInfo
	default:
		return DebugSeverityVerbose
	}
}

func debugCategory(flags vk.DebugReportFlags, layerPrefix string) DebugCategory {
	if flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0 {
		return DebugCategoryPerformance
	}
	if strings.Contains(strings.ToLower(layerPrefix), "validation") {
		return DebugCategoryValidation
	}
	return DebugCategoryGeneral
}

func newDebugMessage(flags vk.DebugReportFlags, layerPrefix string, message string) DebugMessage {
	return DebugMessage{
		Severity: debugSeverity(flags),
		Category: debugCategory(flags, layerPrefix),
		Text:     message,
	}
}

// debugReportFlags is every report type the callback subscribes to.
func debugReportFlags() vk.DebugReportFlags {
	return vk.DebugReportFlags(vk.DebugReportErrorBit |
		vk.DebugReportWarningBit |
		vk.DebugReportPerformanceWarningBit |
		vk.DebugReportInformationBit |
		vk.DebugReportDebugBit)
}

// debugCallback adapts the report callback signature to a DebugSink.
func (vc *VulkanContext) debugCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	if vc.sink != nil {
		vc.sink(newDebugMessage(flags, pLayerPrefix, pMessage))
	}
	return vk.Bool32(vk.False)
}
