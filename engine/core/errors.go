package core

import (
	"errors"
)

var (
	// Setup time: no candidate satisfied the requirements.
	ErrNoSuitableDevice  = errors.New("no suitable physical device")
	ErrNoQueueFamily     = errors.New("no suitable queue family")
	ErrNoSupportedFormat = errors.New("no supported surface format")

	// ErrAlignment is returned for a shader binary whose size is not a multiple of 4.
	ErrAlignment = errors.New("shader binary is not 4-byte aligned")

	// Frame time. ErrSurfaceOutOfDate is recoverable by recreating the swapchain,
	// ErrDeviceLost is not.
	ErrSurfaceOutOfDate = errors.New("surface out of date")
	ErrDeviceLost       = errors.New("device lost")

	ErrPartialRecording = errors.New("command buffer recording failed")
)
