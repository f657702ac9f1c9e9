package core

import (
	"fmt"
	"sync"
)

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Resized/resolution changed from the OS.
	/* Context usage:
	 * se := data.(*SystemEvent)
	 * se.WindowWidth, se.WindowHeight
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// A watched shader binary was written.
	/* Context usage:
	 * path := data.(string)
	 */
	EVENT_CODE_SHADERS_CHANGED SystemEventCode = 0x09

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type FnOnEvent func(context EventContext)

// Pending events are buffered so that producers on other goroutines never
// block the render thread.
const eventQueueSize = 256

type eventSystemState struct {
	mu         sync.RWMutex
	registered map[SystemEventCode][]FnOnEvent
	queue      chan EventContext
}

var onceEvent sync.Once
var eventState *eventSystemState = nil

func EventSystemInitialize() bool {
	initialized := false
	onceEvent.Do(func() {
		eventState = &eventSystemState{
			registered: make(map[SystemEventCode][]FnOnEvent),
			queue:      make(chan EventContext, eventQueueSize),
		}
		initialized = true
	})
	return initialized
}

func EventSystemShutdown() error {
	if eventState == nil {
		return fmt.Errorf("event system was never initialized")
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	eventState.registered = make(map[SystemEventCode][]FnOnEvent)
	return nil
}

func EventRegister(code SystemEventCode, onEvent FnOnEvent) bool {
	if eventState == nil || code > MAX_EVENT_CODE {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	eventState.registered[code] = append(eventState.registered[code], onEvent)
	return true
}

// EventFire queues the event for the next ProcessEvents call. It returns
// false when the queue is full and the event was dropped.
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	select {
	case eventState.queue <- context:
		return true
	default:
		LogWarn("event queue full, dropping event %d", context.Type)
		return false
	}
}

// ProcessEvents dispatches every queued event to its listeners on the
// calling goroutine and returns how many were dispatched.
func ProcessEvents() int {
	if eventState == nil {
		return 0
	}
	n := 0
	for {
		select {
		case context := <-eventState.queue:
			eventState.mu.RLock()
			listeners := eventState.registered[context.Type]
			eventState.mu.RUnlock()
			for _, fn := range listeners {
				fn(context)
			}
			n++
		default:
			return n
		}
	}
}
