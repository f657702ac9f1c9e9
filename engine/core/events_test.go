package core

import "testing"

func resetEvents(t *testing.T) {
	t.Helper()
	EventSystemInitialize()
	if err := EventSystemShutdown(); err != nil {
		t.Fatal(err)
	}
	ProcessEvents()
}

func TestEventFireIsDeferredUntilProcess(t *testing.T) {
	resetEvents(t)

	var got []uint32
	EventRegister(EVENT_CODE_RESIZED, func(context EventContext) {
		se := context.Data.(*SystemEvent)
		got = append(got, se.WindowWidth)
	})

	EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 800, WindowHeight: 600}})
	EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 1024, WindowHeight: 768}})
	if len(got) != 0 {
		t.Fatalf("listener ran before ProcessEvents: %v", got)
	}

	if n := ProcessEvents(); n != 2 {
		t.Fatalf("ProcessEvents dispatched %d events, want 2", n)
	}
	if len(got) != 2 || got[0] != 800 || got[1] != 1024 {
		t.Fatalf("got widths %v, want [800 1024]", got)
	}
}

func TestEventOnlyReachesListenersOfItsCode(t *testing.T) {
	resetEvents(t)

	quit, changed := 0, 0
	EventRegister(EVENT_CODE_APPLICATION_QUIT, func(EventContext) { quit++ })
	EventRegister(EVENT_CODE_SHADERS_CHANGED, func(EventContext) { changed++ })

	EventFire(EventContext{Type: EVENT_CODE_SHADERS_CHANGED, Data: "assets/shaders/shader.vert.spv"})
	ProcessEvents()

	if quit != 0 || changed != 1 {
		t.Fatalf("quit=%d changed=%d, want 0 and 1", quit, changed)
	}
}

func TestEventRegisterRejectsOutOfRangeCode(t *testing.T) {
	resetEvents(t)

	if EventRegister(MAX_EVENT_CODE+1, func(EventContext) {}) {
		t.Fatal("registered a code above MAX_EVENT_CODE")
	}
}

func TestEventFireDropsWhenQueueIsFull(t *testing.T) {
	resetEvents(t)

	for i := 0; i < eventQueueSize; i++ {
		if !EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}) {
			t.Fatalf("event %d dropped before the queue was full", i)
		}
	}
	if EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}) {
		t.Fatal("expected the event to be dropped on a full queue")
	}
	if n := ProcessEvents(); n != eventQueueSize {
		t.Fatalf("drained %d events, want %d", n, eventQueueSize)
	}
}
