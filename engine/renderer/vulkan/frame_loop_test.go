package vulkan

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/core"
)

type fakeFrameOps struct {
	calls []string
	// Images handed out by acquire, cycled.
	images []uint32
	next   int

	acquireErr error
	presentErr error
	submitErr  error
}

func (f *fakeFrameOps) acquire(slot int) (uint32, error) {
	f.calls = append(f.calls, fmt.Sprintf("acquire %d", slot))
	if f.acquireErr != nil {
		return 0, f.acquireErr
	}
	img := f.images[f.next%len(f.images)]
	f.next++
	return img, nil
}

func (f *fakeFrameOps) waitFence(slot int) error {
	f.calls = append(f.calls, fmt.Sprintf("wait %d", slot))
	return nil
}

func (f *fakeFrameOps) resetFence(slot int) error {
	f.calls = append(f.calls, fmt.Sprintf("reset %d", slot))
	return nil
}

func (f *fakeFrameOps) submit(slot int, image uint32) error {
	f.calls = append(f.calls, fmt.Sprintf("submit %d/%d", slot, image))
	return f.submitErr
}

func (f *fakeFrameOps) present(slot int, image uint32) error {
	f.calls = append(f.calls, fmt.Sprintf("present %d/%d", slot, image))
	return f.presentErr
}

func TestFrameLoopStepOrder(t *testing.T) {
	ops := &fakeFrameOps{images: []uint32{2}}
	loop := NewFrameLoop(ops, 3)

	if err := loop.Step(); err != nil {
		t.Fatal(err)
	}
	want := []string{"acquire 1", "wait 1", "reset 1", "submit 1/2", "present 1/2"}
	if !reflect.DeepEqual(ops.calls, want) {
		t.Errorf("calls = %v, want %v", ops.calls, want)
	}
}

func TestFrameLoopIndexAdvancesAndWraps(t *testing.T) {
	const n = 3
	ops := &fakeFrameOps{images: []uint32{0, 2, 1}}
	loop := NewFrameLoop(ops, n)

	prev := loop.Current()
	for i := 0; i < 10; i++ {
		if err := loop.Step(); err != nil {
			t.Fatal(err)
		}
		cur := loop.Current()
		if cur < 0 || cur >= n {
			t.Fatalf("frame %d: index %d out of [0, %d)", i, cur, n)
		}
		if cur != (prev+1)%n {
			t.Fatalf("frame %d: index went %d -> %d", i, prev, cur)
		}
		prev = cur
	}
}

func TestFrameLoopOutOfDateAcquireKeepsIndex(t *testing.T) {
	ops := &fakeFrameOps{images: []uint32{0}, acquireErr: pkgerrors.Wrap(core.ErrSurfaceOutOfDate, "acquire")}
	loop := NewFrameLoop(ops, 2)

	err := loop.Step()
	if !errors.Is(err, core.ErrSurfaceOutOfDate) {
		t.Fatalf("err = %v, want ErrSurfaceOutOfDate", err)
	}
	if loop.Current() != 0 {
		t.Errorf("index = %d, want 0 after an abandoned frame", loop.Current())
	}
	if len(ops.calls) != 1 {
		t.Errorf("nothing but the acquire may run, got %v", ops.calls)
	}

	// Next attempt uses the same slot.
	ops.acquireErr = nil
	if err := loop.Step(); err != nil {
		t.Fatal(err)
	}
	if loop.Current() != 1 {
		t.Errorf("index = %d, want 1", loop.Current())
	}
}

func TestFrameLoopOutOfDatePresentCommitsIndex(t *testing.T) {
	ops := &fakeFrameOps{images: []uint32{1}, presentErr: pkgerrors.Wrap(core.ErrSurfaceOutOfDate, "present")}
	loop := NewFrameLoop(ops, 2)

	if err := loop.Step(); !errors.Is(err, core.ErrSurfaceOutOfDate) {
		t.Fatalf("err = %v, want ErrSurfaceOutOfDate", err)
	}
	if loop.Current() != 1 {
		t.Errorf("index = %d, want 1: the submission already used slot 1", loop.Current())
	}
}

func TestFrameLoopSubmitFailureIsFatal(t *testing.T) {
	ops := &fakeFrameOps{images: []uint32{0}, submitErr: pkgerrors.Wrap(core.ErrDeviceLost, "submit")}
	loop := NewFrameLoop(ops, 2)

	err := loop.Step()
	if !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("err = %v, want ErrDeviceLost", err)
	}
	if errors.Is(err, core.ErrSurfaceOutOfDate) {
		t.Error("device loss must not look recoverable")
	}
	if loop.Current() != 0 {
		t.Errorf("index = %d, want 0", loop.Current())
	}
}

func TestFrameLoopResize(t *testing.T) {
	ops := &fakeFrameOps{images: []uint32{0}}
	loop := NewFrameLoop(ops, 3)
	_ = loop.Step()
	_ = loop.Step()

	loop.Resize(3)
	if loop.Current() != 2 {
		t.Errorf("same N must keep the index, got %d", loop.Current())
	}
	loop.Resize(2)
	if loop.Current() != 0 || loop.Len() != 2 {
		t.Errorf("new N must restart: current=%d len=%d", loop.Current(), loop.Len())
	}

	if err := NewFrameLoop(ops, 0).Step(); err == nil {
		t.Error("a loop without slots must fail")
	}
}
