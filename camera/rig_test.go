package camera

import (
	"math"
	"sync"
	"testing"

	"github.com/gogpu/gpucontext"
)

const eps = 1e-6

func near(a, b float32) bool { return math.Abs(float64(a-b)) < eps }

func TestNewDefaults(t *testing.T) {
	r := New()
	if r.Position() != [3]float32{0, 0, 5} {
		t.Errorf("expected default position (0, 0, 5), got %v", r.Position())
	}
	if r.Rotation() != [2]float32{} {
		t.Errorf("expected zero rotation, got %v", r.Rotation())
	}

	r = New(WithPosition([3]float32{1, 2, 3}), WithRotation([2]float32{0.5, -0.5}))
	if r.Position() != [3]float32{1, 2, 3} || r.Rotation() != [2]float32{0.5, -0.5} {
		t.Errorf("expected options applied, got %v %v", r.Position(), r.Rotation())
	}
}

func TestScroll(t *testing.T) {
	r := New()
	r.Scroll(100)
	if got := r.Position()[2]; !near(got, 6) {
		t.Errorf("expected z = 6, got %v", got)
	}
	r.Scroll(-50)
	if got := r.Position()[2]; !near(got, 5.5) {
		t.Errorf("expected z = 5.5, got %v", got)
	}
}

func TestDragRotates(t *testing.T) {
	r := New()
	r.PointerDown(gpucontext.MouseButtonLeft, 100, 100)
	r.PointerMove(110, 95)

	rot := r.Rotation()
	if !near(rot[0], 0.025) || !near(rot[1], -0.05) {
		t.Errorf("expected rotation (0.025, -0.05), got %v", rot)
	}
	if !r.Dragging() {
		t.Error("expected drag in progress")
	}

	r.PointerUp(gpucontext.MouseButtonLeft, 110, 95)
	r.PointerMove(200, 200)
	if r.Rotation() != rot {
		t.Errorf("expected no rotation after release, got %v", r.Rotation())
	}
}

func TestMoveWithoutButtonTracksPosition(t *testing.T) {
	r := New()
	r.PointerMove(500, 500)
	if r.Rotation() != [2]float32{} {
		t.Errorf("expected no rotation without a held button, got %v", r.Rotation())
	}

	// The next drag measures from the last recorded position.
	r.PointerDown(gpucontext.MouseButtonLeft, 500, 500)
	r.PointerMove(500, 520)
	if got := r.Rotation(); !near(got[0], -0.1) || got[1] != 0 {
		t.Errorf("expected rotation (-0.1, 0), got %v", got)
	}
}

func TestSecondaryButtonDoesNotDrag(t *testing.T) {
	r := New()
	r.PointerDown(gpucontext.MouseButtonRight, 0, 0)
	r.PointerMove(10, 10)
	if r.Rotation() != [2]float32{} {
		t.Errorf("expected no rotation for secondary button, got %v", r.Rotation())
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		key  gpucontext.Key
		want [3]float32
	}{
		{gpucontext.KeyW, [3]float32{0, 0.25, 5}},
		{gpucontext.KeyS, [3]float32{0, -0.25, 5}},
		{gpucontext.KeyA, [3]float32{-0.25, 0, 5}},
		{gpucontext.KeyD, [3]float32{0.25, 0, 5}},
		{gpucontext.KeyUp, [3]float32{0, 0.25, 5}},
		{gpucontext.KeyDown, [3]float32{0, -0.25, 5}},
		{gpucontext.KeyLeft, [3]float32{-0.25, 0, 5}},
		{gpucontext.KeyRight, [3]float32{0.25, 0, 5}},
		{gpucontext.KeyQ, [3]float32{0, 0, 5}},
	}
	for _, tt := range tests {
		r := New()
		r.KeyDown(tt.key)
		if got := r.Position(); got != tt.want {
			t.Errorf("key %v: expected %v, got %v", tt.key, tt.want, got)
		}
		if !r.Held(tt.key) {
			t.Errorf("key %v: expected held", tt.key)
		}
		r.KeyUp(tt.key)
		if r.Held(tt.key) {
			t.Errorf("key %v: expected released", tt.key)
		}
		if got := r.Position(); got != tt.want {
			t.Errorf("key %v: KeyUp moved the camera to %v", tt.key, got)
		}
	}
}

func TestForward(t *testing.T) {
	f := Pose{}.Forward()
	if !near(f[0], 0) || !near(f[1], 0) || !near(f[2], -1) {
		t.Errorf("expected (0, 0, -1), got %v", f)
	}

	f = Pose{Rotation: [2]float32{0, math.Pi / 2}}.Forward()
	if !near(f[0], -1) || !near(f[2], 0) {
		t.Errorf("expected (-1, 0, 0) for a quarter yaw, got %v", f)
	}

	f = Pose{Rotation: [2]float32{0.3, 1.1}}.Forward()
	l := f[0]*f[0] + f[1]*f[1] + f[2]*f[2]
	if !near(l, 1) {
		t.Errorf("expected unit length, got %v", l)
	}
}

func TestConcurrentInput(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Scroll(100)
				_ = r.Snapshot()
			}
		}()
	}
	wg.Wait()
	if got := r.Position()[2]; got != 805 {
		t.Errorf("expected z = 805 after 800 scrolls, got %v", got)
	}
}

type fakeSource struct {
	gpucontext.NullEventSource

	scroll  func(dx, dy float64)
	press   func(gpucontext.MouseButton, float64, float64)
	release func(gpucontext.MouseButton, float64, float64)
	move    func(x, y float64)
	key     func(gpucontext.Key, gpucontext.Modifiers)
}

func (s *fakeSource) OnScroll(fn func(dx, dy float64))                                 { s.scroll = fn }
func (s *fakeSource) OnMousePress(fn func(gpucontext.MouseButton, float64, float64))   { s.press = fn }
func (s *fakeSource) OnMouseRelease(fn func(gpucontext.MouseButton, float64, float64)) { s.release = fn }
func (s *fakeSource) OnMouseMove(fn func(x, y float64))                                { s.move = fn }
func (s *fakeSource) OnKeyPress(fn func(gpucontext.Key, gpucontext.Modifiers))         { s.key = fn }

type fakeScrollSource struct {
	fakeSource
	detailed func(gpucontext.ScrollEvent)
}

func (s *fakeScrollSource) OnScrollEvent(fn func(gpucontext.ScrollEvent)) { s.detailed = fn }

func TestAttach(t *testing.T) {
	src := &fakeSource{}
	r := New()
	r.Attach(src)

	src.scroll(0, 100)
	src.press(gpucontext.MouseButtonLeft, 0, 0)
	src.move(10, -5)
	src.release(gpucontext.MouseButtonLeft, 10, -5)
	src.key(gpucontext.KeyD, 0)

	pose := r.Snapshot()
	if !near(pose.Position[0], 0.25) || !near(pose.Position[2], 6) {
		t.Errorf("expected position (0.25, 0, 6), got %v", pose.Position)
	}
	if !near(pose.Rotation[0], 0.025) || !near(pose.Rotation[1], -0.05) {
		t.Errorf("expected rotation (0.025, -0.05), got %v", pose.Rotation)
	}
}

func TestAttachPrefersScrollEvents(t *testing.T) {
	src := &fakeScrollSource{}
	r := New()
	r.Attach(src)

	if src.scroll != nil {
		t.Error("expected plain scroll callback not to be registered")
	}
	if src.detailed == nil {
		t.Fatal("expected detailed scroll callback")
	}
	src.detailed(gpucontext.ScrollEvent{DeltaY: 2, DeltaMode: gpucontext.ScrollDeltaLine})
	if got := r.Position()[2]; !near(got, 5.32) {
		t.Errorf("expected z = 5.32 for two lines, got %v", got)
	}
}
