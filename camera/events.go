package camera

import "github.com/gogpu/gpucontext"

// LineHeight converts line-mode scroll deltas into pixels.
const LineHeight = 16

// Attach registers the rig's handlers with a host event source. A source
// that also implements gpucontext.ScrollEventSource delivers scroll through
// the detailed event, so line and page deltas are converted to pixels.
func (r *Rig) Attach(src gpucontext.EventSource) {
	if src == nil {
		return
	}
	if ss, ok := src.(gpucontext.ScrollEventSource); ok {
		ss.OnScrollEvent(r.handleScrollEvent)
	} else {
		src.OnScroll(func(_, dy float64) { r.Scroll(dy) })
	}
	src.OnMousePress(r.PointerDown)
	src.OnMouseRelease(r.PointerUp)
	src.OnMouseMove(r.PointerMove)
	src.OnKeyPress(func(key gpucontext.Key, _ gpucontext.Modifiers) { r.KeyDown(key) })
	src.OnKeyRelease(func(key gpucontext.Key, _ gpucontext.Modifiers) { r.KeyUp(key) })
}

func (r *Rig) handleScrollEvent(ev gpucontext.ScrollEvent) {
	dy := ev.DeltaY
	switch ev.DeltaMode {
	case gpucontext.ScrollDeltaLine:
		dy *= LineHeight
	case gpucontext.ScrollDeltaPage:
		dy *= LineHeight * 20
	}
	r.Scroll(dy)
}
