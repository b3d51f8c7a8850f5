package video

// TargetWidth/TargetHeight are the fixed display surface dimensions both
// scaling modes resolve onto.
const (
	TargetWidth  = 960
	TargetHeight = 544
)

// ScaleMode selects how a decoded frame's active region maps onto the
// fixed target surface.
type ScaleMode int

const (
	// Stretch scales the source region to TargetWidth x TargetHeight
	// regardless of aspect ratio.
	Stretch ScaleMode = iota
	// Preserve scales by min(TargetWidth/w, TargetHeight/h), clamped to
	// 1.0, and centers the result.
	Preserve
)

// Viewport is the destination rectangle (and per-axis scale factor) a
// decoded frame of size (w,h) should be drawn into under mode.
type Viewport struct {
	X, Y          int
	Width, Height int
	ScaleX, ScaleY float64
}

// Resolve computes the viewport for a source frame of size w x h.
func Resolve(mode ScaleMode, w, h int) Viewport {
	if w <= 0 || h <= 0 {
		return Viewport{Width: TargetWidth, Height: TargetHeight, ScaleX: 1, ScaleY: 1}
	}
	switch mode {
	case Preserve:
		scale := min(float64(TargetWidth)/float64(w), float64(TargetHeight)/float64(h), 1.0)
		dw := int(float64(w) * scale)
		dh := int(float64(h) * scale)
		return Viewport{
			X: (TargetWidth - dw) / 2, Y: (TargetHeight - dh) / 2,
			Width: dw, Height: dh,
			ScaleX: scale, ScaleY: scale,
		}
	default: // Stretch
		return Viewport{
			X: 0, Y: 0,
			Width: TargetWidth, Height: TargetHeight,
			ScaleX: float64(TargetWidth) / float64(w),
			ScaleY: float64(TargetHeight) / float64(h),
		}
	}
}
