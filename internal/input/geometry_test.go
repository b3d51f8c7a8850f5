package input

import "testing"

func TestClassifyFrontTouchArcsAtCorners(t *testing.T) {
	const w, h = 960, 544
	cases := []struct {
		x, y float64
		want FrontTouchRegion
	}{
		{1, 1, RegionArcUL},
		{w - 1, 1, RegionArcUR},
		{1, h - 1, RegionArcLL},
		{w - 1, h - 1, RegionArcLR},
	}
	for _, c := range cases {
		if got := ClassifyFrontTouch(c.x, c.y, w, h); got != c.want {
			t.Errorf("ClassifyFrontTouch(%v,%v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestClassifyFrontTouchCenter(t *testing.T) {
	const w, h = 960, 544
	if got := ClassifyFrontTouch(w/2, h/2, w, h); got != RegionCenter {
		t.Errorf("ClassifyFrontTouch(center) = %v, want RegionCenter", got)
	}
}

func TestClassifyFrontTouchEdgeFallback(t *testing.T) {
	const w, h = 960, 544
	// Far left edge, vertically centered: outside any corner arc and
	// outside the center rectangle, nearest edge is left.
	if got := ClassifyFrontTouch(0, h/2, w, h); got != RegionLeft {
		t.Errorf("ClassifyFrontTouch(left edge) = %v, want RegionLeft", got)
	}
}
