package track

import (
	"fallsense/analytics"
)

// IoU computes intersection-over-union of two normalized boxes. Boxes with
// zero area yield 0. An epsilon keeps the division finite for degenerate
// overlaps.
func IoU(a, b analytics.Rect) float32 {
	ax2 := a.X + a.Width
	ay2 := a.Y + a.Height
	bx2 := b.X + b.Width
	by2 := b.Y + b.Height

	ix1 := max32(a.X, b.X)
	iy1 := max32(a.Y, b.Y)
	ix2 := min32(ax2, bx2)
	iy2 := min32(ay2, by2)

	iw := max32(0, ix2-ix1)
	ih := max32(0, iy2-iy1)
	intersection := iw * ih

	areaA := a.Area()
	areaB := b.Area()
	if areaA <= 0 || areaB <= 0 {
		return 0
	}

	return intersection / (areaA + areaB - intersection + 1e-6)
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
