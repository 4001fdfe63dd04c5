// Package geom implements the rectangle math behind image placement:
// anchored positioning inside a canvas and clipping by intersection.
package geom

import "image"

// Intersect returns the component-wise intersection of the given boxes,
// seeded from the first one. The list must not be empty.
//
// Unlike [image.Rectangle.Intersect] the result is not canonicalized: two
// disjoint boxes yield a rectangle with non-positive width or height, which
// callers must treat as zero iterations rather than an error.
func Intersect(boxes ...image.Rectangle) image.Rectangle {
	inter := boxes[0]
	for _, box := range boxes[1:] {
		inter.Min.X = max(inter.Min.X, box.Min.X)
		inter.Min.Y = max(inter.Min.Y, box.Min.Y)
		inter.Max.X = min(inter.Max.X, box.Max.X)
		inter.Max.Y = min(inter.Max.Y, box.Max.Y)
	}
	return inter
}

// Viewport places a W×H rectangle inside a canvas. The anchor fractions
// select which point of the rectangle lines up with the matching point of
// the canvas: (0, 0) pins the top-left corner to the canvas's top-left
// corner, (1, 1) the bottom-right corner to the bottom-right one. The
// pixel offset is added afterwards for fine tuning.
type Viewport struct {
	// W and H are the rectangle's extent; -1 means "fill the canvas" and
	// must be resolved before placement.
	W, H int

	// AnchorX and AnchorY are unclamped fractions; values outside [0, 1]
	// extrapolate placement beyond the canvas edges.
	AnchorX, AnchorY float64

	// OffsetX and OffsetY shift the placed rectangle in pixels.
	OffsetX, OffsetY int
}

// NewViewport returns a viewport that fills its canvas, anchored at the
// given fractions.
func NewViewport(ax, ay float64) Viewport {
	return Viewport{W: -1, H: -1, AnchorX: ax, AnchorY: ay}
}

// Resolve substitutes the canvas's extent for any -1 dimension.
func (v Viewport) Resolve(canvas image.Rectangle) Viewport {
	if v.W == -1 {
		v.W = canvas.Dx()
	}
	if v.H == -1 {
		v.H = canvas.Dy()
	}
	return v
}

// Position computes the top-left corner of the placed rectangle:
// canvas.Min + (canvas extent - viewport extent) * anchor + offset.
func (v Viewport) Position(canvas image.Rectangle) image.Point {
	return image.Point{
		X: int(float64(v.OffsetX) + float64(canvas.Dx())*v.AnchorX - float64(v.W)*v.AnchorX + float64(canvas.Min.X)),
		Y: int(float64(v.OffsetY) + float64(canvas.Dy())*v.AnchorY - float64(v.H)*v.AnchorY + float64(canvas.Min.Y)),
	}
}

// Rect returns the placed rectangle inside the canvas. Any -1 dimension
// must have been resolved first.
func (v Viewport) Rect(canvas image.Rectangle) image.Rectangle {
	pos := v.Position(canvas)
	return image.Rectangle{
		Min: pos,
		Max: pos.Add(image.Point{X: v.W, Y: v.H}),
	}
}
