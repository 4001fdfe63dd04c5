package pixview

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/pixview/pixview/geom"
	"github.com/pixview/pixview/pixel"
)

// Screen composes a surface with a viewport and renders images and solid
// fills into it. The viewport confines every draw to a sub-rectangle of
// the physical surface; images anchor relative to the viewport, not the
// raw surface. The zero viewport from NewScreen fills the whole surface.
type Screen struct {
	// Surface receives the pixels. The screen borrows it; the caller
	// remains responsible for closing it.
	Surface Surface

	// View confines drawing. A -1 dimension resolves to the matching
	// surface dimension.
	View geom.Viewport

	// sleep, when set, replaces the inter-frame pause. Tests use it to
	// count sleeps without waiting.
	sleep func(time.Duration)
}

// NewScreen returns a screen whose viewport fills the whole surface.
func NewScreen(surface Surface) *Screen {
	return &Screen{
		Surface: surface,
		View:    geom.NewViewport(0, 0),
	}
}

// resolve returns the full surface rectangle and the viewport's placement
// rectangle inside it.
func (s *Screen) resolve() (surface, view image.Rectangle) {
	surface = s.Surface.Bounds()
	view = s.View.Resolve(surface).Rect(surface)
	return surface, view
}

// BlitFrame rasterizes a single frame of the image into the viewport and
// flushes the surface once.
//
// Only the intersection of surface, viewport and placed image is written.
// Source pixels with zero alpha leave the destination untouched. When the
// image requests blending, each source pixel is mixed with the current
// destination contents; the stored alpha is always forced fully opaque, so
// destination alpha never accumulates transparency.
func (s *Screen) BlitFrame(m Image, frame int) error {
	src, err := m.Frame(frame)
	if err != nil {
		return err
	}

	surfaceRect, viewRect := s.resolve()

	var (
		bounds  = m.Bounds()
		place   = m.Placement()
		imgRect = place.Rect(viewRect)
		region  = geom.Intersect(surfaceRect, viewRect, imgRect)

		form   = s.Surface.Format()
		stride = form.Stride()
		alpha  = form.EncodeAlpha(0xff)
		dst    = s.Surface.Pix()

		width    = surfaceRect.Dx()
		imgWidth = bounds.Dx()
		blending = m.Blending()
	)

	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			var (
				di = (y*width + x) * stride
				si = ((y-imgRect.Min.Y)*imgWidth + (x - imgRect.Min.X)) * 4
			)

			sr, sg, sb, sa := src[si], src[si+1], src[si+2], src[si+3]

			// Fully transparent source pixels are skipped, not zeroed.
			if sa == 0 {
				continue
			}

			if blending {
				var (
					fg = float32(sa) / 255
					bg = 1 - fg
				)
				r, g, b := form.DecodeRGB(form.Read(dst[di:]))

				sr = uint8(float32(sr)*fg + float32(r)*bg)
				sg = uint8(float32(sg)*fg + float32(g)*bg)
				sb = uint8(float32(sb)*fg + float32(b)*bg)
			}

			form.Write(dst[di:], form.EncodeRGB(sr, sg, sb)|alpha)
		}
	}

	return s.Surface.Flush()
}

// Blit renders the image's frames in order, honoring its loop count: a
// negative count loops forever, zero draws nothing, N runs exactly N
// passes. The per-frame delay is slept between frames within a pass, not
// after a pass's last frame.
//
// Cancellation is polled once per completed frame: a frame that has
// started is always rasterized in full before Blit returns ctx.Err().
func (s *Screen) Blit(ctx context.Context, m Image) error {
	count := m.LoopCount()

	for count != 0 {
		last := m.FrameCount() - 1

		for frame := 0; frame <= last; frame++ {
			if err := s.BlitFrame(m, frame); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if frame != last {
				if err := s.pause(ctx, m.FrameDelay()); err != nil {
					return err
				}
			}
		}

		if count > 0 {
			count--
		}
	}
	return nil
}

func (s *Screen) pause(ctx context.Context, delay time.Duration) error {
	if s.sleep != nil {
		s.sleep(delay)
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear floods the surface-viewport intersection with a solid color and
// flushes once.
//
// A zero-alpha color makes the whole call a no-op, including the flush.
// A partial alpha blends the color with each pixel's current contents,
// using the same math as image blending; the stored alpha is forced fully
// opaque either way.
func (s *Screen) Clear(c pixel.Color) error {
	if c.A == 0 {
		return nil
	}

	surfaceRect, viewRect := s.resolve()

	var (
		region = geom.Intersect(surfaceRect, viewRect)

		form   = s.Surface.Format()
		stride = form.Stride()
		alpha  = form.EncodeAlpha(0xff)
		dst    = s.Surface.Pix()

		width   = surfaceRect.Dx()
		partial = c.A < 0xff
		solid   = form.EncodeRGB(c.R, c.G, c.B) | alpha

		fg = float32(c.A) / 255
		bg = 1 - fg
	)

	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			di := (y*width + x) * stride

			if !partial {
				form.Write(dst[di:], solid)
				continue
			}

			r, g, b := form.DecodeRGB(form.Read(dst[di:]))
			form.Write(dst[di:], form.EncodeRGB(
				uint8(float32(c.R)*fg+float32(r)*bg),
				uint8(float32(c.G)*fg+float32(g)*bg),
				uint8(float32(c.B)*fg+float32(b)*bg),
			)|alpha)
		}
	}

	return s.Surface.Flush()
}

// Dump returns a diagnostic description of the surface and its format.
func (s *Screen) Dump() string {
	return fmt.Sprintf("%s format: %s", s.Surface, s.Surface.Format())
}
