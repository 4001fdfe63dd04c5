// Package img loads still and animated images as RGBA8888 frame buffers.
//
// PNG, JPEG and GIF come from the standard library; BMP, TIFF and WebP
// decoders are registered from golang.org/x/image. Animated GIFs are
// composited into full frames so every frame is a plain width×height RGBA
// buffer.
package img

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"time"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pixview/pixview/geom"
)

// DefaultDelay is the per-frame delay used when the file provides none,
// roughly 24 frames per second.
const DefaultDelay = 41666 * time.Microsecond

// ErrFrameRange is returned when a frame index is out of range.
var ErrFrameRange = errors.New("img: frame index out of range")

// Image is a decoded image: one or more RGBA8888 frames plus the placement
// and playback settings the screen engine consumes. The embedded viewport's
// W and H are the decoded dimensions; its anchor and offset place the image
// on the screen.
type Image struct {
	geom.Viewport

	// Blend enables alpha blending against the destination.
	Blend bool

	// Loops is the number of animation passes; -1 loops forever, 0 draws
	// nothing.
	Loops int

	// Delay is slept between frames within a pass.
	Delay time.Duration

	frames int
	pix    []byte // frames × W × H × 4 bytes
}

// New wraps an externally owned RGBA8888 buffer as a single-frame image.
func New(pix []byte, w, h int) *Image {
	return &Image{
		Viewport: geom.Viewport{W: w, H: h},
		Loops:    1,
		Delay:    DefaultDelay,
		frames:   1,
		pix:      pix,
	}
}

// Load decodes the image file at path.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("img: failed to open %q: %w", path, err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("img: failed to decode %q: %w", path, err)
	}
	return m, nil
}

// Decode reads an image from r, which must also be seekable so the format
// can be sniffed first.
func Decode(r io.ReadSeeker) (*Image, error) {
	_, kind, err := image.DecodeConfig(r)
	if err != nil {
		return nil, err
	}
	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	if kind == "gif" {
		return decodeGIF(r)
	}

	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	m := New(rgba.Pix, bounds.Dx(), bounds.Dy())
	return m, nil
}

// decodeGIF loads every GIF frame, compositing partial frames onto the
// previous canvas state so each stored frame is complete.
func decodeGIF(r io.Reader) (*Image, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, err
	}

	w, h := g.Config.Width, g.Config.Height
	if w == 0 || h == 0 {
		bounds := g.Image[0].Bounds()
		w, h = bounds.Dx(), bounds.Dy()
	}

	var (
		canvas = image.NewRGBA(image.Rect(0, 0, w, h))
		pix    = make([]byte, 0, len(g.Image)*w*h*4)
	)
	for i, frame := range g.Image {
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		pix = append(pix, canvas.Pix...)

		if i < len(g.Disposal) && g.Disposal[i] == gif.DisposalBackground {
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		}
	}

	m := New(pix, w, h)
	m.frames = len(g.Image)
	if len(g.Delay) > 0 && g.Delay[0] > 0 {
		// GIF delays are in hundredths of a second.
		m.Delay = time.Duration(g.Delay[0]) * 10 * time.Millisecond
	}
	return m, nil
}

// Bounds is the image extent with the origin at (0, 0).
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.W, m.H)
}

// FrameCount returns the number of decoded frames, at least 1.
func (m *Image) FrameCount() int {
	return m.frames
}

// Frame returns the RGBA8888 buffer of the given frame.
func (m *Image) Frame(frame int) ([]byte, error) {
	if frame < 0 || frame >= m.frames {
		return nil, fmt.Errorf("%w: %d of %d", ErrFrameRange, frame, m.frames)
	}
	size := m.W * m.H * 4
	return m.pix[frame*size : (frame+1)*size], nil
}

// Placement returns the viewport that positions this image on a canvas.
func (m *Image) Placement() geom.Viewport {
	return m.Viewport
}

func (m *Image) Blending() bool {
	return m.Blend
}

func (m *Image) LoopCount() int {
	return m.Loops
}

func (m *Image) FrameDelay() time.Duration {
	return m.Delay
}
