// Package pixview renders still and animated RGBA images onto raw Linux
// display surfaces.
//
// Two backends expose the same capability surface: a memory-mapped
// framebuffer device (fbdev) and a DRM/KMS dumb buffer. The [Screen]
// engine is format-agnostic; it encodes pixels through the backend's
// reported bit-field layout, so it works at arbitrary bit depths.
package pixview

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/pixview/pixview/drm"
	"github.com/pixview/pixview/framebuffer"
	"github.com/pixview/pixview/geom"
	"github.com/pixview/pixview/pixel"
)

// ErrUnknownDevice is returned by Open for an unrecognized device type.
var ErrUnknownDevice = errors.New("pixview: unknown device type")

// Surface is an addressable rectangular pixel buffer exposed by a display
// backend. The backend owns its buffer and hardware handles for the life
// of the surface; Close releases both.
type Surface interface {
	// String describes the device for diagnostics.
	String() string

	// Close releases the buffer and the hardware handles.
	Close() error

	// Bounds is the surface extent with the origin at (0, 0).
	Bounds() image.Rectangle

	// Format describes the surface's native pixel layout.
	Format() pixel.Format

	// Pix is the raw pixel buffer in the surface's native format.
	Pix() []byte

	// Flush presents the buffer contents.
	Flush() error
}

// Image is the contract expected from a decoded image. The screen engine
// borrows an Image only for the duration of a call and never retains it.
type Image interface {
	// Bounds is the frame extent with the origin at (0, 0).
	Bounds() image.Rectangle

	// FrameCount returns the number of frames, at least 1.
	FrameCount() int

	// Frame returns the RGBA8888 buffer of the given frame and fails if
	// the index is out of range.
	Frame(frame int) ([]byte, error)

	// Placement positions the image on its canvas.
	Placement() geom.Viewport

	// Blending reports whether frames alpha-blend with the destination.
	Blending() bool

	// LoopCount is the number of animation passes; negative means forever.
	LoopCount() int

	// FrameDelay is slept between frames within a pass.
	FrameDelay() time.Duration
}

// Open constructs a display surface from a descriptor of the form "type"
// or "type:path". Supported types are "fb" (Linux framebuffer) and "drm"
// (DRM/KMS dumb buffer); an empty descriptor opens the default
// framebuffer.
func Open(descriptor string) (Surface, error) {
	tag, path, _ := strings.Cut(descriptor, ":")
	if tag == "" {
		tag = "fb"
	}

	switch tag {
	case "fb":
		d, err := framebuffer.Open(path)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "drm":
		d, err := drm.Open(path)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w %q, expected \"fb\" or \"drm\"", ErrUnknownDevice, tag)
}
