//go:build !linux

package framebuffer

import (
	"errors"
	"image"

	"github.com/pixview/pixview/pixel"
)

var ErrNotSupported = errors.New("framebuffer: not supported on this platform")

// Device is a stub on platforms without fbdev support.
type Device struct{}

func Open(_ string) (*Device, error) {
	return nil, ErrNotSupported
}

func (d *Device) String() string          { return "framebuffer (unsupported)" }
func (d *Device) Close() error            { return nil }
func (d *Device) Bounds() image.Rectangle { return image.Rectangle{} }
func (d *Device) Format() pixel.Format    { return pixel.Format{} }
func (d *Device) Pix() []byte             { return nil }
func (d *Device) Flush() error            { return nil }
