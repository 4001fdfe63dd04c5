package framebuffer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/pixview/pixview/internal/ioctl"
	"github.com/pixview/pixview/pixel"
)

// From <linux/fb.h>
const (
	fbioGetVScreenInfo = 0x4600
	fbioPutVScreenInfo = 0x4601
	fbioGetFScreenInfo = 0x4602
)

// Default device candidates, tried in order after the caller-provided path.
var defaultDevices = []string{"/dev/fb0", "/dev/fb/0"}

// Errors
var (
	ErrNoDevice = errors.New("framebuffer: no device could be opened")
	ErrNoColor  = errors.New("framebuffer: device does not support color output")
)

// bitField mirrors struct fb_bitfield. Offsets count from the right inside
// a pixel value that is exactly BitsPerPixel wide.
type bitField struct {
	Offset   uint32
	Length   uint32
	MsbRight uint32
}

// varScreenInfo mirrors struct fb_var_screeninfo.
type varScreenInfo struct {
	Xres                    uint32
	Yres                    uint32
	XresVirtual             uint32
	YresVirtual             uint32
	Xoffset                 uint32
	Yoffset                 uint32
	BitsPerPixel            uint32
	Grayscale               uint32 // 0 = color, 1 = grayscale, >1 = FOURCC
	Red, Green, Blue, Alpha bitField
	Nonstd                  uint32
	Activate                uint32
	Height                  uint32
	Width                   uint32
	AccelFlags              uint32
	Pixclock                uint32
	LeftMargin              uint32
	RightMargin             uint32
	UpperMargin             uint32
	LowerMargin             uint32
	HsyncLen                uint32
	VsyncLen                uint32
	Sync                    uint32
	Vmode                   uint32
	Rotate                  uint32
	Colorspace              uint32
	Reserved                [4]uint32
}

// fixScreenInfo mirrors struct fb_fix_screeninfo.
type fixScreenInfo struct {
	ID           [16]byte
	SmemStart    uintptr
	SmemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	Xpanstep     uint16
	Ypanstep     uint16
	Ywrapstep    uint16
	LineLength   uint32
	MmioStart    uintptr
	MmioLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

func (v *varScreenInfo) format() pixel.Format {
	return pixel.Format{
		Bits: v.BitsPerPixel,
		R:    pixel.NewChannel(v.Red.Length, v.Red.Offset),
		G:    pixel.NewChannel(v.Green.Length, v.Green.Offset),
		B:    pixel.NewChannel(v.Blue.Length, v.Blue.Offset),
		A:    pixel.NewChannel(v.Alpha.Length, v.Alpha.Offset),
	}
}

// hasFourCC reports whether the device is in a packed FOURCC mode, which
// this package does not support.
func (v *varScreenInfo) hasFourCC() bool {
	return v.Grayscale > 1
}

func (v *varScreenInfo) hasColor() bool {
	return v.Grayscale == 0 && v.format().Color()
}

// Device is a memory-mapped Linux framebuffer.
type Device struct {
	f     *os.File
	pix   []byte
	vinfo varScreenInfo
	finfo fixScreenInfo
}

// Open a Linux framebuffer device (fbdev). An empty path tries the default
// devices; a non-empty path is tried first, with the defaults as fallback.
//
// If the device's current format is not true color, or uses a FOURCC mode,
// a single corrective reconfiguration to a packed 32-bit RGB layout is
// attempted before giving up.
func Open(path string) (*Device, error) {
	var candidates []string
	if path != "" {
		candidates = append(candidates, path)
	}
	candidates = append(candidates, defaultDevices...)

	var (
		f   *os.File
		err error
	)
	for _, name := range candidates {
		if f, err = os.OpenFile(name, os.O_RDWR, os.ModeDevice); err == nil {
			break
		}
		f = nil
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	d := &Device{f: f}
	if err = d.load(); err != nil {
		_ = f.Close()
		return nil, err
	}

	if !d.vinfo.hasColor() || d.vinfo.hasFourCC() {
		if err = d.reconfigure(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if d.pix, err = unix.Mmap(int(f.Fd()), 0, d.size(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("framebuffer: failed to map device memory: %w", err)
	}
	return d, nil
}

// reconfigure makes the single corrective attempt allowed when the device
// reports a non-color or FOURCC format: request a packed 32-bit layout with
// R@0 G@8 B@16 and no alpha, then re-check.
func (d *Device) reconfigure() error {
	want := d.vinfo
	want.BitsPerPixel = 32
	want.Grayscale = 0
	want.Red = bitField{Offset: 0, Length: 8}
	want.Green = bitField{Offset: 8, Length: 8}
	want.Blue = bitField{Offset: 16, Length: 8}
	want.Alpha = bitField{}

	if err := d.ioctl(fbioPutVScreenInfo, unsafe.Pointer(&want)); err != nil {
		return fmt.Errorf("framebuffer: failed to reconfigure format: %w", err)
	}
	if err := d.load(); err != nil {
		return err
	}
	if !d.vinfo.hasColor() {
		return ErrNoColor
	}
	return nil
}

// load refreshes the variable and fixed screen information.
func (d *Device) load() error {
	d.vinfo = varScreenInfo{}
	d.finfo = fixScreenInfo{}

	if err := d.ioctl(fbioGetVScreenInfo, unsafe.Pointer(&d.vinfo)); err != nil {
		return fmt.Errorf("framebuffer: failed to query variable screen info: %w", err)
	}
	if err := d.ioctl(fbioGetFScreenInfo, unsafe.Pointer(&d.finfo)); err != nil {
		return fmt.Errorf("framebuffer: failed to query fixed screen info: %w", err)
	}
	return nil
}

func (d *Device) ioctl(cmd uintptr, arg unsafe.Pointer) error {
	return ioctl.Do(d.f.Fd(), ioctl.Command(cmd), arg)
}

// size returns the mapping length: the fixed memory length rounded up to
// the system page size.
func (d *Device) size() int {
	var (
		page = unix.Getpagesize()
		size = int(d.finfo.SmemLen)
	)
	if rest := size % page; rest != 0 {
		size += page - rest
	}
	return size
}

func (d *Device) String() string {
	name := string(bytes.TrimRight(d.finfo.ID[:], "\x00"))
	return fmt.Sprintf("framebuffer %q (%dx%d)", name, d.vinfo.Xres, d.vinfo.Yres)
}

func (d *Device) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(d.vinfo.Xres), int(d.vinfo.Yres))
}

func (d *Device) Format() pixel.Format {
	return d.vinfo.format()
}

// Pix is the mapped device memory; writing to it changes the screen.
func (d *Device) Pix() []byte {
	return d.pix
}

// Flush is a no-op: the mapping is the live scanout buffer.
func (d *Device) Flush() error {
	return nil
}

// Close unmaps the device memory and closes the device, unconditionally.
func (d *Device) Close() error {
	var err error
	if d.pix != nil {
		err = unix.Munmap(d.pix)
		d.pix = nil
	}
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	return err
}
