package drm

import (
	"errors"
	"fmt"
	"image"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/pixview/pixview/internal/ioctl"
	"github.com/pixview/pixview/pixel"
)

// Default device candidates, tried in order after the caller-provided path.
var defaultDevices = []string{"/dev/dri/card0"}

// Errors
var (
	ErrNoDevice    = errors.New("drm: no device could be opened")
	ErrNoConnector = errors.New("drm: no connected connector with modes found")
	ErrNoMode      = errors.New("drm: no valid mode found for connector")
)

// format of the dumb buffer. This is not queried from the hardware: it is
// a consequence of allocating the buffer at depth 24 / 32 bpp, so it must
// stay in sync with createFramebuffer.
var format = pixel.Format{
	Bits: 32,
	R:    pixel.NewChannel(8, 16),
	G:    pixel.NewChannel(8, 8),
	B:    pixel.NewChannel(8, 0),
	A:    pixel.NewChannel(8, 24),
}

// Device is a DRM/KMS display driving a CPU-mapped dumb buffer.
type Device struct {
	f      *os.File
	pix    []byte
	dumb   modeCreateDumb
	mode   modeInfo
	connID uint32
	crtc   modeCrtc // the CRTC state found at startup, restored on Close
	crtcOK bool
	fb     uint32
}

// Open a DRM device. An empty path tries the default card; a non-empty
// path is tried first, with the default as fallback.
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
	if err = d.init(); err != nil {
		// Close releases whatever the partial init already acquired.
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) init() error {
	connectors, err := d.resources()
	if err != nil {
		return err
	}

	conn, modes, err := d.pickConnector(connectors)
	if err != nil {
		return err
	}
	d.connID = conn.ConnectorID

	mode, err := pickMode(modes)
	if err != nil {
		return err
	}
	d.mode = mode

	if err = d.loadCrtc(conn.EncoderID); err != nil {
		return err
	}
	if err = d.createFramebuffer(24, 32); err != nil {
		return err
	}
	return d.mapDumb()
}

// resources enumerates the card's connector ids. Two calls: the first
// learns the array sizes, the second fills them in.
func (d *Device) resources() ([]uint32, error) {
	var res modeCardRes
	if err := d.ioctl(ioctlModeGetResources, unsafe.Pointer(&res)); err != nil {
		return nil, fmt.Errorf("drm: unable to get resources: %w", err)
	}
	if res.CountConnectors == 0 {
		return nil, ErrNoConnector
	}

	connectors := make([]uint32, res.CountConnectors)
	res = modeCardRes{
		ConnectorIDPtr:  uint64(uintptr(unsafe.Pointer(&connectors[0]))),
		CountConnectors: uint32(len(connectors)),
	}
	err := d.ioctl(ioctlModeGetResources, unsafe.Pointer(&res))
	runtime.KeepAlive(connectors)
	if err != nil {
		return nil, fmt.Errorf("drm: unable to get resources: %w", err)
	}
	return connectors[:res.CountConnectors], nil
}

// connector fetches a connector's current state together with its modes,
// without forcing the driver to re-probe the output.
func (d *Device) connector(id uint32) (modeGetConnector, []modeInfo, error) {
	conn := modeGetConnector{ConnectorID: id}
	if err := d.ioctl(ioctlModeGetConnector, unsafe.Pointer(&conn)); err != nil {
		return conn, nil, fmt.Errorf("drm: unable to get connector %d: %w", id, err)
	}
	if conn.CountModes == 0 {
		return conn, nil, nil
	}

	modes := make([]modeInfo, conn.CountModes)
	conn = modeGetConnector{
		ConnectorID: id,
		ModesPtr:    uint64(uintptr(unsafe.Pointer(&modes[0]))),
		CountModes:  uint32(len(modes)),
	}
	err := d.ioctl(ioctlModeGetConnector, unsafe.Pointer(&conn))
	runtime.KeepAlive(modes)
	if err != nil {
		return conn, nil, fmt.Errorf("drm: unable to get connector %d: %w", id, err)
	}
	return conn, modes[:conn.CountModes], nil
}

// pickConnector selects the first connector that is connected and has at
// least one mode.
func (d *Device) pickConnector(ids []uint32) (modeGetConnector, []modeInfo, error) {
	for _, id := range ids {
		conn, modes, err := d.connector(id)
		if err != nil {
			continue
		}
		if len(modes) == 0 || conn.Connection == modeDisconnected {
			continue
		}
		return conn, modes, nil
	}
	return modeGetConnector{}, nil, ErrNoConnector
}

// pickMode prefers the driver-flagged preferred mode, falling back to the
// mode with the largest pixel area.
func pickMode(modes []modeInfo) (modeInfo, error) {
	var (
		selected modeInfo
		pixels   int
		found    bool
	)
	for _, mode := range modes {
		if mode.Type&modeTypePreferred != 0 {
			return mode, nil
		}
		if size := int(mode.Hdisplay) * int(mode.Vdisplay); size > pixels {
			pixels = size
			selected = mode
			found = true
		}
	}
	if !found {
		return modeInfo{}, ErrNoMode
	}
	return selected, nil
}

// loadCrtc resolves the connector's active CRTC through its encoder and
// saves its current state for restoration at Close.
func (d *Device) loadCrtc(encoderID uint32) error {
	enc := modeGetEncoder{EncoderID: encoderID}
	if err := d.ioctl(ioctlModeGetEncoder, unsafe.Pointer(&enc)); err != nil {
		return fmt.Errorf("drm: unable to get encoder %d: %w", encoderID, err)
	}

	crtc := modeCrtc{CrtcID: enc.CrtcID}
	if err := d.ioctl(ioctlModeGetCrtc, unsafe.Pointer(&crtc)); err != nil {
		return fmt.Errorf("drm: unable to get CRTC %d: %w", enc.CrtcID, err)
	}

	d.crtc = crtc
	d.crtcOK = true
	return nil
}

// createFramebuffer allocates a dumb buffer sized to the selected mode and
// registers it as a framebuffer. The fixed pixel format constant above
// depends on these depth and bpp values.
func (d *Device) createFramebuffer(depth, bpp uint32) error {
	d.dumb = modeCreateDumb{
		Width:  uint32(d.mode.Hdisplay),
		Height: uint32(d.mode.Vdisplay),
		Bpp:    bpp,
	}
	if err := d.ioctl(ioctlModeCreateDumb, unsafe.Pointer(&d.dumb)); err != nil {
		return fmt.Errorf("drm: unable to create dumb buffer: %w", err)
	}

	fb := modeFBCmd{
		Width:  d.dumb.Width,
		Height: d.dumb.Height,
		Pitch:  d.dumb.Pitch,
		Bpp:    bpp,
		Depth:  depth,
		Handle: d.dumb.Handle,
	}
	if err := d.ioctl(ioctlModeAddFB, unsafe.Pointer(&fb)); err != nil {
		return fmt.Errorf("drm: unable to register framebuffer: %w", err)
	}
	d.fb = fb.FBID
	return nil
}

func (d *Device) mapDumb() error {
	arg := modeMapDumb{Handle: d.dumb.Handle}
	if err := d.ioctl(ioctlModeMapDumb, unsafe.Pointer(&arg)); err != nil {
		return fmt.Errorf("drm: unable to map dumb buffer: %w", err)
	}

	pix, err := unix.Mmap(int(d.f.Fd()), int64(arg.Offset), int(d.dumb.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("drm: failed to map dumb buffer memory: %w", err)
	}
	d.pix = pix
	return nil
}

// setCrtc points the connector's CRTC at the given framebuffer using the
// selected mode. The caller must hold master privilege.
func (d *Device) setCrtc(fb uint32) error {
	connID := d.connID
	crtc := modeCrtc{
		SetConnectorsPtr: uint64(uintptr(unsafe.Pointer(&connID))),
		CountConnectors:  1,
		CrtcID:           d.crtc.CrtcID,
		FBID:             fb,
		ModeValid:        1,
		Mode:             d.mode,
	}
	err := d.ioctl(ioctlModeSetCrtc, unsafe.Pointer(&crtc))
	runtime.KeepAlive(&connID)
	if err != nil {
		return fmt.Errorf("drm: unable to set CRTC: %w", err)
	}
	return nil
}

func (d *Device) ioctl(cmd ioctl.Command, arg unsafe.Pointer) error {
	return ioctl.Do(d.f.Fd(), cmd, arg)
}

func (d *Device) String() string {
	return fmt.Sprintf("drm connector=%d crtc=%d (%dx%d)", d.connID, d.crtc.CrtcID, d.mode.Hdisplay, d.mode.Vdisplay)
}

func (d *Device) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(d.dumb.Width), int(d.dumb.Height))
}

func (d *Device) Format() pixel.Format {
	return format
}

// Pix is the CPU mapping of the dumb buffer. Writes become visible on the
// next Flush.
func (d *Device) Pix() []byte {
	return d.pix
}

// Flush acquires exclusive display-master privilege, mode-sets the CRTC to
// scan out the dumb buffer, and drops master again. Failing to acquire
// master is fatal; other processes may hold it between our flushes.
func (d *Device) Flush() error {
	if err := d.ioctl(ioctlSetMaster, nil); err != nil {
		return fmt.Errorf("drm: unable to acquire master access: %w", err)
	}
	err := d.setCrtc(d.fb)
	_ = d.ioctl(ioctlDropMaster, nil)
	return err
}

// Close tears the device down in reverse order of construction: restore
// the CRTC's original buffer (best effort), release the framebuffer id,
// destroy the dumb buffer, unmap, and close the device handle last.
func (d *Device) Close() error {
	if d.crtcOK {
		if d.ioctl(ioctlSetMaster, nil) == nil {
			// Restore the full saved CRTC state, mode included.
			connID := d.connID
			crtc := d.crtc
			crtc.SetConnectorsPtr = uint64(uintptr(unsafe.Pointer(&connID)))
			crtc.CountConnectors = 1
			_ = d.ioctl(ioctlModeSetCrtc, unsafe.Pointer(&crtc))
			runtime.KeepAlive(&connID)
			_ = d.ioctl(ioctlDropMaster, nil)
		}
	}
	if d.fb != 0 {
		fb := d.fb
		_ = d.ioctl(ioctlModeRmFB, unsafe.Pointer(&fb))
		d.fb = 0
	}
	if d.dumb.Handle != 0 {
		arg := modeDestroyDumb{Handle: d.dumb.Handle}
		_ = d.ioctl(ioctlModeDestroyDumb, unsafe.Pointer(&arg))
		d.dumb.Handle = 0
	}
	if d.pix != nil {
		_ = unix.Munmap(d.pix)
		d.pix = nil
	}
	return d.f.Close()
}
