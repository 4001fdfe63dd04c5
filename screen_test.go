package pixview

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/pixview/pixview/geom"
	"github.com/pixview/pixview/pixel"
)

var xrgb8888 = pixel.Format{
	Bits: 32,
	R:    pixel.NewChannel(8, 16),
	G:    pixel.NewChannel(8, 8),
	B:    pixel.NewChannel(8, 0),
	A:    pixel.NewChannel(8, 24),
}

type fakeSurface struct {
	rect    image.Rectangle
	form    pixel.Format
	pix     []byte
	flushes int
	onFlush func(flushes int)
}

func newFakeSurface(w, h int, form pixel.Format) *fakeSurface {
	return &fakeSurface{
		rect: image.Rect(0, 0, w, h),
		form: form,
		pix:  make([]byte, w*h*form.Stride()),
	}
}

// fill stamps a sentinel byte over the whole buffer so tests can detect
// exactly which bytes a draw touched.
func (s *fakeSurface) fill(sentinel byte) {
	for i := range s.pix {
		s.pix[i] = sentinel
	}
}

func (s *fakeSurface) String() string          { return "fake" }
func (s *fakeSurface) Close() error            { return nil }
func (s *fakeSurface) Bounds() image.Rectangle { return s.rect }
func (s *fakeSurface) Format() pixel.Format    { return s.form }
func (s *fakeSurface) Pix() []byte             { return s.pix }

func (s *fakeSurface) Flush() error {
	s.flushes++
	if s.onFlush != nil {
		s.onFlush(s.flushes)
	}
	return nil
}

type fakeImage struct {
	view   geom.Viewport
	blend  bool
	loops  int
	delay  time.Duration
	frames [][]byte
}

// solidImage returns a single-frame image of one RGBA color.
func solidImage(w, h int, r, g, b, a byte) *fakeImage {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, a
	}
	return &fakeImage{
		view:   geom.Viewport{W: w, H: h},
		loops:  1,
		frames: [][]byte{pix},
	}
}

func (m *fakeImage) Bounds() image.Rectangle   { return image.Rect(0, 0, m.view.W, m.view.H) }
func (m *fakeImage) FrameCount() int           { return len(m.frames) }
func (m *fakeImage) Placement() geom.Viewport  { return m.view }
func (m *fakeImage) Blending() bool            { return m.blend }
func (m *fakeImage) LoopCount() int            { return m.loops }
func (m *fakeImage) FrameDelay() time.Duration { return m.delay }

func (m *fakeImage) Frame(frame int) ([]byte, error) {
	if frame < 0 || frame >= len(m.frames) {
		return nil, errors.New("frame out of range")
	}
	return m.frames[frame], nil
}

func TestBlitFrameRegion(t *testing.T) {
	surface := newFakeSurface(8, 8, xrgb8888)
	surface.fill(0xaa)
	screen := NewScreen(surface)

	m := solidImage(4, 4, 0xff, 0, 0, 0xff)
	m.view.OffsetX, m.view.OffsetY = 2, 3

	if err := screen.BlitFrame(m, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if surface.flushes != 1 {
		t.Errorf("expected 1 flush, got %d", surface.flushes)
	}

	want := image.Rect(2, 3, 6, 7)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			di := (y*8 + x) * 4
			inside := image.Pt(x, y).In(want)
			touched := !bytes.Equal(surface.pix[di:di+4], []byte{0xaa, 0xaa, 0xaa, 0xaa})
			if inside && !touched {
				t.Errorf("expected pixel (%d, %d) to be written", x, y)
			}
			if !inside && touched {
				t.Errorf("expected pixel (%d, %d) to be untouched", x, y)
			}
		}
	}
}

func TestBlitFrameOffCanvas(t *testing.T) {
	anchors := []struct {
		ax, ay float64
		ox, oy int
	}{
		{0, 0, 100, 100},
		{0, 0, -100, -100},
		{5, 5, 0, 0},
		{-3, 0.5, 0, 0},
	}
	for _, test := range anchors {
		surface := newFakeSurface(8, 8, xrgb8888)
		surface.fill(0xaa)
		screen := NewScreen(surface)

		m := solidImage(4, 4, 0xff, 0xff, 0xff, 0xff)
		m.view.AnchorX, m.view.AnchorY = test.ax, test.ay
		m.view.OffsetX, m.view.OffsetY = test.ox, test.oy

		if err := screen.BlitFrame(m, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, b := range surface.pix {
			if b != 0xaa {
				t.Fatalf("anchor (%g, %g) offset (%d, %d): expected no writes, byte %d changed",
					test.ax, test.ay, test.ox, test.oy, i)
			}
		}
	}
}

func TestBlitFrameClipsToSurface(t *testing.T) {
	surface := newFakeSurface(8, 8, xrgb8888)
	surface.fill(0xaa)
	screen := NewScreen(surface)

	// Bottom-right anchor pushed two pixels past the corner.
	m := solidImage(4, 4, 0, 0xff, 0, 0xff)
	m.view.AnchorX, m.view.AnchorY = 1, 1
	m.view.OffsetX, m.view.OffsetY = 2, 2

	if err := screen.BlitFrame(m, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := image.Rect(6, 6, 8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			di := (y*8 + x) * 4
			touched := !bytes.Equal(surface.pix[di:di+4], []byte{0xaa, 0xaa, 0xaa, 0xaa})
			if touched != image.Pt(x, y).In(want) {
				t.Errorf("unexpected state at (%d, %d)", x, y)
			}
		}
	}
}

// Images anchor relative to the active viewport, not the raw surface, and
// never draw outside it.
func TestBlitFrameViewport(t *testing.T) {
	surface := newFakeSurface(8, 8, xrgb8888)
	surface.fill(0xaa)

	screen := NewScreen(surface)
	screen.View = geom.Viewport{W: 4, H: 4, AnchorX: 0.5, AnchorY: 0.5}

	// Image larger than the viewport: it must be clipped to it.
	m := solidImage(8, 8, 0, 0, 0xff, 0xff)

	if err := screen.BlitFrame(m, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := image.Rect(2, 2, 6, 6)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			di := (y*8 + x) * 4
			touched := !bytes.Equal(surface.pix[di:di+4], []byte{0xaa, 0xaa, 0xaa, 0xaa})
			if touched != image.Pt(x, y).In(want) {
				t.Errorf("unexpected state at (%d, %d)", x, y)
			}
		}
	}
}

func TestBlitFrameSkipsTransparent(t *testing.T) {
	surface := newFakeSurface(2, 1, xrgb8888)
	surface.fill(0xaa)
	screen := NewScreen(surface)

	m := solidImage(2, 1, 0xff, 0xff, 0xff, 0xff)
	m.frames[0][3] = 0 // first pixel fully transparent

	if err := screen.BlitFrame(m, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(surface.pix[0:4], []byte{0xaa, 0xaa, 0xaa, 0xaa}) {
		t.Error("expected transparent source pixel to leave destination bytes unchanged")
	}
	if bytes.Equal(surface.pix[4:8], []byte{0xaa, 0xaa, 0xaa, 0xaa}) {
		t.Error("expected opaque source pixel to be written")
	}
}

func TestBlitFrameBlend(t *testing.T) {
	surface := newFakeSurface(1, 1, xrgb8888)
	screen := NewScreen(surface)

	// Destination starts out solid red.
	xrgb8888.Write(surface.pix, xrgb8888.EncodeRGB(200, 0, 0)|xrgb8888.EncodeAlpha(0xff))

	m := solidImage(1, 1, 0, 0, 100, 128)
	m.blend = true

	if err := screen.BlitFrame(m, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var (
		fg = float32(128) / 255
		bg = 1 - fg

		wantR = uint8(float32(0)*fg + float32(200)*bg)
		wantB = uint8(float32(100)*fg + float32(0)*bg)
	)
	r, g, b := xrgb8888.DecodeRGB(xrgb8888.Read(surface.pix))
	if r != wantR || g != 0 || b != wantB {
		t.Errorf("expected blended (%d, 0, %d), got (%d, %d, %d)", wantR, wantB, r, g, b)
	}
	if a := xrgb8888.A.Decode(xrgb8888.Read(surface.pix)); a != 0xff {
		t.Errorf("expected stored alpha to be forced opaque, got %d", a)
	}
}

// Without blending, a partially transparent source pixel is copied as-is
// but its stored alpha is still forced opaque.
func TestBlitFrameForcesOpaqueAlpha(t *testing.T) {
	surface := newFakeSurface(1, 1, xrgb8888)
	screen := NewScreen(surface)

	m := solidImage(1, 1, 10, 20, 30, 128)

	if err := screen.BlitFrame(m, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value := xrgb8888.Read(surface.pix)
	r, g, b := xrgb8888.DecodeRGB(value)
	if r != 10 || g != 20 || b != 30 {
		t.Errorf("expected (10, 20, 30), got (%d, %d, %d)", r, g, b)
	}
	if a := xrgb8888.A.Decode(value); a != 0xff {
		t.Errorf("expected stored alpha to be forced opaque, got %d", a)
	}
}

func TestBlitFrameRGB565(t *testing.T) {
	rgb565 := pixel.Format{
		Bits: 16,
		R:    pixel.NewChannel(5, 11),
		G:    pixel.NewChannel(6, 5),
		B:    pixel.NewChannel(5, 0),
	}
	surface := newFakeSurface(2, 2, rgb565)
	screen := NewScreen(surface)

	m := solidImage(2, 2, 255, 125, 0, 0xff)

	if err := screen.BlitFrame(m, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := uint64(0b11111_011110_00000)
	for i := 0; i < 4; i++ {
		if v := rgb565.Read(surface.pix[i*2:]); v != want {
			t.Errorf("expected pixel %d to be %#04x, got %#04x", i, want, v)
		}
	}
}

func TestBlitLoops(t *testing.T) {
	surface := newFakeSurface(2, 2, xrgb8888)
	screen := NewScreen(surface)

	sleeps := 0
	screen.sleep = func(time.Duration) { sleeps++ }

	frame := make([]byte, 2*2*4)
	m := &fakeImage{
		view:   geom.Viewport{W: 2, H: 2},
		loops:  2,
		frames: [][]byte{frame, frame, frame},
	}

	if err := screen.Blit(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if surface.flushes != 6 {
		t.Errorf("expected 6 frame draws, got %d", surface.flushes)
	}

	// The delay is not slept after a pass's last frame, so two passes over
	// three frames sleep twice each.
	if sleeps != 4 {
		t.Errorf("expected 4 inter-frame sleeps, got %d", sleeps)
	}
}

func TestBlitZeroLoops(t *testing.T) {
	surface := newFakeSurface(2, 2, xrgb8888)
	screen := NewScreen(surface)

	m := solidImage(2, 2, 1, 2, 3, 0xff)
	m.loops = 0

	if err := screen.Blit(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if surface.flushes != 0 {
		t.Errorf("expected no draws, got %d", surface.flushes)
	}
}

// Cancellation is polled once per completed frame: the in-progress frame
// finishes, further frames do not start. This also terminates an infinite
// loop count.
func TestBlitCancel(t *testing.T) {
	surface := newFakeSurface(2, 2, xrgb8888)
	screen := NewScreen(surface)
	screen.sleep = func(time.Duration) {}

	ctx, cancel := context.WithCancel(context.Background())
	surface.onFlush = func(flushes int) {
		if flushes == 2 {
			cancel()
		}
	}

	frame := make([]byte, 2*2*4)
	m := &fakeImage{
		view:   geom.Viewport{W: 2, H: 2},
		loops:  -1,
		frames: [][]byte{frame, frame, frame},
	}

	if err := screen.Blit(ctx, m); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if surface.flushes != 2 {
		t.Errorf("expected draws to stop after frame 2, got %d", surface.flushes)
	}
}

func TestClear(t *testing.T) {
	surface := newFakeSurface(4, 4, xrgb8888)
	surface.fill(0xaa)
	screen := NewScreen(surface)

	if err := screen.Clear(pixel.Color{R: 1, G: 2, B: 3, A: 0xff}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if surface.flushes != 1 {
		t.Errorf("expected 1 flush, got %d", surface.flushes)
	}

	want := xrgb8888.EncodeRGB(1, 2, 3) | xrgb8888.EncodeAlpha(0xff)
	for i := 0; i < 16; i++ {
		if v := xrgb8888.Read(surface.pix[i*4:]); v != want {
			t.Fatalf("expected pixel %d to be %#08x, got %#08x", i, want, v)
		}
	}
}

// A fully transparent color makes Clear a no-op, flush included.
func TestClearTransparent(t *testing.T) {
	surface := newFakeSurface(4, 4, xrgb8888)
	surface.fill(0xaa)
	screen := NewScreen(surface)

	if err := screen.Clear(pixel.Color{R: 0xff, G: 0xff, B: 0xff}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if surface.flushes != 0 {
		t.Errorf("expected no flush, got %d", surface.flushes)
	}
	for i, b := range surface.pix {
		if b != 0xaa {
			t.Fatalf("expected no writes, byte %d changed", i)
		}
	}
}

// A translucent color self-blends against the current contents.
func TestClearPartial(t *testing.T) {
	surface := newFakeSurface(1, 1, xrgb8888)
	screen := NewScreen(surface)

	xrgb8888.Write(surface.pix, xrgb8888.EncodeRGB(200, 0, 0)|xrgb8888.EncodeAlpha(0xff))

	if err := screen.Clear(pixel.Color{B: 100, A: 128}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var (
		fg = float32(128) / 255
		bg = 1 - fg

		wantR = uint8(float32(0)*fg + float32(200)*bg)
		wantB = uint8(float32(100)*fg + float32(0)*bg)
	)
	r, g, b := xrgb8888.DecodeRGB(xrgb8888.Read(surface.pix))
	if r != wantR || g != 0 || b != wantB {
		t.Errorf("expected blended (%d, 0, %d), got (%d, %d, %d)", wantR, wantB, r, g, b)
	}
}

func TestClearViewport(t *testing.T) {
	surface := newFakeSurface(8, 8, xrgb8888)
	surface.fill(0xaa)

	screen := NewScreen(surface)
	screen.View = geom.Viewport{W: 2, H: 2}

	if err := screen.Clear(pixel.Color{A: 0xff}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := image.Rect(0, 0, 2, 2)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			di := (y*8 + x) * 4
			touched := !bytes.Equal(surface.pix[di:di+4], []byte{0xaa, 0xaa, 0xaa, 0xaa})
			if touched != image.Pt(x, y).In(want) {
				t.Errorf("unexpected state at (%d, %d)", x, y)
			}
		}
	}
}

func TestScreenDump(t *testing.T) {
	screen := NewScreen(newFakeSurface(2, 2, xrgb8888))
	if s := screen.Dump(); s == "" {
		t.Error("expected non-empty dump")
	}
}
