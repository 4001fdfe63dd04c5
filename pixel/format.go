package pixel

import "fmt"

// Channel describes the bit-field layout of a single color or alpha
// component inside an encoded pixel.
type Channel struct {
	// Length of the bit-field.
	Length uint32

	// Offset of the bit-field from the least significant bit.
	Offset uint32

	// Mask is (1 << Length) - 1.
	Mask uint64
}

// NewChannel returns a channel with its mask derived from the length.
// A zero-length channel has a zero mask and is considered unused.
func NewChannel(length, offset uint32) Channel {
	return Channel{
		Length: length,
		Offset: offset,
		Mask:   1<<length - 1,
	}
}

// Used reports whether the channel contributes to the format.
func (c Channel) Used() bool {
	return c.Mask != 0
}

// Encode maps an 8-bit value onto the channel's bit-field.
//
// At channel depths below 8 bits this mapping is lossy; Encode and Decode
// do not round-trip exactly by design.
func (c Channel) Encode(value uint8) uint64 {
	mapped := uint64(value) * c.Mask / 255
	return (mapped & c.Mask) << c.Offset
}

// Decode extracts the channel's 8-bit value from an encoded pixel.
// Unused channels decode to 0.
func (c Channel) Decode(pixel uint64) uint8 {
	if c.Mask == 0 {
		return 0
	}
	field := (pixel >> c.Offset) & c.Mask
	return uint8(field * 255 / c.Mask)
}

func (c Channel) describe(name string) string {
	return fmt.Sprintf("%s=%02x@%d", name, c.Mask, c.Offset)
}

// Format describes the data layout of a single pixel and converts 8-bit
// RGBA values to and from that layout.
type Format struct {
	// Bits per pixel, always a multiple of 8.
	Bits uint32

	R, G, B, A Channel
}

// Bytes returns how many bytes a single pixel takes in this format.
func (f Format) Bytes() int {
	return int(f.Bits / 8)
}

// Stride returns the byte width used when reading and writing encoded
// pixels, capped at 8 so a pixel always fits a uint64.
func (f Format) Stride() int {
	if n := f.Bytes(); n < 8 {
		return n
	}
	return 8
}

// Pseudocolor reports whether all three color channels are used.
func (f Format) Pseudocolor() bool {
	return f.R.Used() && f.G.Used() && f.B.Used()
}

// Color reports whether the format stores true color: all three color
// channels used and placed at pairwise distinct offsets. Grayscale and
// palette formats fail this test.
func (f Format) Color() bool {
	return f.Pseudocolor() &&
		f.R.Offset != f.G.Offset &&
		f.G.Offset != f.B.Offset &&
		f.R.Offset != f.B.Offset
}

// EncodeRGB encodes three 8-bit color values into a single pixel.
func (f Format) EncodeRGB(r, g, b uint8) uint64 {
	return f.R.Encode(r) | f.G.Encode(g) | f.B.Encode(b)
}

// DecodeRGB extracts the stored 8-bit color values from an encoded pixel.
func (f Format) DecodeRGB(pixel uint64) (r, g, b uint8) {
	return f.R.Decode(pixel), f.G.Decode(pixel), f.B.Decode(pixel)
}

// EncodeAlpha encodes an 8-bit alpha value into a single pixel.
func (f Format) EncodeAlpha(alpha uint8) uint64 {
	return f.A.Encode(alpha)
}

// Read decodes the little-endian pixel starting at buf[0].
func (f Format) Read(buf []byte) uint64 {
	var pixel uint64
	for i := 0; i < f.Stride(); i++ {
		pixel |= uint64(buf[i]) << (8 * i)
	}
	return pixel
}

// Write stores the pixel little-endian into buf, exactly Stride bytes.
func (f Format) Write(buf []byte, pixel uint64) {
	for i := 0; i < f.Stride(); i++ {
		buf[i] = byte(pixel >> (8 * i))
	}
}

func (f Format) String() string {
	return f.R.describe("red") + " " +
		f.G.describe("green") + " " +
		f.B.describe("blue") + " " +
		f.A.describe("alpha")
}
