// Package pixel implements the bit-field pixel codec used by the display
// backends.
//
// A [Format] describes where each color channel lives inside an encoded
// pixel and converts linear 8-bit RGBA values to and from that layout at
// arbitrary bit depths.
package pixel
