// Package framebuffer provides a display surface backed by a Linux
// framebuffer device (fbdev).
//
// The device memory is mapped once at [Open] and that mapping is the pixel
// buffer: writes land on the screen immediately, so Flush is a no-op. The
// pixel format is read live from the device's per-channel bit-fields.
package framebuffer
