// Package drm provides a display surface backed by a DRM/KMS dumb buffer.
//
// A dumb buffer is a driver-allocated, CPU-mappable, non-accelerated pixel
// buffer. The backend picks the first connected connector, its preferred
// (or largest) mode, allocates a buffer for that mode and registers it as a
// framebuffer. Flush briefly takes display-master privilege to point the
// CRTC at the buffer, then drops it again so other processes can interleave
// between flushes.
//
// The pixel format is a package constant (XRGB8888): it is a property of
// how the dumb buffer is allocated, not something the device reports.
package drm
