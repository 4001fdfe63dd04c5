// Package ioctl encodes and performs ioctl system calls.
package ioctl

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Direction of the data transfer encoded in a command.
type Direction uintptr

// Directions, from <asm-generic/ioctl.h>.
const (
	None  Direction = 0
	Write Direction = 1
	Read  Direction = 2
)

// Command is an encoded ioctl request number.
type Command uintptr

// Encode builds a command using the _IOC(dir, type, nr, size) layout.
func Encode(dir Direction, typ, nr, size uintptr) Command {
	return Command(uintptr(dir)<<30 | size<<16 | typ<<8 | nr)
}

// IO encodes a command without a data transfer.
func IO(typ, nr uintptr) Command {
	return Encode(None, typ, nr, 0)
}

// IOR encodes a read command.
func IOR(typ, nr, size uintptr) Command {
	return Encode(Read, typ, nr, size)
}

// IOW encodes a write command.
func IOW(typ, nr, size uintptr) Command {
	return Encode(Write, typ, nr, size)
}

// IOWR encodes a bidirectional command.
func IOWR(typ, nr, size uintptr) Command {
	return Encode(Read|Write, typ, nr, size)
}

func (c Command) String() string {
	var (
		dir  = Direction(c >> 30 & 0x3)
		size = c >> 16 & 0x3fff
		typ  = c >> 8 & 0xff
		nr   = c & 0xff
		str  string
	)
	if dir&Write != 0 {
		str += " write"
	}
	if dir&Read != 0 {
		str += " read"
	}
	return fmt.Sprintf("ioctl%s (%d bytes) %#02x/%#02x", str, size, uintptr(typ), uintptr(nr))
}

// Do executes the ioctl call with a pointer argument, which may be nil.
func Do(fd uintptr, command Command, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(command), uintptr(arg)); errno != 0 {
		return fmt.Errorf("ioctl %s failed: %w", command, errno)
	}
	return nil
}
