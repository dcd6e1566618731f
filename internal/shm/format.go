// Package shm implements the shared-memory pixel pool that client buffers
// are copied into before they are forwarded to the host connection.
package shm

import (
	"errors"
	"fmt"
)

var (
	ErrShortBuffer       = errors.New("buffer contents shorter than described")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
)

// Format is a wl_shm pixel format code.
type Format uint32

const (
	FormatARGB8888 Format = 0
	FormatXRGB8888 Format = 1
)

func (f Format) String() string {
	switch f {
	case FormatARGB8888:
		return "argb8888"
	case FormatXRGB8888:
		return "xrgb8888"
	default:
		return fmt.Sprintf("format(%#x)", uint32(f))
	}
}

// BytesPerPixel returns the pixel size, or 0 for unsupported formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatARGB8888, FormatXRGB8888:
		return 4
	default:
		return 0
	}
}

// Spec describes the layout of pixel data inside a buffer.
type Spec struct {
	Offset int32  `json:"offset"`
	Width  int32  `json:"width"`
	Height int32  `json:"height"`
	Stride int32  `json:"stride"`
	Format Format `json:"format"`
}

// Len is the number of bytes covered by the described pixels.
func (s Spec) Len() int {
	return int(s.Stride) * int(s.Height)
}

// Validate checks s against a backing store of n bytes.
func (s Spec) Validate(n int) error {
	bpp := s.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, s.Format)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid buffer size %dx%d", s.Width, s.Height)
	}
	if int(s.Stride) < int(s.Width)*bpp {
		return fmt.Errorf("stride %d too small for width %d", s.Stride, s.Width)
	}
	if s.Offset < 0 || int(s.Offset)+s.Len() > n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, s.Len(), s.Offset, n)
	}
	return nil
}

// Buffer is a region of a Pool holding one surface's pixels. A Buffer with
// no pool is detached and only carries its Spec.
type Buffer struct {
	Spec Spec

	pool     *Pool
	off      int
	released bool
}

// Offset returns the position of the pixels inside the pool.
func (b *Buffer) Offset() int {
	return b.off
}

// Bytes returns the pixels. It is nil for detached or released buffers.
func (b *Buffer) Bytes() []byte {
	if b == nil || b.pool == nil || b.released {
		return nil
	}
	return b.pool.mmap[b.off : b.off+b.Spec.Len()]
}

// Release returns the buffer's region to its pool. Calling it more than once
// is harmless.
func (b *Buffer) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	if b.pool != nil {
		b.pool.free(b.off, b.Spec.Len())
	}
}
