//go:build linux

package shm

import (
	"fmt"
	"os"
	"sort"

	"golang.org/x/sys/unix"
)

// Mmap is a shared mapping of a pool file.
type Mmap []byte

// Map maps size bytes of file with the given protection.
func Map(file *os.File, size int, prot int) (mmap Mmap, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}

	cerr := sc.Control(func(fd uintptr) {
		m, merr := unix.Mmap(int(fd), 0, size, prot, unix.MAP_SHARED)
		mmap, err = Mmap(m), merr
	})
	if cerr != nil {
		return nil, cerr
	}
	return mmap, err
}

func (mmap Mmap) Unmap() error {
	return unix.Munmap(mmap)
}

type region struct {
	off  int
	size int
}

// Pool is a growable memfd-backed pixel store. The file descriptor is what
// gets shared with the host connection, so every installed buffer is
// addressed by its offset into the file.
//
// A Pool is owned by the event loop and is not safe for concurrent use.
type Pool struct {
	name  string
	file  *os.File
	mmap  Mmap
	used  int
	holes []region
}

// NewPool creates a pool with the given initial size in bytes.
func NewPool(name string, size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}

	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	file := os.NewFile(uintptr(fd), name)

	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		return nil, fmt.Errorf("truncate pool: %w", err)
	}
	mmap, err := Map(file, size, unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("map pool: %w", err)
	}

	return &Pool{name: name, file: file, mmap: mmap}, nil
}

// Fd returns the pool's file descriptor.
func (p *Pool) Fd() uintptr {
	return p.file.Fd()
}

// Size returns the current size of the pool in bytes.
func (p *Pool) Size() int {
	return len(p.mmap)
}

// Install copies the pixels described by spec out of data into the pool.
func (p *Pool) Install(spec Spec, data []byte) (*Buffer, error) {
	if err := spec.Validate(len(data)); err != nil {
		return nil, err
	}

	n := spec.Len()
	off, err := p.alloc(n)
	if err != nil {
		return nil, err
	}
	copy(p.mmap[off:off+n], data[int(spec.Offset):int(spec.Offset)+n])

	installed := spec
	installed.Offset = int32(off)
	return &Buffer{Spec: installed, pool: p, off: off}, nil
}

func (p *Pool) alloc(n int) (int, error) {
	for i, h := range p.holes {
		if h.size < n {
			continue
		}
		if h.size == n {
			p.holes = append(p.holes[:i], p.holes[i+1:]...)
		} else {
			p.holes[i] = region{off: h.off + n, size: h.size - n}
		}
		return h.off, nil
	}

	if p.used+n > len(p.mmap) {
		size := len(p.mmap) * 2
		if size < p.used+n {
			size = p.used + n
		}
		if err := p.grow(size); err != nil {
			return 0, err
		}
	}
	off := p.used
	p.used += n
	return off, nil
}

func (p *Pool) grow(size int) error {
	if err := p.file.Truncate(int64(size)); err != nil {
		return fmt.Errorf("grow pool to %d bytes: %w", size, err)
	}
	mmap, err := Map(p.file, size, unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return fmt.Errorf("remap pool: %w", err)
	}
	if err := p.mmap.Unmap(); err != nil {
		mmap.Unmap()
		return fmt.Errorf("unmap pool: %w", err)
	}
	p.mmap = mmap
	return nil
}

func (p *Pool) free(off, size int) {
	if off+size == p.used {
		p.used = off
		return
	}
	p.holes = append(p.holes, region{off: off, size: size})
	sort.Slice(p.holes, func(i, j int) bool { return p.holes[i].off < p.holes[j].off })

	merged := p.holes[:1]
	for _, h := range p.holes[1:] {
		last := &merged[len(merged)-1]
		if last.off+last.size == h.off {
			last.size += h.size
			continue
		}
		merged = append(merged, h)
	}
	p.holes = merged
}

// Close unmaps the pool and closes its file.
func (p *Pool) Close() error {
	if p.mmap != nil {
		if err := p.mmap.Unmap(); err != nil {
			return err
		}
		p.mmap = nil
	}
	return p.file.Close()
}
