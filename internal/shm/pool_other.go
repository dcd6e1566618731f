//go:build !linux

package shm

import "errors"

// Pool is unavailable without memfd support.
type Pool struct {
	mmap []byte
}

func NewPool(name string, size int) (*Pool, error) {
	return nil, errors.New("shm pools require linux")
}

func (p *Pool) Install(spec Spec, data []byte) (*Buffer, error) {
	return nil, errors.New("shm pools require linux")
}

func (p *Pool) Size() int { return 0 }

func (p *Pool) Close() error { return nil }

func (p *Pool) free(off, size int) {}
