package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"time"
)

// ErrBadMagic indicates a file that is not an Xcursor file.
var ErrBadMagic = errors.New("bad magic")

const (
	fileMagic     = 0x72756358 // ASCII "Xcur"
	imageType     = 0xfffd0002
	imageHeaderSz = 36
	maxImageSide  = 0x7fff
)

type fileToc struct {
	Type     uint32
	Subtype  uint32
	Position uint32
}

// Image is one frame of a cursor.
type Image struct {
	NominalSize int
	Width       int
	Height      int
	Hotspot     image.Point
	Delay       time.Duration
	// Pixels holds premultiplied ARGB8888 in little-endian order.
	Pixels []byte
}

// Decode reads the frames of the nominal size closest to size.
func Decode(r io.ReadSeeker, size int) ([]*Image, error) {
	tocs, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	best := -1
	for _, toc := range tocs {
		if toc.Type != imageType {
			continue
		}
		if best < 0 || distance(int(toc.Subtype), size) < distance(best, size) {
			best = int(toc.Subtype)
		}
	}
	if best < 0 {
		return nil, errors.New("no images")
	}

	var images []*Image
	for _, toc := range tocs {
		if toc.Type != imageType || int(toc.Subtype) != best {
			continue
		}
		img, err := readImage(r, toc)
		if err != nil {
			return nil, fmt.Errorf("read image at %d: %w", toc.Position, err)
		}
		images = append(images, img)
	}
	return images, nil
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func readHeader(r io.ReadSeeker) ([]fileToc, error) {
	var hdr struct {
		Magic   uint32
		Header  uint32
		Version uint32
		NToc    uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if hdr.Magic != fileMagic {
		return nil, ErrBadMagic
	}
	if hdr.NToc > 0x10000 {
		return nil, fmt.Errorf("too many toc entries: %d", hdr.NToc)
	}
	if _, err := r.Seek(int64(hdr.Header), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek past header: %w", err)
	}

	tocs := make([]fileToc, hdr.NToc)
	if err := binary.Read(r, binary.LittleEndian, tocs); err != nil {
		return nil, fmt.Errorf("read toc: %w", err)
	}
	return tocs, nil
}

func readImage(r io.ReadSeeker, toc fileToc) (*Image, error) {
	if _, err := r.Seek(int64(toc.Position), io.SeekStart); err != nil {
		return nil, err
	}
	var hdr struct {
		Header  uint32
		Type    uint32
		Subtype uint32
		Version uint32
		Width   uint32
		Height  uint32
		XHot    uint32
		YHot    uint32
		Delay   uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Type != imageType || hdr.Header != imageHeaderSz {
		return nil, fmt.Errorf("unexpected chunk type %#x", hdr.Type)
	}
	if hdr.Width == 0 || hdr.Height == 0 || hdr.Width > maxImageSide || hdr.Height > maxImageSide {
		return nil, fmt.Errorf("invalid image size %dx%d", hdr.Width, hdr.Height)
	}
	if hdr.XHot > hdr.Width || hdr.YHot > hdr.Height {
		return nil, fmt.Errorf("hotspot %d,%d outside %dx%d image", hdr.XHot, hdr.YHot, hdr.Width, hdr.Height)
	}

	pixels := make([]byte, int(hdr.Width)*int(hdr.Height)*4)
	if _, err := io.ReadFull(r, pixels); err != nil {
		return nil, fmt.Errorf("read pixels: %w", err)
	}
	return &Image{
		NominalSize: int(hdr.Subtype),
		Width:       int(hdr.Width),
		Height:      int(hdr.Height),
		Hotspot:     image.Pt(int(hdr.XHot), int(hdr.YHot)),
		Delay:       time.Duration(hdr.Delay) * time.Millisecond,
		Pixels:      pixels,
	}, nil
}
