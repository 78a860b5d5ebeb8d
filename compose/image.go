package compose

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/synthread/go-flashimage/checksum"
	"github.com/synthread/go-flashimage/segment"
)

// Image is a fixed-size, zero-initialized flash image that segments are
// written into
type Image struct {
	buf []byte
}

// Allocate will create an image of size bytes, all zero
func Allocate(size int) *Image {
	return &Image{buf: make([]byte, size)}
}

// Size returns the length of the image in bytes
func (img *Image) Size() int {
	return len(img.buf)
}

// Bytes returns the image contents. The caller must treat them as read-only
// once the image is handed off for serialization.
func (img *Image) Bytes() []byte {
	return img.buf
}

// WriteSegment will copy the descriptor's source to the start of its window
// and, if the policy asks for one, place the checksum byte directly after it.
// The rest of the window is left as it is. Nothing is modified when an error
// is returned.
func (img *Image) WriteSegment(d segment.Descriptor) error {
	if err := segment.CheckFits(d); err != nil {
		return err
	}
	if d.ReservedSize <= 0 || !segment.InBounds(d.Offset, d.ReservedSize, len(img.buf)) {
		return &segment.ConfigError{
			Segment: d.Name,
			Reason:  fmt.Sprintf("window at 0x%05x size 0x%x is outside image of 0x%05x bytes", d.Offset, d.ReservedSize, len(img.buf)),
		}
	}

	n := copy(img.buf[d.Offset:], d.Source)

	if d.Policy != checksum.None {
		img.buf[d.Offset+n] = checksum.Compute(d.Source, d.Policy)
	}

	logrus.WithFields(logrus.Fields{
		"segment": d.Name,
		"policy":  d.Policy,
	}).Debugf("wrote %d bytes @ %05x [window %x]", n, d.Offset, d.ReservedSize)

	return nil
}

// WriteAll will write every segment of the registry in registry order,
// stopping at the first failure
func (img *Image) WriteAll(r *segment.Registry) error {
	if r.ImageSize() != len(img.buf) {
		return &segment.ConfigError{
			Segment: "<image>",
			Reason:  fmt.Sprintf("registry is for 0x%x bytes, image has 0x%x", r.ImageSize(), len(img.buf)),
		}
	}

	for _, d := range r.Descriptors() {
		if err := img.WriteSegment(d); err != nil {
			return err
		}
	}

	return nil
}

// Window returns the bytes of a window of the image
func (img *Image) Window(offset, size int) []byte {
	return img.buf[offset : offset+size]
}
