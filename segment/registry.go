package segment

import (
	"golang.org/x/exp/slices"
)

// Registry is a validated, immutable table of segment descriptors for an
// image of a fixed size. Descriptors keep the order they were registered in.
type Registry struct {
	imageSize   int
	descriptors []Descriptor
}

// NewRegistry will validate the descriptors against an image of imageSize
// bytes and return a registry holding a private copy of them. Windows must be
// in bounds, pairwise disjoint and large enough for their source plus
// checksum byte.
func NewRegistry(imageSize int, descs []Descriptor) (*Registry, error) {
	if err := Validate(imageSize, descs); err != nil {
		return nil, err
	}

	own := make([]Descriptor, len(descs))
	for i, d := range descs {
		d.Source = slices.Clone(d.Source)
		own[i] = d
	}

	return &Registry{imageSize: imageSize, descriptors: own}, nil
}

// Validate checks the descriptors without building a registry. It never
// touches any image.
func Validate(imageSize int, descs []Descriptor) error {
	spans := make([]span, len(descs))
	for i, d := range descs {
		spans[i] = span{name: d.Name, offset: d.Offset, size: d.ReservedSize}
	}
	if err := checkSpans(imageSize, spans); err != nil {
		return err
	}

	for _, d := range descs {
		if err := CheckFits(d); err != nil {
			return err
		}
	}

	return nil
}

// ImageSize returns the size of the image the registry was validated for
func (r *Registry) ImageSize() int {
	return r.imageSize
}

// Len returns the number of registered segments
func (r *Registry) Len() int {
	return len(r.descriptors)
}

// Descriptors returns a copy of the registered descriptors in registry order.
// The source slices are shared and must not be modified.
func (r *Registry) Descriptors() []Descriptor {
	return slices.Clone(r.descriptors)
}

// Lookup returns the descriptor with the given name
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
