package compose

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/synthread/go-flashimage/segment"
)

// Build will read every artifact named by the layout, validate the resulting
// descriptors and compose them into a new image. The image is only returned
// once every segment has been written.
func Build(l segment.Layout) (*Image, *segment.Registry, error) {
	if err := l.Validate(); err != nil {
		return nil, nil, err
	}

	// artifacts shared between windows are read once
	cache := map[string][]byte{}

	descs := make([]segment.Descriptor, 0, len(l.Windows))
	for _, w := range l.Windows {
		src, ok := cache[w.Source]
		if !ok {
			var err error
			src, err = readArtifact(w.Source)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "segment %s", w.Name)
			}
			cache[w.Source] = src
		}
		descs = append(descs, w.Descriptor(src))
	}

	reg, err := segment.NewRegistry(l.Size, descs)
	if err != nil {
		return nil, nil, err
	}

	img := Allocate(l.Size)
	if err := img.WriteAll(reg); err != nil {
		return nil, nil, err
	}

	logrus.Debugf("composed %d segments into %x byte image", reg.Len(), img.Size())

	return img, reg, nil
}

// readArtifact reads a whole input file, closing it before returning
func readArtifact(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("no source file bound")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open artifact")
	}
	defer f.Close()

	bs, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read artifact %s", path)
	}

	logrus.Debugf("read %s [l=%d]", path, len(bs))

	return bs, nil
}
