// Package config loads image layouts from YAML files.
//
// A layout file names the image size and every segment window:
//
//	version: 2
//	size: 0x40000
//	segments:
//	  - name: bootloader_1
//	    offset: 0x0
//	    size: 0x3000
//	    checksum: complement
//	    source: bootloader/bootloader_1.bin
//
// Relative source paths are resolved against the directory of the file.
package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/synthread/go-flashimage/checksum"
	"github.com/synthread/go-flashimage/segment"
	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a layout
type File struct {
	Version  int       `yaml:"version"`
	Size     int       `yaml:"size"`
	Segments []Segment `yaml:"segments"`
}

// Segment is one window of a layout file
type Segment struct {
	Name     string          `yaml:"name"`
	Offset   int             `yaml:"offset"`
	Size     int             `yaml:"size"`
	Checksum checksum.Policy `yaml:"checksum"`
	Source   string          `yaml:"source,omitempty"`
}

// Parse will decode a layout file. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "could not parse layout")
	}
	if len(f.Segments) == 0 {
		return nil, errors.New("layout has no segments")
	}
	return &f, nil
}

// Load will read and parse the layout file at path and return the layout it
// describes, validated
func Load(path string) (segment.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return segment.Layout{}, errors.Wrap(err, "could not read layout")
	}

	f, err := Parse(data)
	if err != nil {
		return segment.Layout{}, errors.Wrap(err, path)
	}

	l := f.Layout(filepath.Dir(path))
	if err := l.Validate(); err != nil {
		return segment.Layout{}, errors.Wrap(err, path)
	}

	return l, nil
}

// Layout converts the file to a layout. Relative sources are joined to base.
// A zero size means the default image size.
func (f *File) Layout(base string) segment.Layout {
	l := segment.Layout{
		Version: f.Version,
		Size:    f.Size,
	}
	if l.Size == 0 {
		l.Size = segment.DefaultImageSize
	}

	for _, s := range f.Segments {
		src := s.Source
		if src != "" && !filepath.IsAbs(src) && base != "" {
			src = filepath.Join(base, src)
		}
		l.Windows = append(l.Windows, segment.Window{
			Name:         s.Name,
			Offset:       s.Offset,
			ReservedSize: s.Size,
			Policy:       s.Checksum,
			Source:       src,
		})
	}

	return l
}

// FromLayout is the inverse of Layout, used to dump the built-in table
func FromLayout(l segment.Layout) *File {
	f := &File{Version: l.Version, Size: l.Size}
	for _, w := range l.Windows {
		f.Segments = append(f.Segments, Segment{
			Name:     w.Name,
			Offset:   w.Offset,
			Size:     w.ReservedSize,
			Checksum: w.Policy,
			Source:   w.Source,
		})
	}
	return f
}

// Marshal encodes the file as YAML
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
