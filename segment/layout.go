package segment

import (
	"fmt"
	"strings"

	"github.com/synthread/go-flashimage/checksum"
)

const (
	// DefaultImageSize is the size of the composed flash image
	DefaultImageSize = 0x40000

	// DefaultLayoutVersion identifies the address map below. Any change to an
	// offset, a window size or a checksum policy must bump it, since the
	// device-side verifier hardcodes the same table.
	DefaultLayoutVersion = 2

	bootloaderWindow  = 0x3000
	applicationWindow = 0x10000
)

// Window is a layout entry: a named address window bound to the path of the
// artifact that will fill it
type Window struct {
	Name         string
	Offset       int
	ReservedSize int
	Policy       checksum.Policy
	Source       string
}

// End returns the first address past the window
func (w Window) End() int {
	return w.Offset + w.ReservedSize
}

// Descriptor attaches the artifact bytes to the window
func (w Window) Descriptor(src []byte) Descriptor {
	return Descriptor{
		Name:         w.Name,
		Offset:       w.Offset,
		ReservedSize: w.ReservedSize,
		Source:       src,
		Policy:       w.Policy,
	}
}

// Layout is the full address map of an image
type Layout struct {
	Version int
	Size    int
	Windows []Window
}

// DefaultLayout returns the address map of the triple-redundant image: three
// self-verifying bootloader copies followed by three application copies
func DefaultLayout() Layout {
	l := Layout{
		Version: DefaultLayoutVersion,
		Size:    DefaultImageSize,
	}
	for i := 0; i < 3; i++ {
		l.Windows = append(l.Windows, Window{
			Name:         fmt.Sprintf("bootloader_%d", i+1),
			Offset:       i * bootloaderWindow,
			ReservedSize: bootloaderWindow,
			Policy:       checksum.ComplementMod256,
			Source:       fmt.Sprintf("bootloader/bootloader_%d.bin", i+1),
		})
	}
	for i := 0; i < 3; i++ {
		l.Windows = append(l.Windows, Window{
			Name:         fmt.Sprintf("application_%d", i+1),
			Offset:       (i + 1) * applicationWindow,
			ReservedSize: applicationWindow,
			Policy:       checksum.None,
			Source:       "src/PVDXos.bin",
		})
	}
	return l
}

// Validate checks that the windows are well formed, in bounds and disjoint.
// It does not look at the artifacts.
func (l Layout) Validate() error {
	spans := make([]span, len(l.Windows))
	for i, w := range l.Windows {
		spans[i] = span{name: w.Name, offset: w.Offset, size: w.ReservedSize}
	}
	return checkSpans(l.Size, spans)
}

// Window returns the window with the given name
func (l Layout) Window(name string) (Window, bool) {
	for _, w := range l.Windows {
		if w.Name == name {
			return w, true
		}
	}
	return Window{}, false
}

// Group returns the windows whose name is prefix followed by "_<n>", in
// layout order. Redundant copies are grouped this way.
func (l Layout) Group(prefix string) []Window {
	var out []Window
	for _, w := range l.Windows {
		if strings.HasPrefix(w.Name, prefix+"_") {
			out = append(out, w)
		}
	}
	return out
}

// Bind returns a copy of the layout with the source of the named window
// replaced. Unknown names are a ConfigError.
func (l Layout) Bind(name, path string) (Layout, error) {
	out := l
	out.Windows = make([]Window, len(l.Windows))
	copy(out.Windows, l.Windows)

	for i := range out.Windows {
		if out.Windows[i].Name == name {
			out.Windows[i].Source = path
			return out, nil
		}
	}
	return l, &ConfigError{Segment: name, Reason: "no such segment in layout"}
}
