package redundancy

import (
	"github.com/pkg/errors"
	"github.com/synthread/go-flashimage/checksum"
	"github.com/synthread/go-flashimage/segment"
)

// SegmentStatus is the verifier's view of one window
type SegmentStatus struct {
	Window segment.Window
	// Checked is false for windows without a self-verifying checksum
	Checked bool
	Valid   bool
	Sum     byte
}

// Report summarizes an image against a layout
type Report struct {
	Segments []SegmentStatus

	// Bootloader is the index of the bootloader copy that would boot, or -1
	Bootloader int
	// BootloaderCopies is the number of bootloader windows in the layout
	BootloaderCopies int

	// VoteCorrections counts application bytes where the copies disagree and
	// the majority vote had to outvote one of them
	VoteCorrections int
	// VoteUnrecoverable counts application bytes where all three copies
	// differ. The bitwise vote still yields a value, which is only right if
	// no bit was hit in two copies.
	VoteUnrecoverable int
}

// Bootable reports whether at least one bootloader copy is intact. Layouts
// without bootloader copies are always bootable.
func (r *Report) Bootable() bool {
	return r.BootloaderCopies == 0 || r.Bootloader >= 0
}

// Inspect will check every checksummed window of the image, pick the
// bootloader copy the device would start and compare the application copies
func Inspect(img []byte, l segment.Layout) (*Report, error) {
	if len(img) != l.Size {
		return nil, errors.Errorf("image is %d bytes, layout expects %d", len(img), l.Size)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}

	r := &Report{Bootloader: -1}
	for _, w := range l.Windows {
		window := img[w.Offset:w.End()]
		st := SegmentStatus{Window: w, Sum: checksum.Sum(window)}
		if w.Policy == checksum.ComplementMod256 {
			st.Checked = true
			st.Valid = st.Sum == 0
		}
		r.Segments = append(r.Segments, st)
	}

	if bls := l.Group("bootloader"); len(bls) > 0 {
		r.BootloaderCopies = len(bls)
		idx, err := SelectCopy(img, bls)
		if err != nil && !errors.Is(err, ErrNoValidCopy) {
			return nil, err
		}
		r.Bootloader = idx
	}

	apps := l.Group("application")
	if len(apps) == 3 {
		a := img[apps[0].Offset:apps[0].End()]
		b := img[apps[1].Offset:apps[1].End()]
		c := img[apps[2].Offset:apps[2].End()]
		if len(a) != len(b) || len(b) != len(c) {
			return nil, ErrLengthMismatch
		}
		for i := range a {
			if a[i] == b[i] && b[i] == c[i] {
				continue
			}
			if a[i] == b[i] || b[i] == c[i] || a[i] == c[i] {
				r.VoteCorrections++
			} else {
				r.VoteUnrecoverable++
			}
		}
	}

	return r, nil
}
