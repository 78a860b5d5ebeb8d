// Package redundancy models what the device does with the redundant copies in
// a flash image: the bootloader startup code accepts the first bootloader copy
// whose window sums to zero, and the bootloader rebuilds the application by a
// bitwise two-out-of-three vote over the application copies.
//
// Nothing here runs as part of a build; it backs the verify command and the
// fault injection tests.
package redundancy

import (
	"github.com/pkg/errors"
	"github.com/synthread/go-flashimage/checksum"
	"github.com/synthread/go-flashimage/segment"
)

var ErrNoValidCopy = errors.New("no copy passed its checksum")
var ErrLengthMismatch = errors.New("copies differ in length")

// SelectCopy returns the index of the first window of img that sums to zero
func SelectCopy(img []byte, windows []segment.Window) (int, error) {
	for i, w := range windows {
		if !segment.InBounds(w.Offset, w.ReservedSize, len(img)) {
			return -1, errors.Errorf("window %s lies outside image", w.Name)
		}
		if checksum.Verify(img[w.Offset:w.End()]) {
			return i, nil
		}
	}
	return -1, ErrNoValidCopy
}

// MajorityVote returns the bitwise majority of three equally long copies
func MajorityVote(a, b, c []byte) ([]byte, error) {
	if len(a) != len(b) || len(b) != len(c) {
		return nil, ErrLengthMismatch
	}

	out := make([]byte, len(a))
	for i := range a {
		out[i] = (a[i] & b[i]) | (b[i] & c[i]) | (c[i] & a[i])
	}
	return out, nil
}
