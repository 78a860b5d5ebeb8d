package checksum

import (
	"strings"

	"github.com/pkg/errors"
)

// Policy selects how the integrity byte of a segment is computed
type Policy int

const (
	// None stores no checksum byte
	None Policy = iota
	// AdditiveMod256 stores sum(data) mod 256. It is a plain diagnostic value
	// with no self-verification property.
	AdditiveMod256
	// ComplementMod256 stores the byte that makes data plus checksum sum to
	// zero mod 256, so a verifier only has to check the window sum.
	ComplementMod256
)

var ErrUnknownPolicy = errors.New("unknown checksum policy")

var policyNames = map[Policy]string{
	None:             "none",
	AdditiveMod256:   "additive",
	ComplementMod256: "complement",
}

func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return "unknown"
}

// Footprint is the number of bytes the policy adds after the data
func (p Policy) Footprint() int {
	if p == None {
		return 0
	}
	return 1
}

// ParsePolicy will convert the textual form used in layout files and flags
// into a Policy
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return None, errors.Wrapf(ErrUnknownPolicy, "%q", s)
}

// MarshalText implements encoding.TextMarshaler
func (p Policy) MarshalText() ([]byte, error) {
	if _, ok := policyNames[p]; !ok {
		return nil, ErrUnknownPolicy
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Sum will return the sum of all bytes modulo 256
func Sum(bs []byte) byte {
	var s byte
	for _, b := range bs {
		s += b
	}
	return s
}

// Compute will return the checksum byte for the data under the given policy.
// None always yields zero.
func Compute(bs []byte, p Policy) byte {
	switch p {
	case AdditiveMod256:
		return Sum(bs)
	case ComplementMod256:
		return -Sum(bs)
	}
	return 0
}

// Verify reports whether a checksum window (data followed by its complement
// byte, padding included) sums to zero, which is all the boot-time verifier
// checks
func Verify(window []byte) bool {
	return Sum(window) == 0
}
