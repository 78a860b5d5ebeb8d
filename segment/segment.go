package segment

import (
	"fmt"

	"github.com/synthread/go-flashimage/checksum"
	"golang.org/x/exp/slices"
)

// Descriptor describes one address window within a flash image together with
// the bytes that go into it
type Descriptor struct {
	Name         string
	Offset       int
	ReservedSize int
	Source       []byte
	Policy       checksum.Policy
}

// End returns the first address past the reserved window
func (d Descriptor) End() int {
	return d.Offset + d.ReservedSize
}

// Used returns the number of bytes the segment occupies at the start of its
// window: the source plus the checksum byte, if any
func (d Descriptor) Used() int {
	return len(d.Source) + d.Policy.Footprint()
}

// ConfigError reports a segment window that is out of bounds, overlaps
// another window, or is otherwise malformed
type ConfigError struct {
	Segment string
	Other   string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Other != "" {
		return fmt.Sprintf("segment %s: %s (conflicts with %s)", e.Segment, e.Reason, e.Other)
	}
	return fmt.Sprintf("segment %s: %s", e.Segment, e.Reason)
}

// SegmentTooLargeError reports a source that, together with its checksum
// byte, does not fit the reserved window. Nothing is written when it is
// returned.
type SegmentTooLargeError struct {
	Segment  string
	Size     int
	Checksum int
	Reserved int
}

func (e *SegmentTooLargeError) Error() string {
	return fmt.Sprintf("segment %s too large: %d bytes + %d checksum bytes, window is %d bytes",
		e.Segment, e.Size, e.Checksum, e.Reserved)
}

// CheckFits returns a *SegmentTooLargeError if the descriptor's source and
// checksum byte overflow its window
func CheckFits(d Descriptor) error {
	if d.Used() > d.ReservedSize {
		return &SegmentTooLargeError{
			Segment:  d.Name,
			Size:     len(d.Source),
			Checksum: d.Policy.Footprint(),
			Reserved: d.ReservedSize,
		}
	}
	return nil
}

// InBounds reports whether the window [offset, offset+size) lies within
// [0, total). The sum is never formed, so huge offsets cannot wrap around.
func InBounds(offset, size, total int) bool {
	return offset >= 0 && size >= 0 && size <= total && offset <= total-size
}

// span is the part of a window that the overlap and bounds checks care about
type span struct {
	name   string
	offset int
	size   int
}

// checkSpans validates bounds, naming and pairwise disjointness of a set of
// windows against an image of the given size
func checkSpans(imageSize int, spans []span) error {
	if imageSize <= 0 {
		return &ConfigError{Segment: "<image>", Reason: fmt.Sprintf("invalid image size 0x%x", imageSize)}
	}

	seen := map[string]bool{}
	for _, s := range spans {
		if s.name == "" {
			return &ConfigError{Segment: "<unnamed>", Reason: fmt.Sprintf("window at 0x%05x has no name", s.offset)}
		}
		if seen[s.name] {
			return &ConfigError{Segment: s.name, Reason: "duplicate segment name"}
		}
		seen[s.name] = true

		if s.offset < 0 || s.size <= 0 {
			return &ConfigError{Segment: s.name, Reason: fmt.Sprintf("invalid window offset 0x%x size 0x%x", s.offset, s.size)}
		}
		if !InBounds(s.offset, s.size, imageSize) {
			return &ConfigError{
				Segment: s.name,
				Reason:  fmt.Sprintf("window at 0x%05x size 0x%x exceeds image size 0x%05x", s.offset, s.size, imageSize),
			}
		}
	}

	// sort a copy by offset so only neighbours need comparing
	sorted := slices.Clone(spans)
	slices.SortStableFunc(sorted, func(a, b span) int { return a.offset - b.offset })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.offset+prev.size > cur.offset {
			return &ConfigError{
				Segment: cur.name,
				Other:   prev.name,
				Reason:  fmt.Sprintf("window at 0x%05x overlaps window ending at 0x%05x", cur.offset, prev.offset+prev.size),
			}
		}
	}

	return nil
}
