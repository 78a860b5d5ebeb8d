package segment

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/synthread/go-flashimage/checksum"
)

func desc(name string, offset, size, srcLen int, p checksum.Policy) Descriptor {
	return Descriptor{Name: name, Offset: offset, ReservedSize: size, Source: make([]byte, srcLen), Policy: p}
}

func TestNewRegistryAcceptsDisjointWindows(t *testing.T) {
	descs := []Descriptor{
		desc("b", 0x100, 0x100, 0x10, checksum.ComplementMod256),
		desc("a", 0x000, 0x100, 0xff, checksum.ComplementMod256),
		desc("c", 0x200, 0x200, 0x200, checksum.None),
	}

	r, err := NewRegistry(0x400, descs)
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())
	require.Equal(t, 0x400, r.ImageSize())

	// registry order is preserved, not sorted
	got := r.Descriptors()
	require.Equal(t, "b", got[0].Name)
	require.Equal(t, "a", got[1].Name)
	require.Equal(t, "c", got[2].Name)
}

func TestNewRegistryCopiesInput(t *testing.T) {
	descs := []Descriptor{desc("a", 0, 0x10, 4, checksum.None)}
	r, err := NewRegistry(0x10, descs)
	require.NoError(t, err)

	descs[0].Name = "changed"
	descs[0].Source[0] = 0xaa

	d, ok := r.Lookup("a")
	require.True(t, ok)
	require.Equal(t, byte(0), d.Source[0])
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		descs   []Descriptor
		segment string
	}{
		{
			name:    "overlap",
			size:    0x1000,
			descs:   []Descriptor{desc("a", 0x0, 0x200, 1, checksum.None), desc("b", 0x1ff, 0x100, 1, checksum.None)},
			segment: "b",
		},
		{
			name:    "contained",
			size:    0x1000,
			descs:   []Descriptor{desc("outer", 0x0, 0x800, 1, checksum.None), desc("inner", 0x100, 0x10, 1, checksum.None)},
			segment: "inner",
		},
		{
			name:    "identical",
			size:    0x1000,
			descs:   []Descriptor{desc("a", 0x100, 0x100, 1, checksum.None), desc("b", 0x100, 0x100, 1, checksum.None)},
			segment: "b",
		},
		{
			name:    "past end",
			size:    0x1000,
			descs:   []Descriptor{desc("a", 0xf00, 0x101, 1, checksum.None)},
			segment: "a",
		},
		{
			name:    "negative offset",
			size:    0x1000,
			descs:   []Descriptor{desc("a", -1, 0x10, 1, checksum.None)},
			segment: "a",
		},
		{
			name:    "empty window",
			size:    0x1000,
			descs:   []Descriptor{desc("a", 0x10, 0, 0, checksum.None)},
			segment: "a",
		},
		{
			name:    "offset near max int",
			size:    0x1000,
			descs:   []Descriptor{desc("a", math.MaxInt, 1, 0, checksum.None)},
			segment: "a",
		},
		{
			name:    "size near max int",
			size:    0x1000,
			descs:   []Descriptor{desc("a", 0x10, math.MaxInt-0x8, 0, checksum.None)},
			segment: "a",
		},
		{
			name:    "duplicate name",
			size:    0x1000,
			descs:   []Descriptor{desc("a", 0x0, 0x10, 1, checksum.None), desc("a", 0x10, 0x10, 1, checksum.None)},
			segment: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.size, tt.descs)
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			require.Equal(t, tt.segment, cerr.Segment)

			_, err = NewRegistry(tt.size, tt.descs)
			require.Error(t, err)
		})
	}
}

func TestValidateAdjacentWindows(t *testing.T) {
	descs := []Descriptor{
		desc("a", 0x0, 0x100, 0, checksum.None),
		desc("b", 0x100, 0x100, 0, checksum.None),
		desc("c", 0x200, 0x100, 0, checksum.None),
	}
	require.NoError(t, Validate(0x300, descs))
}

func TestValidateSourceBoundary(t *testing.T) {
	ok := desc("bl", 0, 0x3000, 0x2fff, checksum.ComplementMod256)
	require.NoError(t, Validate(0x3000, []Descriptor{ok}))

	tooBig := desc("bl", 0, 0x3000, 0x3000, checksum.ComplementMod256)
	err := Validate(0x3000, []Descriptor{tooBig})
	var terr *SegmentTooLargeError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, "bl", terr.Segment)
	require.Equal(t, 0x3000, terr.Size)
	require.Equal(t, 0x3000, terr.Reserved)
	require.Contains(t, err.Error(), "bl")

	// an unchecksummed window can be filled completely
	full := desc("app", 0, 0x3000, 0x3000, checksum.None)
	require.NoError(t, Validate(0x3000, []Descriptor{full}))
}

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Segment: "application_2", Other: "application_1", Reason: "overlap"}
	require.Equal(t, "segment application_2: overlap (conflicts with application_1)", err.Error())
}
