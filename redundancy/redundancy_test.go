package redundancy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/synthread/go-flashimage/checksum"
	"github.com/synthread/go-flashimage/compose"
	"github.com/synthread/go-flashimage/fault"
	"github.com/synthread/go-flashimage/segment"
)

// composeDefault builds a default-layout image in memory
func composeDefault(t *testing.T, seed int64) ([]byte, segment.Layout) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	l := segment.DefaultLayout()

	app := make([]byte, 0x8000)
	rng.Read(app)

	var descs []segment.Descriptor
	for _, w := range l.Windows {
		src := app
		if w.Policy == checksum.ComplementMod256 {
			src = make([]byte, 0x2000+rng.Intn(0xfff))
			rng.Read(src)
		}
		descs = append(descs, w.Descriptor(src))
	}

	reg, err := segment.NewRegistry(l.Size, descs)
	require.NoError(t, err)
	img := compose.Allocate(l.Size)
	require.NoError(t, img.WriteAll(reg))

	return img.Bytes(), l
}

func TestSelectCopyIntact(t *testing.T) {
	img, l := composeDefault(t, 1)
	idx, err := SelectCopy(img, l.Group("bootloader"))
	require.NoError(t, err)
	require.Equal(t, 0, idx)
}

func TestSelectCopySkipsCorrupted(t *testing.T) {
	img, l := composeDefault(t, 2)
	bls := l.Group("bootloader")

	// one flipped bit in copy 1 always changes the window sum
	fault.FlipBits(img, []int{bls[0].Offset*8 + 1234})
	idx, err := SelectCopy(img, bls)
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	fault.FlipBits(img, []int{bls[1].Offset*8 + 7})
	idx, err = SelectCopy(img, bls)
	require.NoError(t, err)
	require.Equal(t, 2, idx)

	fault.FlipBits(img, []int{bls[2].End()*8 - 1})
	_, err = SelectCopy(img, bls)
	require.True(t, errors.Is(err, ErrNoValidCopy))
}

func TestSelectCopyWindowOutsideImage(t *testing.T) {
	img := make([]byte, 0x100)
	for _, w := range []segment.Window{
		{Name: "past end", Offset: 0xf0, ReservedSize: 0x20},
		{Name: "max offset", Offset: math.MaxInt, ReservedSize: 1},
	} {
		_, err := SelectCopy(img, []segment.Window{w})
		require.Error(t, err, w.Name)
		require.False(t, errors.Is(err, ErrNoValidCopy), w.Name)
	}
}

func TestSingleBitFlipsAlwaysDetected(t *testing.T) {
	img, l := composeDefault(t, 3)
	w := l.Windows[0]
	inj := fault.NewSeeded(11)

	for i := 0; i < 100; i++ {
		pos, err := inj.ChooseBits(w.ReservedSize*8, 1)
		require.NoError(t, err)
		pos[0] += w.Offset * 8

		fault.FlipBits(img, pos)
		require.False(t, checksum.Verify(img[w.Offset:w.End()]))
		fault.FlipBits(img, pos)
		require.True(t, checksum.Verify(img[w.Offset:w.End()]))
	}
}

func TestMajorityVote(t *testing.T) {
	a := []byte{0b1010_1010, 0x00, 0xff}
	b := []byte{0b1010_1010, 0x01, 0xff}
	c := []byte{0b0101_0101, 0x00, 0x7f}

	got, err := MajorityVote(a, b, c)
	require.NoError(t, err)
	require.Equal(t, []byte{0b1010_1010, 0x00, 0xff}, got)

	_, err = MajorityVote(a, b, c[:2])
	require.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestMajorityVoteRecoversApplication(t *testing.T) {
	img, l := composeDefault(t, 4)
	apps := l.Group("application")
	want := append([]byte(nil), img[apps[0].Offset:apps[0].End()]...)

	// corrupt copies 1 and 3 at different bits
	fault.FlipBits(img, []int{apps[0].Offset*8 + 100, apps[2].Offset*8 + 101, apps[2].Offset*8 + 5000})

	got, err := MajorityVote(
		img[apps[0].Offset:apps[0].End()],
		img[apps[1].Offset:apps[1].End()],
		img[apps[2].Offset:apps[2].End()],
	)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestInspect(t *testing.T) {
	img, l := composeDefault(t, 5)

	r, err := Inspect(img, l)
	require.NoError(t, err)
	require.True(t, r.Bootable())
	require.Equal(t, 0, r.Bootloader)
	require.Zero(t, r.VoteCorrections)
	require.Len(t, r.Segments, 6)
	for _, st := range r.Segments {
		if st.Window.Policy == checksum.ComplementMod256 {
			require.True(t, st.Checked)
			require.True(t, st.Valid, st.Window.Name)
		} else {
			require.False(t, st.Checked)
		}
	}

	bls := l.Group("bootloader")
	apps := l.Group("application")
	fault.FlipBits(img, []int{
		bls[0].Offset*8 + 3,
		apps[1].Offset*8 + 8*10,
		apps[1].Offset*8 + 8*20,
		apps[0].Offset*8 + 8*30 + 1,
		apps[1].Offset*8 + 8*30 + 2,
		apps[2].Offset*8 + 8*30 + 3,
	})

	r, err = Inspect(img, l)
	require.NoError(t, err)
	require.Equal(t, 1, r.Bootloader)
	require.False(t, r.Segments[0].Valid)
	require.Equal(t, 2, r.VoteCorrections)
	require.Equal(t, 1, r.VoteUnrecoverable)
}

func TestInspectWithoutBootloaders(t *testing.T) {
	l := segment.Layout{
		Size:    0x100,
		Windows: []segment.Window{{Name: "data", Offset: 0, ReservedSize: 0x10, Policy: checksum.ComplementMod256}},
	}
	img := make([]byte, 0x100)
	img[0] = 1

	r, err := Inspect(img, l)
	require.NoError(t, err)
	require.True(t, r.Bootable())
	require.Equal(t, -1, r.Bootloader)
	require.False(t, r.Segments[0].Valid)
}

func TestInspectSizeMismatch(t *testing.T) {
	_, err := Inspect(make([]byte, 10), segment.DefaultLayout())
	require.Error(t, err)
}
