package fault

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/synthread/go-flashimage/output"
)

// InsufficientSizeError reports a request to flip more bits than the file has
type InsufficientSizeError struct {
	Path      string
	Bits      int
	Requested int
}

func (e *InsufficientSizeError) Error() string {
	return fmt.Sprintf("%s has %d bits, cannot flip %d", e.Path, e.Bits, e.Requested)
}

// Injector corrupts images by flipping randomly chosen bits. The random
// source is injected so that runs can be reproduced.
type Injector struct {
	rng *rand.Rand
}

// New will create an injector drawing from src
func New(src rand.Source) *Injector {
	return &Injector{rng: rand.New(src)}
}

// NewSeeded will create an injector with a deterministic source
func NewSeeded(seed int64) *Injector {
	return New(rand.NewSource(seed))
}

// ChooseBits returns n distinct bit positions drawn uniformly from
// [0, total) without replacement. Memory use is proportional to n, not total.
func (inj *Injector) ChooseBits(total, n int) ([]int, error) {
	if n < 0 {
		return nil, errors.Errorf("negative bit count %d", n)
	}
	if n > total {
		return nil, &InsufficientSizeError{Bits: total, Requested: n}
	}

	// Floyd's algorithm
	chosen := make(map[int]struct{}, n)
	out := make([]int, 0, n)
	for j := total - n; j < total; j++ {
		t := inj.rng.Intn(j + 1)
		if _, ok := chosen[t]; ok {
			t = j
		}
		chosen[t] = struct{}{}
		out = append(out, t)
	}

	return out, nil
}

// FlipBits will XOR the bit at every position (byte index = pos/8, bit =
// pos%8, LSB first). Applying the same positions twice restores the data.
func FlipBits(data []byte, positions []int) {
	for _, pos := range positions {
		data[pos/8] ^= 1 << uint(pos%8)
	}
}

// FlipRandomBits will flip n distinct random bits of the file at path and
// rewrite it in place. The flipped positions are returned.
func (inj *Injector) FlipRandomBits(path string, n int) ([]int, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not stat image")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read image")
	}

	positions, err := inj.ChooseBits(len(data)*8, n)
	if err != nil {
		var serr *InsufficientSizeError
		if errors.As(err, &serr) {
			serr.Path = path
		}
		return nil, err
	}

	FlipBits(data, positions)

	if err := output.WriteMode(path, data, st.Mode().Perm()); err != nil {
		return nil, err
	}

	logrus.Debugf("flipped %d bits in %s", n, path)

	return positions, nil
}
