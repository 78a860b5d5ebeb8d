package flash

import (
	"golang.org/x/exp/constraints"
)

// xorChecksum is the checksum the STM32 bootloader expects after addresses and
// data blocks: all bytes XORed together
func xorChecksum(bs []byte) byte {
	var s byte
	for _, b := range bs {
		s ^= b
	}
	return s
}

// blocks will split bs into consecutive slices of at most size bytes
func blocks(bs []byte, size int) [][]byte {
	var out [][]byte
	for off := 0; off < len(bs); off += size {
		out = append(out, bs[off:min(len(bs), off+size)])
	}
	return out
}

// min will return the minimum of the two values
func min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}
