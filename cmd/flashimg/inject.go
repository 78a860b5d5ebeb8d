package main

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/synthread/go-flashimage/fault"
)

type InjectCmd struct {
	Bits int      `short:"n" default:"50" help:"Number of distinct bits to flip."`
	Seed seedFlag `optional help:"Random seed, for reproducible runs. A time based seed is used when not given."`
	File string   `arg help:"Image to corrupt in place."`
}

func (i *InjectCmd) Run(c *Context) error {
	seed := i.Seed.value
	if !i.Seed.set {
		seed = time.Now().UnixNano()
	}

	positions, err := fault.New(rand.NewSource(seed)).FlipRandomBits(i.File, i.Bits)
	if err != nil {
		return err
	}

	logrus.WithField("seed", seed).Infof("flipped %d bits in %s", len(positions), i.File)
	for _, p := range positions {
		logrus.Debugf("flipped byte %05x bit %d", p/8, p%8)
	}

	return nil
}
